package httpx

import (
	"log/slog"
	"net/http"

	"color-relay/internal/app"
	"color-relay/internal/registry"
	"color-relay/internal/ws"
	"color-relay/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, reg registry.Registry) http.Handler {
	mw := NewMiddleware(cfg, logger)
	rooms := &RoomsAPI{Reg: reg, Log: logger}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("GET /readyz", http.HandlerFunc(rooms.Ready))
	mux.Handle("GET /metrics", metrics.Handler())

	// WebSocket endpoint
	mux.Handle("GET /ws", http.HandlerFunc(hub.ServeWS))

	// Room lookups
	mux.Handle("GET /room", http.HandlerFunc(rooms.Exists))
	mux.Handle("GET /cache-stats", http.HandlerFunc(rooms.Stats))

	// CORS + rate limit + recover applied globally
	return mw.Wrap(mux)
}
