package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"color-relay/internal/registry"
)

type RoomsAPI struct {
	Reg registry.Registry
	Log *slog.Logger
}

type existsResp struct {
	Exists bool `json:"exists"`
}

// Exists reports whether ?r= names a live room; a missing r is just a miss
func (a *RoomsAPI) Exists(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("r")
	ok, err := a.Reg.Exists(r.Context(), roomID)
	if err != nil {
		a.Log.Error("room.exists", "room", roomID, "err", err)
		writeError(w, http.StatusInternalServerError)
		return
	}
	writeJSON(w, existsResp{Exists: ok})
}

// Stats returns the registry counters as a flat object
func (a *RoomsAPI) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := a.Reg.Stats(r.Context())
	if err != nil {
		a.Log.Error("cache.stats", "err", err)
		writeError(w, http.StatusInternalServerError)
		return
	}
	writeJSON(w, s)
}

// Ready pings the registry backend
func (a *RoomsAPI) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.Reg.Ping(r.Context()); err != nil {
		a.Log.Warn("readyz", "err", err)
		writeError(w, http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends a generic failure body; details stay in the logs
func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(status)})
}
