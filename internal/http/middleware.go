package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"color-relay/internal/app"
	"color-relay/pkg/ratelimit"
)

type Middleware struct {
	log    *slog.Logger
	cors   *cors.Cors
	rlimit *ratelimit.Limiter
}

// NewMiddleware builds the shared middleware stack from config
func NewMiddleware(cfg app.Config, logger *slog.Logger) *Middleware {
	return &Middleware{
		log: logger,
		cors: cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllow,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}),
		rlimit: ratelimit.New(cfg.RateLimitPerMin, time.Minute),
	}
}

// Wrap applies panic recovery + CORS + rate limiting to a handler
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return m.Recover(m.cors.Handler(m.rlimit.Middleware(h)))
}

// Recover turns a handler panic into a logged 500
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				m.log.Error("http.panic", "path", r.URL.Path, "panic", fmt.Sprint(rec))
				writeError(w, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
