package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	app "color-relay/internal/app"
	httpx "color-relay/internal/http"
	registry "color-relay/internal/registry"
	ws "color-relay/internal/ws"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Room registry, plus a redis bus when rooms are shared between instances
	reg, bus, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("backend connect", "err", err)
		log.Fatal(err)
	}
	defer closeBackend()

	// WebSocket hub
	hub := ws.NewHub(logger, reg, bus, cfg.OriginPatterns())
	go hub.Run(ctx)

	// HTTP + WS router
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(cfg, logger, hub, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr, "shared", cfg.Shared())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}

// openBackend picks the in-memory registry, or redis when REDIS_ADDR is set.
// The bus is nil for the in-memory registry.
func openBackend(ctx context.Context, cfg app.Config, logger *slog.Logger) (registry.Registry, ws.Bus, func(), error) {
	if !cfg.Shared() {
		reg := registry.NewMemory()
		return reg, nil, func() { _ = reg.Close() }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	bus, err := ws.NewRedisBus(ctx, rdb, logger)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, nil, err
	}
	reg := registry.NewRedis(rdb)
	return reg, bus, func() {
		_ = reg.Close()
		_ = rdb.Close()
	}, nil
}
