package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sina1864/EChat/internal/app"
	httpx "github.com/sina1864/EChat/internal/http"
	"github.com/sina1864/EChat/internal/presence"
	"github.com/sina1864/EChat/internal/store"
	"github.com/sina1864/EChat/internal/ws"
	"github.com/sina1864/EChat/pkg/auth"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres connection + migrations (accounts, room records)
	pg, err := store.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres connect", "err", err)
		log.Fatal(err)
	}
	defer pg.Close()
	if err := store.RunMigrations(ctx, pg, logger); err != nil {
		logger.Error("migrations", "err", err)
		log.Fatal(err)
	}

	// Presence core: registry + relay + router + lifecycle over the
	// websocket group transport
	groups := ws.NewGroups(logger)
	registry := presence.NewRegistry()
	relay := presence.NewRelay(registry, groups, logger)
	router := presence.NewRouter(registry, groups, relay, logger)
	lifecycle := presence.NewLifecycle(registry, router, relay, pg, groups, logger)

	hub := ws.NewHub(logger, auth.New(cfg.JWTSecret), groups, router, relay, lifecycle, cfg.PingInterval)

	// HTTP + WS router
	handler := httpx.NewRouter(cfg, logger, hub, router, pg)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
