package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/beachhouses/CuppaChat-KDJK/internal/app"
	httpx "github.com/beachhouses/CuppaChat-KDJK/internal/http"
	"github.com/beachhouses/CuppaChat-KDJK/internal/store"
	"github.com/beachhouses/CuppaChat-KDJK/internal/ws"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Disk store for uploaded attachments
	uploads, err := store.NewUploads(cfg.UploadDir, logger)
	if err != nil {
		logger.Error("uploads init", "err", err)
		log.Fatal(err)
	}

	// Room registry + broadcast engine
	hub := ws.NewHub(logger)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, hub, uploads)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr, "uploads", cfg.UploadDir)
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
}
