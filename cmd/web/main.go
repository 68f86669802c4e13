package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ad-studio/internal/api"
	"ad-studio/internal/app"
	"ad-studio/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	studioApp, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("app init failed", "err", err)
		os.Exit(1)
	}
	defer studioApp.Close()

	go studioApp.SweepSessions(ctx)

	handler := api.New(api.Options{
		Sessions:       studioApp.Sessions,
		Catalog:        studioApp.Catalog,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	// No WriteTimeout: generations and the websocket stream outlive any fixed bound.
	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("web server listening", "addr", cfg.WebAddr, "formats", len(studioApp.Catalog.Formats()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("web server failed", "err", err)
		os.Exit(1)
	}
	stop()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
