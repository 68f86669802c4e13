// Package app wires the model backend, the format catalog and the session
// store shared by every command.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"ad-studio/internal/config"
	"ad-studio/internal/creative"
	"ad-studio/internal/gemini"
	"ad-studio/internal/httpclient"
	"ad-studio/internal/session"
	"ad-studio/internal/studio"
)

type App struct {
	Config     config.Config
	Logger     *slog.Logger
	HTTPClient *http.Client
	Catalog    *creative.Catalog
	Backend    *gemini.Backend
	Sessions   *session.Store

	text *gemini.TextClient
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	catalog, err := creative.LoadCatalog(cfg.FormatsFile)
	if err != nil {
		return nil, fmt.Errorf("load formats: %w", err)
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     logger,
	})

	images := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		Model:      cfg.GeminiImageModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	text, err := gemini.NewTextClient(ctx, gemini.TextOptions{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiTextModel,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		HTTPClient: httpClient,
		Catalog:    catalog,
		Backend:    gemini.NewBackend(images, text, logger),
		text:       text,
	}
	a.Sessions = session.NewStore(session.Options{
		Factory: a.NewSession,
		Logger:  logger,
	})
	return a, nil
}

// NewSession builds a studio session configured from the app settings.
func (a *App) NewSession(id string) *studio.Session {
	return studio.New(id, studio.Options{
		Backend:         a.Backend,
		Catalog:         a.Catalog,
		Logger:          a.Logger,
		GalleryLimit:    a.Config.GalleryLimit,
		AutoDescribe:    a.Config.AutoDescribe,
		AnalysisTimeout: a.Config.AnalysisTimeout,
	})
}

// SweepSessions evicts idle sessions until ctx is done.
func (a *App) SweepSessions(ctx context.Context) {
	ttl := a.Config.SessionTTL
	if ttl <= 0 {
		return
	}
	interval := ttl / 4
	if interval <= 0 {
		return
	}
	a.Logger.Info("session sweeper started", "ttl", ttl, "interval", interval)
	a.Sessions.Run(ctx, interval, ttl)
}

func (a *App) Close() error {
	if a.text == nil {
		return nil
	}
	return a.text.Close()
}
