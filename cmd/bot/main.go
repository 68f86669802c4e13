package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ad-studio/internal/app"
	"ad-studio/internal/bot"
	"ad-studio/internal/config"
	"ad-studio/internal/mediagroup"
	"ad-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
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

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: studioApp.HTTPClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	handler := bot.New(bot.Options{
		Messenger: tg,
		Sessions:  studioApp.Sessions,
		Logger:    logger,
	})
	dispatcher := bot.NewDispatcher(cfg.MaxConcurrent, cfg.RequestTimeout)

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush: func(group mediagroup.Group) {
			dispatcher.Go(ctx, func(ctx context.Context) {
				handler.HandleMediaGroup(ctx, group)
			})
		},
	})
	defer aggregator.Close()
	handler.SetMediaGroupAggregator(aggregator)

	go studioApp.SweepSessions(ctx)

	logger.Info("bot started", "username", tg.Username(), "formats", len(studioApp.Catalog.Formats()))

	updates := tg.Updates(telegram.UpdatesOptions{Timeout: 30 * time.Second})
	handler.Serve(ctx, updates, dispatcher)

	tg.StopUpdates()
	dispatcher.Wait()
}
