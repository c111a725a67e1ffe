package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"barestreams/cache"
	"barestreams/config"
	"barestreams/handlers"
	"barestreams/services"
	sharedhttp "barestreams/shared/http"
	"barestreams/shared/logger"
	"barestreams/shared/server"
	"barestreams/titles"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Environment, cfg.Debug)

	store := cache.New(cfg.RedisURL)

	index := titles.NewIndex(cfg.TitleBasicsPath)
	refresher := titles.NewRefresher(cfg.TitleBasicsPath)
	go refresher.Run(context.Background())

	httpClient := sharedhttp.NewClient(cfg.FlaresolverrURL, cfg.FlaresolverrSessions)

	app := services.NewApp(cfg, store, httpClient, index)
	go app.WarmUp(context.Background())

	scheduler := cron.New()
	if cfg.FlaresolverrURL != "" && cfg.SessionRefresh > 0 {
		_, err := scheduler.AddFunc("@every "+cfg.SessionRefresh.String(), func() {
			httpClient.RefreshSessions(context.Background())
		})
		if err != nil {
			slog.Error("Failed to schedule session refresh", "error", err)
		}
	}
	if _, err := scheduler.AddFunc("@daily", func() {
		refresher.Run(context.Background())
	}); err != nil {
		slog.Error("Failed to schedule dataset refresh", "error", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.Create(
		server.NewConfig(":"+cfg.ServerPort, cfg.MaxRequestWait),
		handlers.New(app).Router(),
	)

	go func() {
		slog.Info("Addon listening", "port", cfg.ServerPort, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
