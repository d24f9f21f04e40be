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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sahajch/tillsync/internal/api"
	"github.com/sahajch/tillsync/internal/auth"
	"github.com/sahajch/tillsync/internal/checkout"
	"github.com/sahajch/tillsync/internal/config"
	"github.com/sahajch/tillsync/internal/events"
	"github.com/sahajch/tillsync/internal/models"
	"github.com/sahajch/tillsync/internal/netmon"
	"github.com/sahajch/tillsync/internal/queue"
	"github.com/sahajch/tillsync/internal/refresh"
	"github.com/sahajch/tillsync/internal/remote"
	"github.com/sahajch/tillsync/internal/storage"
	"github.com/sahajch/tillsync/internal/storage/sqlite"
	"github.com/sahajch/tillsync/internal/syncer"
	"github.com/sahajch/tillsync/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logging.Setup()

	cfg, err := config.Load(getEnv("TILLSYNC_CONFIG", "tillsync.toml"))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The store opens lazily so the terminal still starts when the disk is
	// degraded; reads fall back to empty and only checkout surfaces the
	// failure.
	store := storage.NewLazy(func() (storage.Store, error) {
		return sqlite.Open(cfg.Storage.DBPath, cfg.Storage.SchemaVersion)
	})
	defer store.Close()
	slog.Info("Storage configured", "database", cfg.Storage.DBPath)

	bus := events.NewBus()
	client := remote.New(cfg.Remote.BaseURL, &http.Client{Timeout: 15 * time.Second})

	probeClient := &http.Client{Timeout: 5 * time.Second}
	monitor := netmon.New(netmon.HTTPProbe(probeClient, client.HealthURL()), cfg.ProbeInterval(), bus)

	q := queue.New(store)
	views := refresh.NewViews()

	// Background refreshes reuse the last bearer the counter presented.
	tokenFn := func() string {
		token, _ := store.GetSetting(ctx, models.SettingSessionToken)
		return token
	}
	refresher := refresh.New(client, store, monitor, views, bus, tokenFn, refresh.Options{
		OfflineInterval: cfg.OfflineRefreshInterval(),
		Retention:       cfg.Retention(),
		MaxBills:        cfg.Storage.MaxBills,
	})

	registry := prometheus.NewRegistry()
	coord := syncer.New(q, client, monitor, refresher, bus, cfg.SyncInterval(), syncer.NewMetrics(registry))

	co := checkout.New(monitor, client, q, cfg.Billing.TaxPercent)

	go monitor.Run(ctx)
	go coord.Run(ctx)
	go refresher.Run(ctx)

	srv := api.New(co, q, coord, monitor, store, views, auth.NewJWTManager(cfg.Server.JWTSecret), registry)
	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Server starting", "address", cfg.Server.ListenAddr, "remote", cfg.Remote.BaseURL)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
