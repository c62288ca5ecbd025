package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/partykeeper/internal/achievement"
	"github.com/mmynk/partykeeper/internal/config"
	"github.com/mmynk/partykeeper/internal/metrics"
	"github.com/mmynk/partykeeper/internal/middleware"
	"github.com/mmynk/partykeeper/internal/registry"
	"github.com/mmynk/partykeeper/internal/roster"
	"github.com/mmynk/partykeeper/internal/scheduler"
	"github.com/mmynk/partykeeper/internal/service"
	"github.com/mmynk/partykeeper/internal/storage/backend"
	"github.com/mmynk/partykeeper/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := logging.Setup()
	if err := run(logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	m := metrics.New()
	players := roster.New(roster.DefaultInboxSize)
	catalog := achievement.NewCatalog(cfg.Party.MaxMembers)

	var reg *registry.Registry
	reg, err = registry.New(registry.ConfigFrom(cfg), registry.Options{
		Store:        store,
		Players:      players,
		Messenger:    players,
		Achievements: catalog,
		OnUnlock: func(u registry.Unlock) {
			name := u.Achievement
			if a, ok := catalog.Get(u.Achievement); ok {
				name = a.Name
			}
			reg.Broadcast(u.PartyID, "Achievement unlocked: "+name)
		},
		Logger:    logger,
		Metrics:   m,
		Scheduler: scheduler.New(logger),
	})
	if err != nil {
		store.Close()
		return err
	}

	if err := startRegistry(ctx, reg, store); err != nil {
		return err
	}
	parties, members := reg.Count()
	logger.Info("Party registry started", "parties", parties, "members", members)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	service.NewOpsService(reg, players, logger).Register(mux)

	handler := middleware.Recover(logger)(middleware.Logging(logger)(mux))
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Ops server starting", "address", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(err, srv.Shutdown(shutdownCtx), reg.Shutdown(shutdownCtx))
}

// lifecycle is the part of the registry startRegistry drives.
type lifecycle interface {
	Load(ctx context.Context)
	Start(ctx context.Context) error
}

// startRegistry loads persisted parties and starts the periodic tasks.
// The store is closed if the tasks cannot start.
func startRegistry(ctx context.Context, reg lifecycle, store io.Closer) error {
	reg.Load(ctx)
	if err := reg.Start(ctx); err != nil {
		if cerr := store.Close(); cerr != nil {
			return errors.Join(fmt.Errorf("start registry: %w", err), cerr)
		}
		return fmt.Errorf("start registry: %w", err)
	}
	return nil
}
