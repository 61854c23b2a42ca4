package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docanchor/internal/api"
	"github.com/dgallion1/docanchor/internal/config"
	"github.com/dgallion1/docanchor/internal/library"
	"github.com/dgallion1/docanchor/internal/logging"
	"github.com/dgallion1/docanchor/internal/pathstore"
	"github.com/dgallion1/docanchor/internal/pipeline"
	"github.com/dgallion1/docanchor/internal/stats"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
	lib := library.New(cfg.IgnoreClass, log.With("component", "resolver"))

	orch := pipeline.NewOrchestrator(cfg, ps, lib, log.With("component", "pipeline"))
	orch.Start(ctx)

	srv := api.NewServer(orch, stats.NewResolveStats(cfg.ResolveStatsWindow), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		ps.Close()
	}()

	log.Info("starting docanchor",
		"port", cfg.Port,
		"workers", cfg.WorkerCount,
		"location_chars", cfg.LocationChars,
		"ignore_class", cfg.IgnoreClass,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
