package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"printer-docs-backend/internal/api"
	"printer-docs-backend/internal/dipswitch"
	"printer-docs-backend/internal/importer"
	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/mw"
	"printer-docs-backend/internal/search"
)

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Reconcile model names, then serve the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log
	cfg := a.cfg

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	if *cfg.Reconcile.Enabled {
		if _, err := a.reconciler(m).Run(ctx); err != nil {
			return fmt.Errorf("startup reconciliation failed: %w", err)
		}
	} else {
		log.Info("startup reconciliation disabled")
	}

	cache := mw.NewResponseCache(cfg.Server.CacheTTL)
	handler := api.NewHandler(
		a.store,
		search.NewService(a.store, search.Options{
			DefaultLimit:     cfg.Search.DefaultLimit,
			PartsConcurrency: cfg.Search.PartsConcurrency,
		}, log, m),
		importer.NewService(a.store, a.namer, log, m),
		dipswitch.NewService(a.store, a.namer, log, m),
		cache,
		log,
	)
	router := api.NewRouter(handler, api.RouterOptions{
		RequestIPHeader: cfg.Server.RequestIPHeader,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		RequestTimeout:  cfg.Server.RequestTimeout,
		MaxUploadBytes:  cfg.Server.MaxUploadMB << 20,
		Cache:           cache,
		Metrics:         m,
		Gatherer:        registry,
		Log:             log,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	log.Info("server gracefully stopped")
	return nil
}
