package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"printer-docs-backend/config"
	"printer-docs-backend/internal/db"
	"printer-docs-backend/internal/logger"
	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/normalize"
	"printer-docs-backend/internal/reconcile"
	"printer-docs-backend/internal/store"
)

// app is what both subcommands need: configuration, a logger and the store.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *gorm.DB
	store store.Store
	namer *normalize.ModelNamer
}

// bootstrap loads configuration, builds the logger and opens the database.
// Any error here is fatal for the process.
func bootstrap(ctx context.Context) (*app, error) {
	path, allowMissing := resolveConfigPath()
	cfg, err := config.Load(path, allowMissing)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rootLogger = log
	log.Info("configuration loaded", zap.String("path", path))

	gormDB, err := db.Init(ctx, &cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &app{
		cfg: cfg,
		log: log,
		db:  gormDB,
		store: store.NewGormStore(gormDB, store.RetryPolicy{
			MaxRetries:   cfg.Database.MaxRetries,
			InitialDelay: cfg.Database.RetryInitialDelay,
		}),
		namer: normalize.NewModelNamer(rules(cfg.Normalize.ModelPrefixes)),
	}, nil
}

// resolveConfigPath picks --config, then CONFIG_PATH, then the default path.
// Only the default path may be missing.
func resolveConfigPath() (string, bool) {
	if configPath != "" {
		return configPath, false
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p, false
	}
	return defaultConfigPath, true
}

func rules(prefixes []config.Replacement) []normalize.Rule {
	out := make([]normalize.Rule, 0, len(prefixes))
	for _, p := range prefixes {
		out = append(out, normalize.Rule{Pattern: p.Pattern, Replacement: p.Replacement})
	}
	return out
}

func (a *app) reconciler(m *metrics.Metrics) *reconcile.Reconciler {
	rc := a.cfg.Reconcile
	return reconcile.New(a.store, a.namer, reconcile.Options{
		CanonicalModels:         rc.CanonicalModels,
		NormalizeDipSwitchNames: *rc.NormalizeDipSwitchNames,
		DedupeStarredCodes:      *rc.DedupeStarredCodes,
	}, a.log, m)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
