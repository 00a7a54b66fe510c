package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"moul.io/zapgorm2"

	"printer-docs-backend/config"
	"printer-docs-backend/internal/model"
)

// Init opens the database named by cfg.DSN, checks that it answers and brings
// the schema up to date. Any error here means the process must not serve.
func Init(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.DSN)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.LogSQL {
		logLevel = logger.Info
	}
	gormLog := zapgorm2.New(log.Named("gorm"))
	gormLog.IgnoreRecordNotFoundError = true
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLog.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("database is unreachable: %w", err)
	}

	log.Info("ensuring database schema", zap.String("dialect", db.Dialector.Name()))
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	log.Info("database initialization complete")
	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://")), nil
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		return OpenSQLite(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database dsn %q: expected postgres:// or sqlite:// / file:", redact(dsn))
	}
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}

var tables = []any{
	&model.Printer{},
	&model.ErrorCode{},
	&model.SparePart{},
	&model.ErrorPart{},
	&model.DipSwitch{},
}

// Columns that older deployments were created without. Added in place when missing.
var lateColumns = []struct {
	model any
	field string
}{
	{&model.ErrorCode{}, "Classification"},
	{&model.ErrorCode{}, "EstimatedAbnormalParts"},
	{&model.ErrorCode{}, "Correction"},
	{&model.ErrorCode{}, "FaultyPartIsolation"},
	{&model.ErrorCode{}, "Note"},
	{&model.SparePart{}, "ImageURL"},
	{&model.SparePart{}, "Ranking"},
	{&model.ErrorPart{}, "Ranking"},
	{&model.DipSwitch{}, "DefaultVal"},
}

// Indexes the upsert statements rely on.
var requiredIndexes = []struct {
	model any
	name  string
}{
	{&model.Printer{}, "idx_printers_model_name"},
	{&model.ErrorCode{}, "idx_error_codes_printer_code"},
	{&model.SparePart{}, "idx_spare_parts_oem_code"},
	{&model.DipSwitch{}, "idx_dip_switches_lookup"},
}

// EnsureSchema creates missing tables, then adds missing columns and indexes.
// It never alters or drops anything, so it is safe on every start.
func EnsureSchema(db *gorm.DB) error {
	m := db.Migrator()
	for _, t := range tables {
		if m.HasTable(t) {
			continue
		}
		if err := m.CreateTable(t); err != nil {
			return fmt.Errorf("create table for %T failed: %w", t, err)
		}
	}
	for _, c := range lateColumns {
		if m.HasColumn(c.model, c.field) {
			continue
		}
		if err := m.AddColumn(c.model, c.field); err != nil {
			return fmt.Errorf("add column %T.%s failed: %w", c.model, c.field, err)
		}
	}
	for _, idx := range requiredIndexes {
		if m.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := m.CreateIndex(idx.model, idx.name); err != nil {
			return fmt.Errorf("create index %s failed: %w", idx.name, err)
		}
	}
	return nil
}
