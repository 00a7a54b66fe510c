package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"printer-docs-backend/internal/normalize"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                  int     `yaml:"port"`
	RequestIPHeader       string  `yaml:"request_ip_header"`
	RateLimitPerSec       float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst        int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds       int     `yaml:"cache_ttl_seconds"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	MaxUploadMB           int64   `yaml:"max_upload_mb"`

	CacheTTL       time.Duration `yaml:"-"`
	RequestTimeout time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	MaxRetries             int    `yaml:"max_retries"`
	RetryInitialDelayMS    int    `yaml:"retry_initial_delay_ms"`
	LogSQL                 bool   `yaml:"log_sql"`

	RetryInitialDelay time.Duration `yaml:"-"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Replacement is one literal substitution of the model-name pipeline.
type Replacement struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// NormalizeConfig holds the ordered vendor-prefix replacements.
type NormalizeConfig struct {
	ModelPrefixes []Replacement `yaml:"model_prefixes"`
}

// ReconcileConfig controls the startup de-duplication pass.
type ReconcileConfig struct {
	Enabled                 *bool    `yaml:"enabled"`
	CanonicalModels         []string `yaml:"canonical_models"`
	NormalizeDipSwitchNames *bool    `yaml:"normalize_dip_switch_names"`
	DedupeStarredCodes      *bool    `yaml:"dedupe_starred_codes"`
}

// SearchConfig holds error-code search tuning.
type SearchConfig struct {
	DefaultLimit     int `yaml:"default_limit"`
	PartsConcurrency int `yaml:"parts_concurrency"`
}

// DefaultModelPrefixes are the vendor prefixes stripped from model names, in order.
var DefaultModelPrefixes = replacementsFrom(normalize.DefaultRules)

// DefaultCanonicalModels is the reconciliation allow-list used when none is configured.
var DefaultCanonicalModels = []string{"C4080", "C4070", "C4065"}

// Load reads the configuration from the given path. A missing file is not an
// error when allowMissing is set; defaults and environment overrides still apply.
func Load(path string, allowMissing bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	case allowMissing && errors.Is(err, fs.ErrNotExist):
		log.Printf("config file %s not found; using defaults", path)
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Database.DSN == "" {
		return nil, errors.New("database dsn is required (set DATABASE_URL or database.dsn)")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("ignoring invalid PORT %q: %v", v, err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	// A negative TTL disables the response cache.
	switch {
	case cfg.Server.CacheTTLSeconds == 0:
		cfg.Server.CacheTTL = time.Minute
	case cfg.Server.CacheTTLSeconds > 0:
		cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	}
	if cfg.Server.RequestTimeoutSeconds <= 0 {
		cfg.Server.RequestTimeoutSeconds = 30
	}
	cfg.Server.RequestTimeout = time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 50
	}

	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 5
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if cfg.Database.MaxRetries < 0 {
		cfg.Database.MaxRetries = 0
	}
	if cfg.Database.RetryInitialDelayMS <= 0 {
		cfg.Database.RetryInitialDelayMS = 200
	}
	cfg.Database.RetryInitialDelay = time.Duration(cfg.Database.RetryInitialDelayMS) * time.Millisecond

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if len(cfg.Normalize.ModelPrefixes) == 0 {
		cfg.Normalize.ModelPrefixes = append([]Replacement(nil), DefaultModelPrefixes...)
	}

	if cfg.Reconcile.Enabled == nil {
		cfg.Reconcile.Enabled = boolPtr(true)
	}
	if len(cfg.Reconcile.CanonicalModels) == 0 {
		cfg.Reconcile.CanonicalModels = append([]string(nil), DefaultCanonicalModels...)
	}
	if cfg.Reconcile.NormalizeDipSwitchNames == nil {
		cfg.Reconcile.NormalizeDipSwitchNames = boolPtr(true)
	}
	if cfg.Reconcile.DedupeStarredCodes == nil {
		cfg.Reconcile.DedupeStarredCodes = boolPtr(true)
	}

	if cfg.Search.DefaultLimit <= 0 {
		cfg.Search.DefaultLimit = 50
	}
	if cfg.Search.PartsConcurrency <= 0 {
		cfg.Search.PartsConcurrency = 4
	}
}

func replacementsFrom(rules []normalize.Rule) []Replacement {
	out := make([]Replacement, 0, len(rules))
	for _, r := range rules {
		out = append(out, Replacement{Pattern: r.Pattern, Replacement: r.Replacement})
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
