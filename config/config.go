/*
Package config assembles service configuration.

PRECEDENCE (lowest to highest):
  1. Defaults
  2. .env file (optional, via godotenv)
  3. Process environment
  4. Command-line flags

ENVIRONMENT:
  CASHFLOW_PORT              HTTP port (8080)
  CASHFLOW_DATA_DIR          directory holding statement_{branch}_*.csv (./data)
  CASHFLOW_CACHE_DRIVER      memory | sqlite | postgres (sqlite)
  CASHFLOW_CACHE_DSN         sqlite path or postgres DSN (cashflow-cache.db)
  CASHFLOW_CACHE_RETENTION   prune entries older than this (720h)
  CASHFLOW_CACHE_PRUNE_EVERY janitor interval (1h, 0 disables)
  CASHFLOW_KAFKA_BROKERS     comma-separated; empty disables publishing
  CASHFLOW_LOG_LEVEL         debug | info | warn | error (info)
  CASHFLOW_MONTHLY_MIN/MAX   monthly gap band in days (27/34)
  CASHFLOW_WEEKLY_MIN/MAX    weekly gap band in days (6/8)
  CASHFLOW_LOOKBACK_MONTHS   recurrence lookback (18)
  CASHFLOW_DUE_WINDOW_DAYS   recurrence due window (7)

FLAGS:
  -port, -data, -cache, -dsn, -log-level
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/cashflow-engine/recurrence"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port           int
	DataDir        string
	CacheDriver    string
	CacheDSN       string
	CacheRetention time.Duration
	PruneInterval  time.Duration
	KafkaBrokers   []string
	LogLevel       string
	Recurrence     recurrence.Config
}

func Default() Config {
	return Config{
		Port:           8080,
		DataDir:        "./data",
		CacheDriver:    DriverSQLite,
		CacheDSN:       "cashflow-cache.db",
		CacheRetention: 30 * 24 * time.Hour,
		PruneInterval:  time.Hour,
		LogLevel:       "info",
		Recurrence:     recurrence.DefaultConfig(),
	}
}

// Load reads .env files (default ".env", missing files are fine), the
// environment, then args as flags.
func Load(args []string, envFiles ...string) (Config, error) {
	dotenv, err := readDotenv(envFiles...)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg, err := FromEnv(Default(), lookup)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyFlags(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func readDotenv(files ...string) (map[string]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	merged := make(map[string]string)
	for _, f := range files {
		values, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range values {
			if _, seen := merged[k]; !seen {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

// FromEnv overlays environment values onto cfg.
func FromEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	p := envParser{lookup: lookup}

	p.int("CASHFLOW_PORT", &cfg.Port)
	p.str("CASHFLOW_DATA_DIR", &cfg.DataDir)
	p.str("CASHFLOW_CACHE_DRIVER", &cfg.CacheDriver)
	p.str("CASHFLOW_CACHE_DSN", &cfg.CacheDSN)
	p.duration("CASHFLOW_CACHE_RETENTION", &cfg.CacheRetention)
	p.duration("CASHFLOW_CACHE_PRUNE_EVERY", &cfg.PruneInterval)
	p.list("CASHFLOW_KAFKA_BROKERS", &cfg.KafkaBrokers)
	p.str("CASHFLOW_LOG_LEVEL", &cfg.LogLevel)

	p.float("CASHFLOW_MONTHLY_MIN", &cfg.Recurrence.Monthly.Min)
	p.float("CASHFLOW_MONTHLY_MAX", &cfg.Recurrence.Monthly.Max)
	p.float("CASHFLOW_WEEKLY_MIN", &cfg.Recurrence.Weekly.Min)
	p.float("CASHFLOW_WEEKLY_MAX", &cfg.Recurrence.Weekly.Max)
	p.int("CASHFLOW_LOOKBACK_MONTHS", &cfg.Recurrence.LookbackMonths)
	p.int("CASHFLOW_DUE_WINDOW_DAYS", &cfg.Recurrence.DueWindowDays)

	return cfg, errors.Join(p.errs...)
}

func (c *Config) applyFlags(args []string) error {
	flags := flag.NewFlagSet("cashflow", flag.ContinueOnError)
	flags.IntVar(&c.Port, "port", c.Port, "HTTP server port")
	flags.StringVar(&c.DataDir, "data", c.DataDir, "Directory holding statement CSVs")
	flags.StringVar(&c.CacheDriver, "cache", c.CacheDriver, "Series cache driver: memory, sqlite or postgres")
	flags.StringVar(&c.CacheDSN, "dsn", c.CacheDSN, "SQLite path or PostgreSQL DSN")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level")
	return flags.Parse(args)
}

func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.CacheDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.CacheDSN == "" {
			errs = append(errs, fmt.Errorf("cache driver %s needs a DSN", c.CacheDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.CacheDriver))
	}
	if c.CacheRetention <= 0 {
		errs = append(errs, fmt.Errorf("cache retention must be positive, got %s", c.CacheRetention))
	}
	if c.PruneInterval < 0 {
		errs = append(errs, fmt.Errorf("prune interval must not be negative, got %s", c.PruneInterval))
	}
	if err := c.Recurrence.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// =============================================================================
// ENV PARSING
// =============================================================================

type envParser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *envParser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *envParser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *envParser) int(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (p *envParser) float(key string, dst *float64) {
	if v, ok := p.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (p *envParser) duration(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

func (p *envParser) list(key string, dst *[]string) {
	if v, ok := p.get(key); ok {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
	}
}
