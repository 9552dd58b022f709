package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/rentledger/internal/domain/ledger"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "rentledger.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(envOr("RENTLEDGER_CONFIG", DefaultConfigFile))
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "RENTLEDGER_PORT")
	setString(&cfg.Server.CORSOrigin, "RENTLEDGER_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "RENTLEDGER_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "RENTLEDGER_SHUTDOWN_TIMEOUT")

	setString(&cfg.Storage.Driver, "RENTLEDGER_STORAGE_DRIVER")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "RENTLEDGER_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "RENTLEDGER_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "RENTLEDGER_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "RENTLEDGER_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "RENTLEDGER_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Enabled, "RENTLEDGER_NATS_ENABLED")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "RENTLEDGER_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "RENTLEDGER_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "RENTLEDGER_CACHE_L2_TTL")
	setDuration(&cfg.Cache.LedgerTTL, "RENTLEDGER_CACHE_LEDGER_TTL")

	// Ledger
	setString(&cfg.Ledger.MonthMode, "RENTLEDGER_LEDGER_MONTH_MODE")
	setBool(&cfg.Ledger.StopAtLeaseEnd, "RENTLEDGER_LEDGER_STOP_AT_LEASE_END")
	setString(&cfg.Ledger.Currency, "RENTLEDGER_LEDGER_CURRENCY")

	setString(&cfg.Logging.Level, "RENTLEDGER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "RENTLEDGER_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "RENTLEDGER_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "RENTLEDGER_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "RENTLEDGER_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "RENTLEDGER_RATE_RPS")
	setInt(&cfg.Rate.Burst, "RENTLEDGER_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "RENTLEDGER_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "RENTLEDGER_RATE_MAX_IDLE_TIME")

	// Idempotency
	setBool(&cfg.Idempotency.Enabled, "RENTLEDGER_IDEMPOTENCY_ENABLED")
	setString(&cfg.Idempotency.Bucket, "RENTLEDGER_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "RENTLEDGER_IDEMPOTENCY_TTL")

	// Auth
	setBool(&cfg.Auth.Enabled, "RENTLEDGER_AUTH_ENABLED")
	setList(&cfg.Auth.APIKeyHashes, "RENTLEDGER_AUTH_API_KEY_HASHES")

	// Telemetry
	setBool(&cfg.OTEL.Enabled, "RENTLEDGER_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "RENTLEDGER_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setFloat64(&cfg.OTEL.SampleRate, "RENTLEDGER_OTEL_SAMPLE_RATE")

	setBool(&cfg.MCP.Enabled, "RENTLEDGER_MCP_ENABLED")
	setString(&cfg.MCP.Path, "RENTLEDGER_MCP_PATH")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required when storage.driver is postgres")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
		if cfg.Postgres.MinConns < 0 || cfg.Postgres.MinConns > cfg.Postgres.MaxConns {
			return errors.New("postgres.min_conns must be between 0 and max_conns")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver %q must be postgres or memory", cfg.Storage.Driver)
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	if _, err := ledger.ParseMonthMode(cfg.Ledger.MonthMode); err != nil {
		return fmt.Errorf("ledger.month_mode: %w", err)
	}
	if cfg.Cache.LedgerTTL <= 0 {
		return errors.New("cache.ledger_ttl must be > 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Rate.CleanupInterval <= 0 {
		return errors.New("rate.cleanup_interval must be > 0")
	}
	if cfg.Idempotency.Enabled && cfg.Idempotency.TTL <= 0 {
		return errors.New("idempotency.ttl must be > 0")
	}
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeyHashes) == 0 {
		return errors.New("auth.api_key_hashes is required when auth is enabled")
	}
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint == "" {
		return errors.New("otel.endpoint is required when otel is enabled")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
	}
	if cfg.MCP.Enabled && !strings.HasPrefix(cfg.MCP.Path, "/") {
		return errors.New("mcp.path must start with /")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList splits a comma-separated value, dropping empty items.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
