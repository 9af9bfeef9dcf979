package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "council.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("COUNCIL_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
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
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
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
	setString(&cfg.Server.Port, "COUNCIL_PORT")
	setString(&cfg.Server.CORSOrigin, "COUNCIL_CORS_ORIGIN")
	setString(&cfg.Server.BaseURL, "COUNCIL_BASE_URL")
	setInt64(&cfg.Server.MaxBodyBytes, "COUNCIL_MAX_BODY_BYTES")
	setDuration(&cfg.Server.ShutdownTimeout, "COUNCIL_SHUTDOWN_TIMEOUT")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "COUNCIL_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "COUNCIL_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "COUNCIL_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "COUNCIL_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "COUNCIL_PG_HEALTH_CHECK")
	setString(&cfg.Storage.Driver, "COUNCIL_STORAGE")

	setBool(&cfg.NATS.Enabled, "COUNCIL_NATS_ENABLED")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "COUNCIL_NATS_STREAM")

	setInt64(&cfg.Cache.L1MaxSizeMB, "COUNCIL_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "COUNCIL_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "COUNCIL_CACHE_L2_TTL")
	setDuration(&cfg.Cache.LeaderboardTTL, "COUNCIL_CACHE_LEADERBOARD_TTL")

	setString(&cfg.Logging.Level, "COUNCIL_LOG_LEVEL")
	setString(&cfg.Logging.Service, "COUNCIL_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "COUNCIL_LOG_ASYNC")
	setInt(&cfg.Logging.BufferSize, "COUNCIL_LOG_BUFFER_SIZE")

	setInt(&cfg.Breaker.MaxFailures, "COUNCIL_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "COUNCIL_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "COUNCIL_RATE_RPS")
	setInt(&cfg.Rate.Burst, "COUNCIL_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "COUNCIL_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "COUNCIL_RATE_MAX_IDLE_TIME")

	setBool(&cfg.OTEL.Enabled, "COUNCIL_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "COUNCIL_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setFloat64(&cfg.OTEL.SampleRate, "COUNCIL_OTEL_SAMPLE_RATE")

	setBool(&cfg.MCP.Enabled, "COUNCIL_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "COUNCIL_MCP_ADDR")

	setString(&cfg.Notify.SlackWebhookURL, "COUNCIL_NOTIFY_SLACK_WEBHOOK_URL")
	setString(&cfg.Notify.DiscordWebhookURL, "COUNCIL_NOTIFY_DISCORD_WEBHOOK_URL")
	setDuration(&cfg.Notify.Timeout, "COUNCIL_NOTIFY_TIMEOUT")

	setInt(&cfg.Scoring.Participation, "COUNCIL_POINTS_PARTICIPATION")
	setInt(&cfg.Scoring.Win, "COUNCIL_POINTS_WIN")
	setInt(&cfg.Scoring.CritiqueBonus, "COUNCIL_POINTS_CRITIQUE_BONUS")

	setInt(&cfg.Limits.PromptChars, "COUNCIL_LIMIT_PROMPT_CHARS")
	setInt(&cfg.Limits.ProposalChars, "COUNCIL_LIMIT_PROPOSAL_CHARS")
	setInt(&cfg.Limits.CritiqueChars, "COUNCIL_LIMIT_CRITIQUE_CHARS")
	setInt(&cfg.Limits.ActivityDefault, "COUNCIL_ACTIVITY_DEFAULT")
	setInt(&cfg.Limits.ActivityMax, "COUNCIL_ACTIVITY_MAX")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be postgres or memory, got %q", cfg.Storage.Driver)
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
	}
	if cfg.Notify.Timeout <= 0 {
		return errors.New("notify.timeout must be > 0")
	}
	if cfg.Scoring.Participation < 0 || cfg.Scoring.Win < 0 || cfg.Scoring.CritiqueBonus < 0 {
		return errors.New("scoring points must be >= 0")
	}
	if cfg.Limits.PromptChars < 1 || cfg.Limits.ProposalChars < 1 || cfg.Limits.CritiqueChars < 1 {
		return errors.New("limits.*_chars must be >= 1")
	}
	if cfg.Limits.ActivityDefault < 1 || cfg.Limits.ActivityMax < cfg.Limits.ActivityDefault {
		return errors.New("limits.activity_default must be >= 1 and <= limits.activity_max")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
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
