package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration, merged from file defaults and
// environment overrides.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string

	// ConfirmTokenSecret signs the confirmation links embedded in
	// verification emails. Required outside local runs.
	ConfirmTokenSecret    string
	ConfirmTokenTTL       time.Duration
	AllowEphemeralSecret  bool
	ConfirmBaseURL        string
	DownloadBaseURL       string

	DefaultPerPage int
	MaxPerPage     int

	JobProgressTTL  time.Duration
	ExportBundleTTL time.Duration

	MaxDBConns         int
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml. It is
// intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
	} `yaml:"dependencies"`
	Confirmation struct {
		BaseURL     string `yaml:"base_url"`
		DownloadURL string `yaml:"download_base_url"`
		TTLHours    int    `yaml:"ttl_hours"`
	} `yaml:"confirmation"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:            "privacy-requests-service",
		HTTPPort:             8080,
		GRPCPort:             9090,
		ConfirmTokenTTL:      48 * time.Hour,
		AllowEphemeralSecret: true,
		DefaultPerPage:       20,
		MaxPerPage:           100,
		JobProgressTTL:       24 * time.Hour,
		ExportBundleTTL:      7 * 24 * time.Hour,
		MaxDBConns:           20,
		OutboxPollInterval:   2 * time.Second,
		OutboxBatchSize:      100,
		OutboxClaimTTL:       30 * time.Second,
		OutboxMaxRetries:     5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaTopic != "" {
			cfg.KafkaTopic = f.Dependencies.KafkaTopic
		}
		if f.Confirmation.BaseURL != "" {
			cfg.ConfirmBaseURL = f.Confirmation.BaseURL
		}
		if f.Confirmation.DownloadURL != "" {
			cfg.DownloadBaseURL = f.Confirmation.DownloadURL
		}
		if f.Confirmation.TTLHours > 0 {
			cfg.ConfirmTokenTTL = time.Duration(f.Confirmation.TTLHours) * time.Hour
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.ConfirmTokenSecret = envOrDefault("CONFIRM_TOKEN_SECRET", cfg.ConfirmTokenSecret)
	cfg.AllowEphemeralSecret = envBool("CONFIRM_TOKEN_ALLOW_EPHEMERAL", cfg.AllowEphemeralSecret)
	cfg.ConfirmBaseURL = envOrDefault("CONFIRM_BASE_URL", cfg.ConfirmBaseURL)
	cfg.DownloadBaseURL = envOrDefault("DOWNLOAD_BASE_URL", cfg.DownloadBaseURL)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.DefaultPerPage = envInt("LIST_DEFAULT_PER_PAGE", cfg.DefaultPerPage)
	cfg.MaxPerPage = envInt("LIST_MAX_PER_PAGE", cfg.MaxPerPage)
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)

	cfg.ConfirmTokenTTL = time.Duration(envInt("CONFIRM_TOKEN_TTL_HOURS", int(cfg.ConfirmTokenTTL.Hours()))) * time.Hour
	cfg.JobProgressTTL = time.Duration(envInt("JOB_PROGRESS_TTL_HOURS", int(cfg.JobProgressTTL.Hours()))) * time.Hour
	cfg.ExportBundleTTL = time.Duration(envInt("EXPORT_BUNDLE_TTL_HOURS", int(cfg.ExportBundleTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.ConfirmTokenSecret == "" && !cfg.AllowEphemeralSecret {
		return Config{}, fmt.Errorf("missing CONFIRM_TOKEN_SECRET")
	}

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
