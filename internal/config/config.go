// Package config loads the iamd configuration from an optional YAML file
// followed by IAM_* environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codewandler/iam-go/core/iam"
)

type Nats struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Replicas      int    `yaml:"replicas"`
	// CheckpointBucket is the KV bucket holding projection checkpoints.
	CheckpointBucket string `yaml:"checkpoint_bucket"`
}

type Postgres struct {
	// DSN selects the postgres read model. Empty keeps it in memory.
	DSN string `yaml:"dsn"`
	// CacheSize bounds the read-through entity cache. Zero disables it.
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type Bootstrap struct {
	TenantID      string `yaml:"tenant_id"`
	AdminName     string `yaml:"admin_name"`
	AdminPassword string `yaml:"admin_password"`
	AdminRole     string `yaml:"admin_role"`
}

type Config struct {
	LogLevel        slog.Level         `yaml:"log_level"`
	MetricsAddr     string             `yaml:"metrics_addr"`
	ShutdownTimeout time.Duration      `yaml:"shutdown_timeout"`
	Nats            Nats               `yaml:"nats"`
	Postgres        Postgres           `yaml:"postgres"`
	Tenant          iam.TenantSettings `yaml:"tenant"`
	Bootstrap       Bootstrap          `yaml:"bootstrap"`
}

func Default() Config {
	return Config{
		LogLevel:        slog.LevelInfo,
		MetricsAddr:     ":9090",
		ShutdownTimeout: 10 * time.Second,
		Nats: Nats{
			URL:              "nats://127.0.0.1:4222",
			StreamName:       "IAM_ES",
			SubjectPrefix:    "iam.es",
			Replicas:         1,
			CheckpointBucket: "iam_checkpoints",
		},
		Postgres:  Postgres{CacheSize: 10_000, CacheTTL: 5 * time.Minute},
		Tenant:    iam.DefaultTenantSettings(),
		Bootstrap: Bootstrap{AdminRole: "admin"},
	}
}

// Load reads path when it exists. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if raw := os.Getenv("IAM_LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("IAM_LOG_LEVEL: %w", err)
		}
	}
	cfg.MetricsAddr = envString("IAM_METRICS_ADDR", cfg.MetricsAddr)
	cfg.ShutdownTimeout = envDuration("IAM_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.Nats.URL = envString("IAM_NATS_URL", cfg.Nats.URL)
	cfg.Nats.StreamName = envString("IAM_NATS_STREAM", cfg.Nats.StreamName)
	cfg.Nats.SubjectPrefix = envString("IAM_NATS_SUBJECT_PREFIX", cfg.Nats.SubjectPrefix)
	cfg.Nats.Replicas = envInt("IAM_NATS_REPLICAS", cfg.Nats.Replicas)
	cfg.Nats.CheckpointBucket = envString("IAM_NATS_CHECKPOINT_BUCKET", cfg.Nats.CheckpointBucket)
	cfg.Postgres.DSN = envString("IAM_POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.Postgres.CacheSize = envInt("IAM_POSTGRES_CACHE_SIZE", cfg.Postgres.CacheSize)
	cfg.Postgres.CacheTTL = envDuration("IAM_POSTGRES_CACHE_TTL", cfg.Postgres.CacheTTL)
	cfg.Tenant.User.RequireUniqueEmail = envBool("IAM_REQUIRE_UNIQUE_EMAIL", cfg.Tenant.User.RequireUniqueEmail)
	cfg.Tenant.User.RequireConfirmedAccount = envBool("IAM_REQUIRE_CONFIRMED_ACCOUNT", cfg.Tenant.User.RequireConfirmedAccount)
	cfg.Bootstrap.TenantID = envString("IAM_BOOTSTRAP_TENANT", cfg.Bootstrap.TenantID)
	cfg.Bootstrap.AdminName = envString("IAM_BOOTSTRAP_ADMIN_NAME", cfg.Bootstrap.AdminName)
	cfg.Bootstrap.AdminPassword = envString("IAM_BOOTSTRAP_ADMIN_PASSWORD", cfg.Bootstrap.AdminPassword)

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Nats.URL == "" {
		return fmt.Errorf("nats url is required")
	}
	if c.Nats.SubjectPrefix == "" || c.Nats.StreamName == "" {
		return fmt.Errorf("nats stream name and subject prefix are required")
	}
	if _, err := iam.ParseTenantID(c.Bootstrap.TenantID); err != nil {
		return fmt.Errorf("bootstrap tenant: %w", err)
	}
	if (c.Bootstrap.AdminName == "") != (c.Bootstrap.AdminPassword == "") {
		return fmt.Errorf("bootstrap admin requires both name and password")
	}
	return nil
}

func envString(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
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
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
