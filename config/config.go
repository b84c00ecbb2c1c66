// Package config loads runtime settings from the environment, optionally overlaid by a YAML file.
// Load fails fast when a setting required by the selected backend mode is missing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

type QuotaConfig struct {
	Enforce bool `yaml:"enforce"`
	Limit   int  `yaml:"limit"`
}

type Config struct {
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	Mode       string `yaml:"backend_mode"`
	BackendURL string `yaml:"backend_url"`
	JWTSecret  string `yaml:"-"`

	DBDSN       string   `yaml:"db_dsn"`
	RedisURL    string   `yaml:"redis_url"`
	RabbitMQURL string   `yaml:"rabbitmq_url"`
	S3          S3Config `yaml:"s3"`

	GeminiAPIKey   string `yaml:"-"`
	GeminiModel    string `yaml:"gemini_model"`
	GeminiProject  string `yaml:"gemini_project"`
	GeminiLocation string `yaml:"gemini_location"`

	Quota            QuotaConfig   `yaml:"quota"`
	Tips             []string      `yaml:"tips"`
	ResultTTL        time.Duration `yaml:"result_ttl"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	TipInterval      time.Duration `yaml:"tip_interval"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
}

func defaults() Config {
	return Config{
		Port:             "8080",
		Env:              "development",
		LogLevel:         "info",
		Mode:             ModeRemote,
		GeminiModel:      "gemini-2.5-flash",
		Quota:            QuotaConfig{Enforce: false, Limit: 2},
		ResultTTL:        6 * time.Hour,
		ProgressInterval: 350 * time.Millisecond,
		TipInterval:      3 * time.Second,
		HTTPTimeout:      120 * time.Second,
		S3:               S3Config{Region: "auto"},
	}
}

// Load builds the Config: defaults, then CONFIG_PATH yaml (if set), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("APP_ENV", &cfg.Env)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("BACKEND_MODE", &cfg.Mode)
	str("BACKEND_URL", &cfg.BackendURL)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("DB_DSN", &cfg.DBDSN)
	str("REDIS_URL", &cfg.RedisURL)
	str("RABBITMQ_URL", &cfg.RabbitMQURL)
	str("S3_ENDPOINT", &cfg.S3.Endpoint)
	str("S3_BUCKET", &cfg.S3.Bucket)
	str("S3_ACCESS_KEY", &cfg.S3.AccessKey)
	str("S3_SECRET_KEY", &cfg.S3.SecretKey)
	str("S3_REGION", &cfg.S3.Region)
	str("GEMINI_API_KEY", &cfg.GeminiAPIKey)
	str("GEMINI_MODEL", &cfg.GeminiModel)
	str("GEMINI_PROJECT", &cfg.GeminiProject)
	str("GEMINI_LOCATION", &cfg.GeminiLocation)

	if v := os.Getenv("QUOTA_ENFORCE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QUOTA_ENFORCE: %w", err)
		}
		cfg.Quota.Enforce = b
	}
	if v := os.Getenv("QUOTA_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QUOTA_LIMIT: %w", err)
		}
		cfg.Quota.Limit = n
	}

	for key, dst := range map[string]*time.Duration{
		"RESULT_TTL":        &cfg.ResultTTL,
		"PROGRESS_INTERVAL": &cfg.ProgressInterval,
		"TIP_INTERVAL":      &cfg.TipInterval,
		"HTTP_TIMEOUT":      &cfg.HTTPTimeout,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// Validate checks the settings the selected mode depends on.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Mode {
	case ModeRemote:
		if c.BackendURL == "" {
			return fmt.Errorf("BACKEND_URL is required when BACKEND_MODE=remote")
		}
	case ModeLocal:
		if c.GeminiAPIKey == "" && c.GeminiProject == "" {
			return fmt.Errorf("GEMINI_API_KEY or GEMINI_PROJECT is required when BACKEND_MODE=local")
		}
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required when BACKEND_MODE=local")
		}
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BACKEND_MODE=local")
		}
	default:
		return fmt.Errorf("unknown BACKEND_MODE %q", c.Mode)
	}
	if c.Quota.Limit < 0 {
		return fmt.Errorf("QUOTA_LIMIT must not be negative")
	}
	if c.ProgressInterval <= 0 || c.TipInterval <= 0 {
		return fmt.Errorf("PROGRESS_INTERVAL and TIP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
