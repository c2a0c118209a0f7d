package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names accepted in APP_ENV
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config holds the application configuration
type Config struct {
	Env  string
	Port int

	Webhook struct {
		Secret         string
		ProcessTimeout time.Duration // upper bound the HTTP handler waits for the pipeline
	}
	GitHub struct {
		AppID          int64
		PrivateKeyPath string
		Token          string // personal access token fallback for local development
		APIURL         string // empty for github.com
	}
	Dedup struct {
		RedisURL  string // empty keeps delivery IDs in memory
		Retention time.Duration
	}
	Rules struct {
		File string // optional YAML rules file
	}
	DryRun bool

	Logging struct {
		Level      string
		JSONFormat bool
	}
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// UsesAppAuth reports whether GitHub App credentials are configured
func (c *Config) UsesAppAuth() bool {
	return c.GitHub.AppID > 0 && c.GitHub.PrivateKeyPath != ""
}

// Load reads configuration from the environment. In development a .env
// file in the working directory is loaded first; variables already set in
// the environment win over the file.
func Load() (*Config, error) {
	if getEnv("APP_ENV", EnvDevelopment) == EnvDevelopment {
		_ = godotenv.Load()
	}

	cfg := &Config{}
	cfg.Env = getEnv("APP_ENV", EnvDevelopment)

	port, err := strconv.Atoi(getEnv("PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("PORT must be a number: %w", err)
	}
	cfg.Port = port

	cfg.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	if cfg.Webhook.ProcessTimeout, err = getEnvDuration("PROCESS_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}

	if raw := os.Getenv("APP_ID"); raw != "" {
		appID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("APP_ID must be a number: %w", err)
		}
		cfg.GitHub.AppID = appID
	}
	cfg.GitHub.PrivateKeyPath = os.Getenv("PRIVATE_KEY_PATH")
	cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	cfg.GitHub.APIURL = os.Getenv("GITHUB_API_URL")

	cfg.Dedup.RedisURL = os.Getenv("REDIS_URL")
	if cfg.Dedup.Retention, err = getEnvDuration("DEDUP_RETENTION", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.Rules.File = os.Getenv("RULES_FILE")
	if cfg.DryRun, err = getEnvBool("DRY_RUN", false); err != nil {
		return nil, err
	}

	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	if cfg.Logging.JSONFormat, err = getEnvBool("LOG_JSON", cfg.Env == EnvProduction); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig checks if the required configuration is present
func validateConfig(cfg *Config) error {
	switch cfg.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return fmt.Errorf("APP_ENV must be one of development, test, production: got %q", cfg.Env)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", cfg.Port)
	}

	if cfg.Webhook.Secret == "" {
		return fmt.Errorf("webhook secret is required")
	}

	if cfg.Webhook.ProcessTimeout <= 0 {
		return fmt.Errorf("PROCESS_TIMEOUT must be positive")
	}

	if cfg.GitHub.AppID > 0 && cfg.GitHub.PrivateKeyPath == "" {
		return fmt.Errorf("PRIVATE_KEY_PATH is required when APP_ID is set")
	}

	if !cfg.DryRun && !cfg.UsesAppAuth() && cfg.GitHub.Token == "" {
		return fmt.Errorf("github credentials are required: set APP_ID and PRIVATE_KEY_PATH, or GITHUB_TOKEN")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
