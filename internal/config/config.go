package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the educational assistant service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	SessionRetention         time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	GatewayMode       string
	GatewayBaseURL    string
	GatewayAPIKey     string
	GatewayModel      string
	GatewayTimeout    time.Duration
	GatewayMaxRetries int

	DatabaseURL string

	AdminUsername string
	AdminPassword string

	DefaultLanguage string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "eduassist"),
		AllowAnyOrigin:   false,
		GatewayMode:      envOrDefault("GATEWAY_MODE", "auto"),
		GatewayBaseURL:   envOrDefault("GATEWAY_BASE_URL", "https://api.openai.com/v1"),
		GatewayAPIKey:    envTrimmed("GATEWAY_API_KEY"),
		GatewayModel:     envOrDefault("GATEWAY_MODEL", "gpt-4o-mini"),
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		AdminUsername:    envTrimmed("ADMIN_USERNAME"),
		AdminPassword:    envTrimmed("ADMIN_PASSWORD"),
		DefaultLanguage:  envOrDefault("DEFAULT_LANGUAGE", "English"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		SessionRetention:         time.Minute,
		GatewayTimeout:           60 * time.Second,
		GatewayMaxRetries:        2,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionRetention, err = durationFromEnv("APP_SESSION_RETENTION", cfg.SessionRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.GatewayTimeout, err = durationFromEnv("GATEWAY_TIMEOUT", cfg.GatewayTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GatewayMaxRetries, err = intFromEnv("GATEWAY_MAX_RETRIES", cfg.GatewayMaxRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.GatewayTimeout < time.Second {
		return Config{}, fmt.Errorf("GATEWAY_TIMEOUT must be at least 1s")
	}
	if cfg.GatewayMaxRetries < 0 {
		return Config{}, fmt.Errorf("GATEWAY_MAX_RETRIES must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.GatewayMode)) {
	case "auto", "openai", "mock":
	default:
		return Config{}, fmt.Errorf("GATEWAY_MODE must be one of auto|openai|mock, got %q", cfg.GatewayMode)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
