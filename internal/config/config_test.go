package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.GatewayMode != "auto" {
		t.Fatalf("GatewayMode = %q, want %q", cfg.GatewayMode, "auto")
	}
	if cfg.GatewayModel != "gpt-4o-mini" {
		t.Fatalf("GatewayModel = %q, want %q", cfg.GatewayModel, "gpt-4o-mini")
	}
	if cfg.SessionInactivityTimeout != 30*time.Minute {
		t.Fatalf("SessionInactivityTimeout = %v, want 30m", cfg.SessionInactivityTimeout)
	}
	if cfg.DefaultLanguage != "English" {
		t.Fatalf("DefaultLanguage = %q, want %q", cfg.DefaultLanguage, "English")
	}
}

func TestLoadExplicitGatewaySettings(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("GATEWAY_MODE", "openai")
	t.Setenv("GATEWAY_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("GATEWAY_TIMEOUT", "10s")
	t.Setenv("GATEWAY_MAX_RETRIES", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GatewayBaseURL != "http://localhost:11434/v1" {
		t.Fatalf("GatewayBaseURL = %q, want explicit value", cfg.GatewayBaseURL)
	}
	if cfg.GatewayTimeout != 10*time.Second {
		t.Fatalf("GatewayTimeout = %v, want 10s", cfg.GatewayTimeout)
	}
	if cfg.GatewayMaxRetries != 0 {
		t.Fatalf("GatewayMaxRetries = %d, want 0", cfg.GatewayMaxRetries)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad duration", key: "GATEWAY_TIMEOUT", value: "soon"},
		{name: "bad int", key: "GATEWAY_MAX_RETRIES", value: "many"},
		{name: "bad bool", key: "APP_ALLOW_ANY_ORIGIN", value: "maybe"},
		{name: "bad mode", key: "GATEWAY_MODE", value: "grpc"},
		{name: "too short inactivity", key: "APP_SESSION_INACTIVITY_TIMEOUT", value: "1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_SESSION_RETENTION",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"GATEWAY_MODE",
		"GATEWAY_BASE_URL",
		"GATEWAY_API_KEY",
		"GATEWAY_MODEL",
		"GATEWAY_TIMEOUT",
		"GATEWAY_MAX_RETRIES",
		"DATABASE_URL",
		"ADMIN_USERNAME",
		"ADMIN_PASSWORD",
		"DEFAULT_LANGUAGE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
