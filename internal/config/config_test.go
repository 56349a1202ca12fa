package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "REDIS_URI", "MONGO_URI", "CHECKPOINT_TTL_HOURS", "SESSION_SERVICE_URL", "SESSION_SERVICE_TIMEOUT_MS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.CheckpointTTL != 7*24*time.Hour {
		t.Errorf("CheckpointTTL = %v", cfg.CheckpointTTL)
	}
	if cfg.MongoEnabled() {
		t.Errorf("mongo enabled without MONGO_URI")
	}
	if cfg.SessionService.Timeout() != 10*time.Second {
		t.Errorf("service timeout = %v", cfg.SessionService.Timeout())
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_URI", "redis://cache:6380")
	t.Setenv("SESSION_SERVICE_URL", "https://backend.example/api/")
	t.Setenv("SESSION_SERVICE_TIMEOUT_MS", "2500")
	t.Setenv("STORE_IDLE_MINUTES", "nope")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	cfg := Load()

	if cfg.RedisURI != "cache:6380" {
		t.Errorf("RedisURI = %q", cfg.RedisURI)
	}
	if cfg.SessionService.BaseURL != "https://backend.example/api" {
		t.Errorf("BaseURL = %q", cfg.SessionService.BaseURL)
	}
	if cfg.SessionService.Timeout() != 2500*time.Millisecond {
		t.Errorf("timeout = %v", cfg.SessionService.Timeout())
	}
	if cfg.StoreIdle != 120*time.Minute {
		t.Errorf("StoreIdle = %v, want default on bad input", cfg.StoreIdle)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestSessionServiceEnabled(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"https://backend.example/api", true},
		{"/", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Setenv("SESSION_SERVICE_URL", tt.url)
			if got := DefaultSessionServiceConfig().IsEnabled(); got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
