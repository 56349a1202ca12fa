package config

import (
	"strings"
	"time"
)

// SessionServiceConfig holds the settings of the upstream session service
type SessionServiceConfig struct {
	BaseURL   string `json:"baseUrl"`
	Token     string `json:"-"` // Never serialize
	TimeoutMS int    `json:"timeoutMs"`
}

// DefaultSessionServiceConfig reads the session service settings from the environment
func DefaultSessionServiceConfig() *SessionServiceConfig {
	return &SessionServiceConfig{
		BaseURL:   strings.TrimRight(getEnvOrDefault("SESSION_SERVICE_URL", "http://localhost:8000/api"), "/"),
		Token:     getEnvOrDefault("SESSION_SERVICE_TOKEN", ""),
		TimeoutMS: getEnvInt("SESSION_SERVICE_TIMEOUT_MS", 10000),
	}
}

// IsEnabled returns true if a service URL is configured
func (c *SessionServiceConfig) IsEnabled() bool {
	return c.BaseURL != ""
}

// Timeout returns the per-request timeout
func (c *SessionServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
