package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the server configuration
type Config struct {
	Port           string
	RedisURI       string
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	CheckpointTTL  time.Duration
	StoreIdle      time.Duration
	AllowedOrigins []string
	SessionService *SessionServiceConfig
}

// Load reads .env if present, then the environment
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env: %v", err)
	}

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		RedisURI:       strings.TrimPrefix(getEnvOrDefault("REDIS_URI", "redis:6379"), "redis://"),
		MongoURI:       getEnvOrDefault("MONGO_URI", ""),
		MongoDB:        getEnvOrDefault("MONGO_DB", "examsim"),
		JWTSecret:      getEnvOrDefault("JWT_SECRET", "super-secret-key-change-in-production"),
		CheckpointTTL:  time.Duration(getEnvInt("CHECKPOINT_TTL_HOURS", 168)) * time.Hour,
		StoreIdle:      time.Duration(getEnvInt("STORE_IDLE_MINUTES", 120)) * time.Minute,
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		SessionService: DefaultSessionServiceConfig(),
	}
	if os.Getenv("JWT_SECRET") == "" {
		log.Println("Warning: JWT_SECRET not set, using default")
	}
	return cfg
}

// MongoEnabled reports whether result archiving is configured
func (c *Config) MongoEnabled() bool {
	return c.MongoURI != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, defaultValue)
		return defaultValue
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
