package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Per-class signing secrets. The split is a containment boundary:
	// leaking one secret cannot forge the other token class.
	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessExpiry     time.Duration
	RefreshExpiry    time.Duration

	RedisAddr string

	AllowedOrigin string
}

// Load builds the configuration once at process start. A .env file is
// read explicitly if present; real environment variables win over it.
func Load() *Config {
	godotenv.Load()

	return &Config{
		ServerAddr:       getEnvOrDefault("SERVER_ADDR", ":8080"),
		DBHost:           getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:           getEnvOrDefault("DB_PORT", "5432"),
		DBUser:           getEnvOrDefault("DB_USER", "bizfinda"),
		DBPassword:       getEnvOrDefault("DB_PASSWORD", "bizfinda_dev_password"),
		DBName:           getEnvOrDefault("DB_NAME", "bizfinda"),
		JWTAccessSecret:  getEnvOrDefault("JWT_ACCESS_SECRET", generateDefaultSecret()),
		JWTRefreshSecret: getEnvOrDefault("JWT_REFRESH_SECRET", generateDefaultSecret()),
		AccessExpiry:     getDurationOrDefault("JWT_ACCESS_EXPIRES_IN", 15*time.Minute),
		RefreshExpiry:    getDurationOrDefault("JWT_REFRESH_EXPIRES_IN", 30*24*time.Hour),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		AllowedOrigin:    getEnvOrDefault("ALLOWED_ORIGIN", "http://localhost:5173"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	// Bare numbers are taken as seconds.
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// generateDefaultSecret backs a missing JWT_*_SECRET with a random
// per-process value. Each call draws fresh bytes so the access and
// refresh classes never share a default secret.
func generateDefaultSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic("config: cannot read random bytes for JWT secret: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}
