package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	DatabaseURL     string
	RedisURL        string
	KafkaBrokers    string
	JWTSigningKey   string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	DefaultPageSize int
	MaxPageSize     int
	PhotoBucket     string
	ObjectStoreRoot string
	MaxPhotoBytes   int64
	AuditTopic      string

	// Bootstrap admin account, created on startup when absent. Seeding is
	// skipped when the username is empty.
	AdminUsername string
	AdminPassword string
}

// RedisConfig holds Redis connection tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns sensible pool defaults for the given URL.
func DefaultRedisConfig(url string) RedisConfig {
	return RedisConfig{
		URL:          url,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            getEnv("ROSTER_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		JWTSigningKey:   os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:       getEnv("JWT_ISSUER", "roster"),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		DefaultPageSize: getInt("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:     getInt("MAX_PAGE_SIZE", 200),
		PhotoBucket:     getEnv("PHOTO_BUCKET", "roster-files"),
		ObjectStoreRoot: getEnv("OBJECT_STORE_ROOT", "/var/lib/roster/objects"),
		MaxPhotoBytes:   int64(getInt("MAX_PHOTO_BYTES", 5<<20)),
		AuditTopic:      getEnv("AUDIT_TOPIC", "roster.audit"),
		AdminUsername:   os.Getenv("ROSTER_ADMIN_USERNAME"),
		AdminPassword:   os.Getenv("ROSTER_ADMIN_PASSWORD"),
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
