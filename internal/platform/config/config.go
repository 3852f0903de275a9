// Package config loads all runtime configuration from the environment so
// main stays lean. Every knob has a development-safe default; only the
// Postgres DSN, Redis URL and Kafka brokers are optional, and leaving them
// empty selects the in-memory fallbacks.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	JWT      JWT
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	MetricsAddr     string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type Postgres struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxMaxRetries    int
}

type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ResultsTTL bounds staleness of cached election results.
	ResultsTTL time.Duration
}

type Kafka struct {
	Brokers    []string
	AuditTopic string
}

type JWT struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("CIVITAS_ADDR", ":8080"),
			MetricsAddr:     envString("CIVITAS_METRICS_ADDR", ":9090"),
			RequestTimeout:  envDuration("CIVITAS_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: envDuration("CIVITAS_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN:             os.Getenv("CIVITAS_POSTGRES_DSN"),
			MaxOpenConns:    envInt("CIVITAS_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("CIVITAS_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("CIVITAS_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
			TxMaxRetries:    envInt("CIVITAS_POSTGRES_TX_MAX_RETRIES", 3),
		},
		Redis: Redis{
			URL:          os.Getenv("CIVITAS_REDIS_URL"),
			PoolSize:     envInt("CIVITAS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CIVITAS_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CIVITAS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CIVITAS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CIVITAS_REDIS_WRITE_TIMEOUT", 3*time.Second),
			ResultsTTL:   envDuration("CIVITAS_REDIS_RESULTS_TTL", 30*time.Second),
		},
		Kafka: Kafka{
			Brokers:    envList("CIVITAS_KAFKA_BROKERS"),
			AuditTopic: envString("CIVITAS_KAFKA_AUDIT_TOPIC", "civitas.audit"),
		},
		JWT: JWT{
			// Development default only; must be overridden in production.
			SigningKey: envString("CIVITAS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envString("CIVITAS_JWT_ISSUER", "civitas"),
			Audience:   envString("CIVITAS_JWT_AUDIENCE", "civitas-api"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
