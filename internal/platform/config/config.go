// Package config builds process configuration from the environment.
//
// The server reads plain environment variables (optionally seeded from a .env
// file by cmd/server); the device agent uses viper, see agent.go.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"presence/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// TokenSigningKey signs scan tokens and offline tickets (HS256).
	TokenSigningKey string
	// CodeMasterSecret derives per-event rotating-code secrets.
	CodeMasterSecret string

	RateLimit RateLimitConfig
	Ledger    LedgerConfig

	OfflineTicketTTL time.Duration
	ScanTokenTTL     time.Duration
	ClockSkew        time.Duration
	CodeTolerance    int
}

// RedisConfig holds go-redis connection settings. An empty URL selects the
// in-memory attempt store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// RateLimitConfig tunes the check-in abuse gate.
type RateLimitConfig struct {
	MaxAttempts      int
	Window           time.Duration
	Cooldown         time.Duration
	FailureThreshold int
}

// LedgerConfig tunes the remote ledger circuit breaker.
type LedgerConfig struct {
	BreakerFailures  int
	BreakerSuccesses int
}

// IsProduction reports whether the server runs in production mode.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:        getEnv("PRESENCE_ADDR", ":8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    strings.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "presence.audit"),
		},
		TokenSigningKey:  os.Getenv("TOKEN_SIGNING_KEY"),
		CodeMasterSecret: os.Getenv("CODE_MASTER_SECRET"),
		RateLimit: RateLimitConfig{
			MaxAttempts:      getInt("RATE_LIMIT_MAX_ATTEMPTS", 5),
			Window:           getDuration("RATE_LIMIT_WINDOW", 5*time.Minute),
			Cooldown:         getDuration("RATE_LIMIT_COOLDOWN", 5*time.Minute),
			FailureThreshold: getInt("RATE_LIMIT_FAILURE_THRESHOLD", 3),
		},
		Ledger: LedgerConfig{
			BreakerFailures:  getInt("LEDGER_BREAKER_FAILURES", 5),
			BreakerSuccesses: getInt("LEDGER_BREAKER_SUCCESSES", 3),
		},
		OfflineTicketTTL: getDuration("OFFLINE_TICKET_TTL", 24*time.Hour),
		ScanTokenTTL:     getDuration("SCAN_TOKEN_TTL", 5*time.Minute),
		ClockSkew:        getDuration("CLOCK_SKEW", 30*time.Second),
		CodeTolerance:    getInt("CODE_TOLERANCE", 2),
	}

	if cfg.TokenSigningKey == "" || cfg.CodeMasterSecret == "" {
		if cfg.IsProduction() {
			return Server{}, fmt.Errorf("TOKEN_SIGNING_KEY and CODE_MASTER_SECRET are required in production")
		}
		// Development defaults; never used in production.
		if cfg.TokenSigningKey == "" {
			cfg.TokenSigningKey = "dev-token-signing-key-change-me"
		}
		if cfg.CodeMasterSecret == "" {
			cfg.CodeMasterSecret = "dev-code-master-secret-change-me"
		}
	}
	if cfg.RateLimit.MaxAttempts <= 0 {
		return Server{}, fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be positive, got %d", cfg.RateLimit.MaxAttempts)
	}
	if cfg.CodeTolerance <= 0 {
		return Server{}, fmt.Errorf("CODE_TOLERANCE must be positive, got %d", cfg.CodeTolerance)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
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

func getDuration(key string, fallback time.Duration) time.Duration {
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
