package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend selects where the payment/asset state lives.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr       string `env:"ANIMA_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	AdminToken string `env:"ADMIN_TOKEN"`

	JWT      JWTConfig
	State    StateConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Snapshot SnapshotConfig
	Tracing  TracingConfig
	Limits   RateLimitConfig
}

// JWTConfig holds token verification settings. Tokens are minted by an external
// identity provider (or cmd/devtoken in development).
type JWTConfig struct {
	SigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string `env:"JWT_ISSUER" envDefault:"anima"`
	Audience   string `env:"JWT_AUDIENCE" envDefault:"anima-api"`
}

type StateConfig struct {
	Backend     Backend       `env:"STATE_BACKEND" envDefault:"memory"`
	DatabaseURL string        `env:"DATABASE_URL"`
	TxTimeout   time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
}

type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type KafkaConfig struct {
	Brokers            []string      `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic         string        `env:"AUDIT_TOPIC" envDefault:"anima.audit"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	ConsumerGroup      string        `env:"AUDIT_CONSUMER_GROUP" envDefault:"anima-audit-consumer"`
	// RejectionAlertThreshold is how many mint rejections one principal may
	// collect within RejectionAlertWindow before the consumer raises an alert.
	RejectionAlertThreshold int           `env:"REJECTION_ALERT_THRESHOLD" envDefault:"5"`
	RejectionAlertWindow    time.Duration `env:"REJECTION_ALERT_WINDOW" envDefault:"10m"`
}

// SnapshotConfig controls periodic persistence of the in-memory state to Redis.
type SnapshotConfig struct {
	Key      string        `env:"SNAPSHOT_KEY" envDefault:"anima:state:snapshot"`
	Interval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
}

// TracingConfig enables OTLP span export. Tracing is off when Endpoint is empty.
type TracingConfig struct {
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// RateLimitConfig sets per-caller budgets for the write endpoints. Windows
// are shared through Redis when REDIS_URL is set.
type RateLimitConfig struct {
	Disabled         bool          `env:"RATE_LIMIT_DISABLED"`
	Window           time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	PaymentRequests  int           `env:"RATE_LIMIT_PAYMENT_REQUESTS" envDefault:"30"`
	InteractRequests int           `env:"RATE_LIMIT_INTERACT_REQUESTS" envDefault:"120"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Kafka.Brokers = compactList(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot start.
func (c Server) Validate() error {
	switch c.State.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.State.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STATE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.State.Backend)
	}
	if c.JWT.SigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY must not be empty")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1")
	}
	if !c.Limits.Disabled && c.Limits.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// compactList trims entries and drops blanks and repeats, keeping order.
// "k1, k2,,k1" becomes [k1 k2].
func compactList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseLevel maps LOG_LEVEL onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown LOG_LEVEL %q", s)
	}
}
