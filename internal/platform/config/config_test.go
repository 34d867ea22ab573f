package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.State.Backend)
	assert.Equal(t, 5*time.Second, cfg.State.TxTimeout)
	assert.Equal(t, "anima.audit", cfg.Kafka.AuditTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Snapshot.Interval)
	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.False(t, cfg.Limits.Disabled)
	assert.Equal(t, time.Minute, cfg.Limits.Window)
	assert.Equal(t, 30, cfg.Limits.PaymentRequests)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ANIMA_ADDR", ":9090")
	t.Setenv("STATE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://anima@localhost/anima")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SNAPSHOT_INTERVAL", "1m")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendPostgres, cfg.State.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Snapshot.Interval)
}

func TestValidate(t *testing.T) {
	t.Run("postgres requires database url", func(t *testing.T) {
		t.Setenv("STATE_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("STATE_BACKEND", "sqlite")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("sample ratio out of range", func(t *testing.T) {
		t.Setenv("OTEL_SAMPLE_RATIO", "1.5")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("non-positive rate limit window", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_WINDOW", "0s")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("unknown log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "chatty")
		_, err := FromEnv()
		require.Error(t, err)
	})
}

func TestFromEnv_BrokerListIsCompacted(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, k2:9092,,k1:9092 ")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestCompactList(t *testing.T) {
	assert.Nil(t, compactList(nil))
	assert.Nil(t, compactList([]string{"", "  "}))
	assert.Equal(t, []string{"a", "b"}, compactList([]string{"a", " b", "a "}))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}
