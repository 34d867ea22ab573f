package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementPaymentsRegistered()
	m.IncrementAssetsMinted()
	m.IncrementMintRejection("payer_mismatch")
	m.IncrementMintRejection("payer_mismatch")
	m.AddLevelUps(0)
	m.AddLevelUps(2)
	m.ObserveHTTP("GET", "/assets/{id}", 404, 3*time.Millisecond)
	m.IncrementRateLimited("interact")
	m.SetRateLimitDegraded(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsRegistered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssetsMinted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MintRejections.WithLabelValues("payer_mismatch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LevelUps))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("interact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDegraded))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "4xx", statusClass(409))
	assert.Equal(t, "5xx", statusClass(500))
}
