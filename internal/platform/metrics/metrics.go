package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics holds the Prometheus collectors for the mint flow.
type Metrics struct {
	PaymentsRegistered prometheus.Counter
	AssetsMinted       prometheus.Counter
	MintRejections     *prometheus.CounterVec
	Interactions       prometheus.Counter
	LevelUps           prometheus.Counter
	MintDuration       prometheus.Histogram
	HTTPDuration       *prometheus.HistogramVec
	RateLimited        *prometheus.CounterVec
	RateLimitDegraded  prometheus.Gauge
	AuditConsumed      *prometheus.CounterVec
	SecurityAlerts     *prometheus.CounterVec
}

// New creates and registers all metrics with the default registry.
// Call it once per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PaymentsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "anima_payments_registered_total",
			Help: "Total number of payment intents registered or refreshed",
		}),
		AssetsMinted: factory.NewCounter(prometheus.CounterOpts{
			Name: "anima_assets_minted_total",
			Help: "Total number of assets minted",
		}),
		MintRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_mint_rejections_total",
			Help: "Mint attempts rejected, by reason code",
		}, []string{"reason"}),
		Interactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "anima_interactions_total",
			Help: "Total number of successful interactions",
		}),
		LevelUps: factory.NewCounter(prometheus.CounterOpts{
			Name: "anima_level_ups_total",
			Help: "Total number of levels gained across all assets",
		}),
		MintDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "anima_mint_duration_seconds",
			Help:    "Duration of Mint operations including the state transaction",
			Buckets: durationBuckets,
		}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anima_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: durationBuckets,
		}, []string{"method", "route", "status"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_rate_limited_total",
			Help: "Requests rejected by the per-caller rate limiter, by endpoint class",
		}, []string{"class"}),
		RateLimitDegraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "anima_rate_limit_degraded",
			Help: "1 while the rate limiter serves from its in-memory fallback",
		}),
		AuditConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_audit_events_consumed_total",
			Help: "Audit events read back from the event bus, by category",
		}, []string{"category"}),
		SecurityAlerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_security_alerts_total",
			Help: "Security alerts raised by the audit consumer, by triggering action",
		}, []string{"action"}),
	}
}

func (m *Metrics) IncrementPaymentsRegistered() {
	m.PaymentsRegistered.Inc()
}

func (m *Metrics) IncrementAssetsMinted() {
	m.AssetsMinted.Inc()
}

func (m *Metrics) IncrementMintRejection(reason string) {
	m.MintRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementInteractions() {
	m.Interactions.Inc()
}

func (m *Metrics) AddLevelUps(n uint64) {
	if n > 0 {
		m.LevelUps.Add(float64(n))
	}
}

// ObserveMint records the duration of a Mint call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMint(start time.Time) {
	m.MintDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPDuration.WithLabelValues(method, route, statusClass(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementRateLimited(class string) {
	m.RateLimited.WithLabelValues(class).Inc()
}

func (m *Metrics) SetRateLimitDegraded(degraded bool) {
	if degraded {
		m.RateLimitDegraded.Set(1)
		return
	}
	m.RateLimitDegraded.Set(0)
}

func (m *Metrics) IncrementAuditConsumed(category string) {
	m.AuditConsumed.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementSecurityAlert(action string) {
	m.SecurityAlerts.WithLabelValues(action).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
