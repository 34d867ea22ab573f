package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"anima/internal/platform/metrics"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/circuit"
	"anima/pkg/platform/httputil"
	"anima/pkg/requestcontext"
)

// Limiter checks callers against per-class budgets. When the primary store
// keeps failing the breaker opens and checks are served from an in-memory
// fallback until the primary recovers.
type Limiter struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limits   map[Class]Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithFallback sets the store used while the breaker is open.
func WithFallback(s Store) Option {
	return func(l *Limiter) {
		l.fallback = s
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.breaker = b
	}
}

func New(primary Store, limits map[Class]Limit, opts ...Option) *Limiter {
	l := &Limiter{
		primary: primary,
		limits:  limits,
		logger:  slog.Default(),
		breaker: circuit.New("ratelimit"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback == nil {
		l.fallback = NewMemoryStore()
	}
	return l
}

// Check admits one request by caller in class. Classes without a configured
// limit are unlimited. degraded reports that the fallback answered.
func (l *Limiter) Check(ctx context.Context, class Class, caller string) (res *Result, degraded bool, err error) {
	limit, ok := l.limits[class]
	if !ok || limit.Requests <= 0 {
		return &Result{Allowed: true}, false, nil
	}
	key := bucketKey(class, caller)

	res, err = l.primary.Allow(ctx, key, limit)
	if err != nil {
		useFallback, change := l.breaker.RecordFailure()
		if change.Opened {
			l.logger.WarnContext(ctx, "rate limit store unavailable, using in-memory fallback", "error", err)
			l.setDegraded(true)
		}
		if !useFallback {
			return nil, false, err
		}
		res, err = l.fallback.Allow(ctx, key, limit)
		return res, true, err
	}

	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.logger.InfoContext(ctx, "rate limit store recovered")
		l.setDegraded(false)
	}
	if !usePrimary {
		// Breaker still open; the fallback stays authoritative until it closes.
		res, err = l.fallback.Allow(ctx, key, limit)
		return res, true, err
	}
	return res, false, nil
}

type sweeper interface {
	Sweep() int
}

// RunSweeper drops idle in-process windows every interval until ctx is done.
// Stores that expire keys themselves, like Redis, are skipped.
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.sweep(ctx)
		}
	}
}

func (l *Limiter) sweep(ctx context.Context) {
	removed := 0
	for _, s := range []Store{l.primary, l.fallback} {
		if sw, ok := s.(sweeper); ok {
			removed += sw.Sweep()
		}
	}
	if removed > 0 {
		l.logger.DebugContext(ctx, "swept idle rate limit windows", "removed", removed)
	}
}

func (l *Limiter) setDegraded(v bool) {
	if l.metrics != nil {
		l.metrics.SetRateLimitDegraded(v)
	}
}

// Middleware limits the authenticated caller. It must run after the auth
// middleware. Store errors fail open.
func (l *Limiter) Middleware(class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller := requestcontext.Principal(ctx)
			if caller.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			res, degraded, err := l.Check(ctx, class, caller.String())
			if err != nil {
				l.logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", requestcontext.RequestID(ctx),
					"class", string(class),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			writeHeaders(w, res, degraded)
			if !res.Allowed {
				if l.metrics != nil {
					l.metrics.IncrementRateLimited(string(class))
				}
				l.logger.InfoContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"class", string(class),
					"principal", caller.String(),
				)
				w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter(l.now())))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeHeaders(w http.ResponseWriter, res *Result, degraded bool) {
	if res.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}
