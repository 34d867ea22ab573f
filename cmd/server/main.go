package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"anima/internal/admin"
	"anima/internal/anima/handler"
	assetservice "anima/internal/asset/service"
	jwttoken "anima/internal/jwt_token"
	paymentservice "anima/internal/payment/service"
	"anima/internal/platform/config"
	"anima/internal/platform/httpserver"
	"anima/internal/platform/kafka"
	"anima/internal/platform/logger"
	"anima/internal/platform/metrics"
	platformredis "anima/internal/platform/redis"
	"anima/internal/platform/tracing"
	"anima/internal/progression"
	"anima/internal/ratelimit"
	"anima/internal/state/snapshot"
	"anima/pkg/platform/audit/publisher"
	"anima/pkg/platform/audit/worker"
	"anima/pkg/platform/httputil"
	"anima/pkg/platform/middleware/metadata"
	"anima/pkg/platform/middleware/request"
	"anima/pkg/platform/middleware/requesttime"
)

const (
	serviceName     = "anima"
	shutdownTimeout = 10 * time.Second
	auditPartitions = 3
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	log := logger.New(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until ctx is cancelled or a component
// fails. Business logic lives in the internal service packages.
func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, serviceName)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	m := metrics.New()

	be, err := buildBackend(ctx, cfg.State)
	if err != nil {
		return err
	}
	defer be.Close()
	auditPublisher := publisher.NewPublisher(be.audit, publisher.WithLogger(log))

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	var adminOpts []admin.Option

	if be.memory != nil && redisClient != nil {
		snapshots := snapshot.NewRedisStore(redisClient, cfg.Snapshot.Key)
		if err := restoreSnapshot(ctx, snapshots, be.memory, auditPublisher, log); err != nil {
			return err
		}
		snapWorker := snapshot.NewWorker(be.memory, snapshots, log, snapshot.WithInterval(cfg.Snapshot.Interval))
		g.Go(func() error { return ignoreCancel(snapWorker.Run(gctx)) })
		adminOpts = append(adminOpts, admin.WithSnapshots(be.memory, snapshots))
	} else if be.memory != nil {
		log.WarnContext(ctx, "REDIS_URL not set, in-memory state will not survive restarts")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, auditPartitions, 1); err != nil {
			return err
		}
		relay := worker.NewRelay(be.audit, producer, log,
			worker.WithInterval(cfg.Kafka.OutboxPollInterval),
			worker.WithBatchSize(cfg.Kafka.OutboxBatchSize),
		)
		g.Go(func() error { return ignoreCancel(relay.Run(gctx)) })
	}

	payments := paymentservice.New(be.store,
		paymentservice.WithLogger(log),
		paymentservice.WithAuditPublisher(auditPublisher),
		paymentservice.WithMetrics(m),
	)
	assets := assetservice.New(be.store,
		assetservice.WithLogger(log),
		assetservice.WithAuditPublisher(auditPublisher),
		assetservice.WithMetrics(m),
	)
	prog := progression.New(be.store,
		progression.WithLogger(log),
		progression.WithAuditPublisher(auditPublisher),
		progression.WithMetrics(m),
	)

	var handlerOpts []handler.Option
	if !cfg.Limits.Disabled {
		limiter := buildLimiter(cfg.Limits, redisClient, log, m)
		handlerOpts = append(handlerOpts, handler.WithRateLimiter(limiter))
		g.Go(func() error {
			return ignoreCancel(limiter.RunSweeper(gctx, cfg.Limits.Window))
		})
	}

	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))

	r.Get("/health", healthHandler(redisClient))
	r.Handle("/metrics", promhttp.Handler())
	handler.New(payments, assets, prog, log, m, jwttoken.NewMiddlewareValidator(jwtService), handlerOpts...).Register(r)
	admin.New(cfg.AdminToken, auditPublisher, log, adminOpts...).Register(r)

	srv := httpserver.New(cfg.Addr, r)
	g.Go(func() error {
		log.InfoContext(gctx, "starting anima", "addr", cfg.Addr, "backend", string(cfg.State.Backend))
		err := httpserver.Run(gctx, srv, shutdownTimeout)
		log.InfoContext(context.WithoutCancel(gctx), "http server stopped")
		return err
	})

	return g.Wait()
}

// buildLimiter shares windows through Redis when it is configured and keeps
// them in process otherwise.
func buildLimiter(cfg config.RateLimitConfig, redisClient *platformredis.Client, log *slog.Logger, m *metrics.Metrics) *ratelimit.Limiter {
	limits := map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassPayment:  {Requests: cfg.PaymentRequests, Window: cfg.Window},
		ratelimit.ClassInteract: {Requests: cfg.InteractRequests, Window: cfg.Window},
	}
	var primary ratelimit.Store = ratelimit.NewMemoryStore()
	if redisClient != nil {
		primary = ratelimit.NewRedisStore(redisClient)
	}
	return ratelimit.New(primary, limits, ratelimit.WithLogger(log), ratelimit.WithMetrics(m))
}

func healthHandler(redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
			}
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}

// ignoreCancel treats context cancellation as a clean stop for background
// workers.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
