// Command audit-consumer reads the audit topic back from Kafka, stores
// compliance events in Postgres for long retention and raises alerts on bursts
// of rejected mint claims.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"anima/internal/platform/config"
	"anima/internal/platform/httpserver"
	"anima/internal/platform/kafka"
	"anima/internal/platform/logger"
	"anima/internal/platform/metrics"
	"anima/internal/platform/postgres"
	platformredis "anima/internal/platform/redis"
	"anima/internal/ratelimit"
	audit "anima/pkg/platform/audit"
	"anima/pkg/platform/audit/consumer"
	auditpg "anima/pkg/platform/audit/store/postgres"
)

// metricsAddr serves /metrics for the consumer; the API server owns ANIMA_ADDR.
const metricsAddr = ":9102"

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	log := logger.New(level).With("component", "audit-consumer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("consumer stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	m := metrics.New()
	router := consumer.NewRouter(log, m)

	if cfg.State.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.State.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		router.Register(audit.CategoryCompliance, consumer.NewComplianceHandler(auditpg.New(db), log))
	} else {
		log.WarnContext(ctx, "DATABASE_URL not set, compliance events are only logged")
		router.Register(audit.CategoryCompliance, consumer.NewOpsHandler(log))
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var windows ratelimit.Store = ratelimit.NewMemoryStore()
	if redisClient != nil {
		defer redisClient.Close()
		windows = ratelimit.NewRedisStore(redisClient)
	}
	router.Register(audit.CategorySecurity, consumer.NewSecurityHandler(windows,
		cfg.Kafka.RejectionAlertThreshold, cfg.Kafka.RejectionAlertWindow, log, m))
	router.Register(audit.CategoryOperations, consumer.NewOpsHandler(log))

	c, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, cfg.Kafka.ConsumerGroup, log)
	if err != nil {
		return err
	}
	defer c.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := httpserver.New(metricsAddr, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "consuming audit topic",
			"topic", cfg.Kafka.AuditTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		err := c.Run(gctx, router)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return httpserver.Run(gctx, srv, 5*time.Second)
	})
	return g.Wait()
}
