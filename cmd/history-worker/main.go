// Package main 生成历史落库消费者入口（history-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/config"
	"z-novel-copilot/internal/infrastructure/messaging"
	"z-novel-copilot/internal/infrastructure/persistence/postgres"
	"z-novel-copilot/internal/infrastructure/persistence/redis"
	"z-novel-copilot/pkg/logger"
	"z-novel-copilot/pkg/tracer"

	"github.com/joho/godotenv"
)

const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    "history-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	writer := generation.NewHistoryWriter(postgres.NewGenerationHistoryRepository(pgClient))

	rs := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamGenerationHistory,
		Group:         messaging.ConsumerGroupHistoryWriter.WithPrefix(rs.ConsumerGroupPrefix),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(rs.RetryBackoff.Initial, rs.RetryBackoff.Max, rs.RetryBackoff.Multiplier),
	})

	consumer.RegisterHandler(messaging.MessageTypeGenerationHistory, func(ctx context.Context, msg *messaging.Message) error {
		rec, err := messaging.DecodeHistoryRecord(msg)
		if err != nil {
			return err
		}
		return writer.Record(ctx, *rec)
	})

	log := logger.FromContext(ctx)
	log.Info("history-worker started", "stream_enabled", rs.Enabled)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error {
		consumer.MonitorDLQ(gctx, dlqAlertThreshold)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal(ctx, "history-worker exited", err)
	}
	log.Info("history-worker shutting down")
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
