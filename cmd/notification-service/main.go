package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/application"
	notifkafka "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/infrastructure/kafka"
	notifpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/infrastructure/postgres"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/config"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/database"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/idempotency"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/logging"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/shutdown"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", "notification-service")

	if err := run(cfg, log); err != nil {
		log.Error("notification-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("notification-service shutdown complete")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "notification-service", cfg.OTelEndpoint, log)
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	pool, err := database.Open(ctx, cfg.PGURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	svc := application.NewService(log, notifpg.NewRepository(log, pool))
	consumer := notifkafka.NewConsumer(log, cfg.KafkaBrokers, cfg.OutboxTopic, cfg.ConsumerGroup, svc,
		idempotency.NewStore(rdb, cfg.IdempotencyTTL))

	log.Info("consuming order events", "topic", cfg.OutboxTopic, "group", cfg.ConsumerGroup)
	return consumer.Run(ctx)
}
