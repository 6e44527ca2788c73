package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Varun5711/tinyauth/internal/audit"
	"github.com/Varun5711/tinyauth/internal/config"
	"github.com/Varun5711/tinyauth/internal/events"
	"github.com/Varun5711/tinyauth/internal/logger"
	"github.com/Varun5711/tinyauth/internal/redis"
)

func main() {
	log := logger.New("audit-worker")

	cfg, err := config.LoadUnvalidated()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}
	if !cfg.Redis.Enabled() {
		log.Fatal("REDIS_ADDR is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := redis.NewClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	consumer := events.NewAuthConsumer(
		redisClient.Raw(),
		cfg.Redis.StreamName,
		cfg.Audit.ConsumerGroup,
		cfg.Audit.ConsumerName,
		cfg.Audit.BatchSize,
		cfg.Audit.BlockTime,
		cfg.Audit.ClaimIdle,
	)
	if err := consumer.EnsureGroup(ctx); err != nil {
		log.Fatal("%v", err)
	}

	worker := audit.NewWorker(consumer, audit.NewService(redisClient.Raw()), log.With("consumer", cfg.Audit.ConsumerName), cfg.Audit.PollInterval)

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()
	go worker.ReportStats(ctx, cfg.Audit.StatsInterval)

	log.Info("Processing auth events from %s as %s/%s", cfg.Redis.StreamName, cfg.Audit.ConsumerGroup, cfg.Audit.ConsumerName)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	cancel()
	<-done
}
