package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"dormly/internal/laundry/projection"
	"dormly/pkg/config"
	"dormly/pkg/kafka"
	kafka_config "dormly/pkg/kafka/config"
	kafka_middleware "dormly/pkg/kafka/middleware"
)

const ServiceName = "laundry-history-projector"

// The projector keeps the Redis history read model in step with the booking
// event topic. It needs Redis and Kafka; Mongo is not touched.
func main() {
	cfg := config.Load(ServiceName)
	if !cfg.RedisEnabled() {
		cfg.Log.Fatal("REDIS_ADDR is required for the history projector")
	}
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	store := projection.NewStore(cfg.Client.Redis, cfg.Log)
	projector := projection.NewProjector(store, cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, kafkaCfg.EventsTopic, kafkaCfg.ProjectorGroup, kafkaCfg.DLQTopic, projector.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
	}()

	cfg.Log.Info("Starting history projector",
		"topic", kafkaCfg.EventsTopic,
		"group", kafkaCfg.ProjectorGroup,
	)
	exitCode := 0
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		// an uncommitted message is redelivered once the projector restarts
		cfg.Log.Error("Consumer stopped with error", "error", err)
		exitCode = 1
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("History projector stopped")
	if exitCode != 0 {
		cancel()
		cfg.GracefulShutdown()
		os.Exit(exitCode)
	}
}
