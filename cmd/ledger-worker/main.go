package main

import (
	"context"
	"errors"
	"os"

	"budgetkeeper/internal/amqp"
	"budgetkeeper/internal/backend"
	"budgetkeeper/internal/cli"
	"budgetkeeper/internal/config"
	"budgetkeeper/internal/log"
	"budgetkeeper/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger(config.Load().LogLevel, log.ComponentWorker)
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting ledger-worker", "sink", cfg.SinkBackend)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	sinkCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid sink configuration", err)
	}
	result, err := backend.NewFactory(logger.Logger).CreateSink(ctx, sinkCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create sink", err)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Sink cleanup failed", "error", err)
			}
		}()
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPEventsQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	w := worker.NewEventWorker(result.Sink)
	logger.Info("Consuming transaction events", "queue", cfg.AMQPEventsQueue)
	err = client.ConsumeTransactionEvents(ctx, cfg.AMQPEventsQueue, w.HandleTransactionRecorded)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Ledger-worker shutdown complete")
}
