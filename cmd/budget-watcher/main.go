package main

import (
	"context"
	"os"
	"time"

	"pennywise/internal/amqp"
	"pennywise/internal/cli"
	"pennywise/internal/log"
	"pennywise/internal/worker"
)

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentWorker)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting budget-watcher")

	ctx, stop := cli.SignalContext()
	defer stop()

	shutdownTelemetry := cli.InitTelemetry(ctx, cfg, logger)

	// The watcher only reads; it never publishes, so no broker in the backend.
	brokerURL, exchange := cfg.AMQPURL, cfg.AMQPExchange
	cfg.AMQPURL = ""

	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	var source worker.EventSource
	if brokerURL != "" {
		client, err := amqp.NewClient(brokerURL, exchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			res.Cleanup()
			os.Exit(1)
		}
		defer client.Close()
		source = client
		logger.Info("Consuming expense events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, relying on periodic sweeps only")
	}

	// Reads go straight to the budget service: the App cache is only purged
	// by writes in this process.
	watcher := worker.NewBudgetWatcher(res.App.Budget, cfg.Location())
	logger.Info("Budget watcher configured", "sweep_interval", cfg.BudgetSweepInterval)

	if err := watcher.Run(ctx, source, cfg.BudgetSweepInterval); err != nil {
		logger.Error("Budget watcher stopped with error", log.FieldError, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn("Telemetry shutdown failed", log.FieldError, err)
	}
	logger.Info("Budget-watcher shutdown complete")
}
