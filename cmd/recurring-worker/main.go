package main

import (
	"context"
	"os"
	"time"

	"pennywise/internal/cli"
	"pennywise/internal/log"
	"pennywise/internal/services"
)

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentScheduler)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting recurring-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	shutdownTelemetry := cli.InitTelemetry(ctx, cfg, logger)

	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if !res.Publishing {
		logger.Info("AMQP disabled, generated expenses will not be announced")
	}

	scheduler := services.NewScheduler(res.App.Processor, services.SchedulerConfig{
		Interval:   cfg.RecurringInterval,
		RunOnStart: true,
	})
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start recurring scheduler", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring expense processor configured",
		"interval", cfg.RecurringInterval,
		"timezone", cfg.Timezone,
		"backend", cfg.DataBackend)

	<-ctx.Done()
	logger.Info("Shutting down recurring-worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop in time", log.FieldError, err)
	}
	if last := scheduler.LastRun(); !last.At.IsZero() {
		logger.Info("Last recurring run",
			"at", last.At,
			"generated", last.Generated,
			log.FieldError, last.Err)
	}
	if err := res.Cleanup(); err != nil {
		logger.Warn("Backend cleanup failed", log.FieldError, err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn("Telemetry shutdown failed", log.FieldError, err)
	}
	logger.Info("Recurring-worker shutdown complete")
}
