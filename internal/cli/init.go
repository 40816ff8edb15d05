// Package cli holds the startup steps shared by cmd/pennywise,
// cmd/recurring-worker and cmd/budget-watcher.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pennywise/internal/backend"
	"pennywise/internal/config"
	"pennywise/internal/log"
	"pennywise/internal/observability"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads .env and the config, installs the default logger for
// component, and validates. Validation errors are returned so main can
// exit non-zero after logging them.
func Bootstrap(component string) (*config.Config, *log.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := log.Setup(cfg.LogLevel, cfg.LogFormat, component)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// InitTelemetry starts OTLP export when an endpoint is configured. The
// returned shutdown is always safe to call.
func InitTelemetry(ctx context.Context, cfg *config.Config, logger *log.Logger) func(context.Context) error {
	if !cfg.TracingEnabled() {
		logger.Info("OTLP endpoint not set, telemetry export disabled")
		return func(context.Context) error { return nil }
	}
	shutdown, err := observability.Init(ctx, cfg.ServiceName)
	if err != nil {
		logger.Warn("Failed to initialize telemetry, continuing without export", log.FieldError, err)
		return func(context.Context) error { return nil }
	}
	logger.Info("Telemetry export enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)
	return shutdown
}

// OpenBackend builds the store, publisher and services described by cfg.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
