package backend

import (
	"context"
	"fmt"
	"log/slog"

	"pennywise/internal/adapters"
	"pennywise/internal/amqp"
	"pennywise/internal/services"
	"pennywise/internal/storage"
	"pennywise/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	loc, _ := config.location()

	var (
		store adapters.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		dir := config.SeedDirectory
		if dir == "" {
			dir = "."
		}
		store = memory.NewFromFiles(dir)
		f.logger.Info("Initialized memory backend", "seed_directory", dir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	publisher := f.publisher(config)
	app := adapters.NewApp(store, publisher, loc)

	return &BackendResult{
		App:        app,
		Cleanup:    app.Close,
		Publishing: publisher != nil,
	}, nil
}

// publisher dials the broker when configured. A failed dial downgrades to
// running without events; the store stays the source of truth.
func (f *DefaultFactory) publisher(config Config) services.ExpensePublisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, "")
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without expense events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange)
	return client
}
