package backend

import (
	"context"

	"pennywise/internal/adapters"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired services and their cleanup function.
type BackendResult struct {
	App     *adapters.App
	Cleanup CleanupFunc
	// Publishing is false when no broker is configured or reachable.
	Publishing bool
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific: directory holding seed_categories.txt
	SeedDirectory string

	// Optional expense event publishing
	AMQPURL      string
	AMQPExchange string

	Timezone string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
