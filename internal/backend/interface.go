package backend

import (
	"context"

	"finance/internal/services"
	"finance/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired service and the repository behind it
type BackendResult struct {
	Service    *services.TransactionService
	Repository storage.Repository
	// EventsEnabled is true when writes are published to AMQP
	EventsEnabled bool
	Cleanup       CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates the transaction service for the API
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateRepository opens storage only, without an event publisher
	CreateRepository(ctx context.Context, config Config) (storage.Repository, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
