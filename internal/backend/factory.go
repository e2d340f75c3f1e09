package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finance/internal/amqp"
	flog "finance/internal/log"
	"finance/internal/services"
	"finance/internal/storage"
	"finance/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. An unreachable broker is
// logged and the service runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := f.CreateRepository(ctx, config)
	if err != nil {
		return nil, err
	}

	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", flog.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = client
		}
	}

	service := services.NewTransactionService(repo, publisher)

	f.logger.Info("Initialized transaction service",
		"backend", config.Type,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Service:       service,
		Repository:    repo,
		EventsEnabled: publisher != nil,
		Cleanup:       service.Close,
	}, nil
}

// CreateRepository implements Factory.CreateRepository
func (f *DefaultFactory) CreateRepository(ctx context.Context, config Config) (storage.Repository, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
