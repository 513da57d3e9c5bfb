// Package backend assembles the goal record store and event notifier
// selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"savings/internal/amqp"
	"savings/internal/goals"
	"savings/internal/log"
	"savings/internal/storage"
	"savings/internal/storage/memory"
	"savings/internal/storage/postgres"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult is the wiring the goal engine needs.
type BackendResult struct {
	Records  storage.GoalRecords
	Notifier goals.Notifier
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured store. Events always go to the log;
// when an AMQP URL is set they are also published. A broker that cannot be
// reached at startup is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		records storage.GoalRecords
		closers []func() error
	)
	switch config.Type {
	case MemoryBackend:
		records = memory.New()
		f.logger.Info("Initialized memory backend")
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		records = repo
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		repo, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		records = repo
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized Postgres backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	notifiers := goals.Notifiers{goals.LogNotifier{Logger: log.NewStructuredLogger(f.logger)}}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without event publishing", "error", err)
		} else {
			notifiers = append(notifiers, client)
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Records:  records,
		Notifier: notifiers,
		Cleanup: func() error {
			var errs []error
			for i := len(closers) - 1; i >= 0; i-- {
				errs = append(errs, closers[i]())
			}
			return errors.Join(errs...)
		},
	}, nil
}
