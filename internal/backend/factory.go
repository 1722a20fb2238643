// Package backend wires the configured storage backend and the
// optional AMQP event stream into the pieces the binaries share.
package backend

import (
	"fmt"

	"gastopro/internal/amqp"
	"gastopro/internal/config"
	"gastopro/internal/log"
	"gastopro/internal/services"
	"gastopro/internal/storage"
)

// Result bundles the wired store and event stream. Events is nil when
// AMQP is not configured or unreachable; the service degrades to
// storage-only.
type Result struct {
	Store  services.Store
	Events *amqp.Client
}

// Close releases the store and the event stream.
func (r *Result) Close() error {
	var errs []error
	if r.Events != nil {
		if err := r.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close backend: %v", errs)
	}
	return nil
}

// Create builds the store for the configured backend and dials AMQP
// when a URL is set. An AMQP failure is logged and tolerated.
func Create(cfg *config.Config, logger *log.Logger) (*Result, error) {
	logger = logger.WithComponent(log.ComponentBackend)

	var store services.Store
	switch cfg.DataBackend {
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		store = repo
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case config.BackendMemory:
		store = storage.NewMemoryStore()
		logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			events = client
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	return &Result{Store: store, Events: events}, nil
}
