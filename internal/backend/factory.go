package backend

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
	"expensetracker/internal/storage/postgres"
)

const totalsCacheSize = 16

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.OpenStore(ctx, config)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{
		services.WithDefaultCategory(config.DefaultCategory),
		services.WithLogger(f.logger.WithComponent(log.ComponentLedger)),
	}

	// Initialize AMQP client (optional)
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(client))
		}
	}

	var manager *cache.Manager
	if config.CacheTTL > 0 {
		totals := cache.NewLRUCache[[]core.CategoryTotal](totalsCacheSize, config.CacheTTL)
		manager = cache.NewManager()
		manager.Register(totals)
		manager.StartCleanup(config.CacheTTL)
		opts = append(opts, services.WithTotalsCache(totals))
	}

	ledger := services.NewLedger(store, opts...)

	f.logger.Info("Initialized ledger backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", config.AMQPURL != "",
		"cache_ttl", config.CacheTTL.String())

	return &BackendResult{
		Ledger: ledger,
		Cleanup: func() error {
			if manager != nil {
				manager.Stop()
			}
			return ledger.Close()
		},
	}, nil
}

// OpenStore opens only the storage layer of config.
func (f *DefaultFactory) OpenStore(ctx context.Context, config Config) (ports.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil

	case PostgresBackend:
		repo, err := postgres.NewRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Opened Postgres store")
		return repo, nil

	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data" // Default directory
		}
		store, err := memory.NewFromFiles(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
		f.logger.Info("Opened memory store", "data_directory", dataDir)
		return store, nil

	default:
		return nil, errors.New("unsupported backend type: " + config.Type.String())
	}
}
