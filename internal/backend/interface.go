package backend

import (
	"context"
	"time"

	"expensetracker/internal/ports"
	"expensetracker/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the assembled ledger and its cleanup function
type BackendResult struct {
	Ledger  *services.Ledger
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration
type Factory interface {
	// CreateBackend opens storage, optional events and cache, and builds a ledger on top.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// OpenStore opens the storage layer alone. The caller closes it.
	OpenStore(ctx context.Context, config Config) (ports.Store, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Memory backend specific
	DataDirectory string

	// Events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Totals cache, disabled when zero
	CacheTTL time.Duration

	DefaultCategory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
