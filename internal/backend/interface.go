package backend

import (
	"context"
	"time"

	"scorecard/internal/exporter"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the backend's dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the wired export stack and its cleanup function.
type BackendResult struct {
	// Exporter is what the API calls. It is the AMQP publisher when queueing
	// is enabled and the sink dispatcher otherwise.
	Exporter exporter.SnapshotExporter
	// Sinks writes snapshots synchronously. The worker uses it directly.
	Sinks       *exporter.Dispatcher
	Suggestions exporter.SuggestionReader
	// History is nil when the backend keeps no export records.
	History exporter.ExportLister
	Ready   ReadyFunc
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Queue routes API exports through AMQP when an AMQP URL is set.
	Queue        bool
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SQLite specific
	SQLiteDBPath string

	// Memory backend and channel seed file
	DataDirectory string

	ExportTimeout time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
