package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scorecard/internal/amqp"
	"scorecard/internal/exporter"
	"scorecard/internal/exporter/google"
	"scorecard/internal/exporter/memory"
	"scorecard/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// dialAMQP is replaced in tests.
	dialAMQP func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:   logger,
		dialAMQP: amqp.NewClient,
	}
}

// sinkSet is the synchronous half of a backend before the publisher is chosen.
type sinkSet struct {
	targets     []exporter.Target
	suggestions exporter.SuggestionReader
	history     exporter.ExportLister
	ready       ReadyFunc
	cleanup     []CleanupFunc
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		sinks *sinkSet
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		sinks, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		sinks, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		sinks, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	dispatcher := exporter.NewDispatcher(sinks.targets,
		exporter.WithTimeout(config.ExportTimeout),
		exporter.WithLogger(f.logger))

	result := &BackendResult{
		Exporter:    dispatcher,
		Sinks:       dispatcher,
		Suggestions: sinks.suggestions,
		History:     sinks.history,
		Ready:       sinks.ready,
	}
	cleanup := sinks.cleanup

	queued := false
	if config.Queue {
		client, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, exporting synchronously", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Exporter = client
			queued = true
			result.Ready = withAMQP(result.Ready, client)
			cleanup = append(cleanup, client.Close)
		}
	}
	result.Cleanup = joinCleanup(cleanup)

	f.logger.Info("Initialized export backend",
		"type", config.Type.String(),
		"sinks", dispatcher.Targets(),
		"queued", queued)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*sinkSet, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &sinkSet{
		targets:     []exporter.Target{{Name: "sqlite", Exporter: repo}},
		suggestions: memory.NewFromFiles(dataDir(config)),
		history:     repo,
		ready:       repo.Ping,
		cleanup:     []CleanupFunc{repo.Close},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*sinkSet, error) {
	cli, err := google.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend")

	return &sinkSet{
		targets:     []exporter.Target{{Name: "sheets", Exporter: cli}},
		suggestions: cli,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*sinkSet, error) {
	store := memory.NewFromFiles(dataDir(config))

	f.logger.Info("Initialized memory backend", "data_directory", dataDir(config))

	return &sinkSet{
		targets:     []exporter.Target{{Name: "memory", Exporter: store}},
		suggestions: store,
		history:     store,
	}, nil
}

func dataDir(config Config) string {
	if config.DataDirectory == "" {
		return "data"
	}
	return config.DataDirectory
}

func withAMQP(next ReadyFunc, client *amqp.Client) ReadyFunc {
	return func(ctx context.Context) error {
		if !client.Healthy() {
			return errors.New("amqp connection unhealthy")
		}
		if next != nil {
			return next(ctx)
		}
		return nil
	}
}

// joinCleanup runs cleanups in reverse order and joins their errors.
func joinCleanup(fns []CleanupFunc) CleanupFunc {
	if len(fns) == 0 {
		return nil
	}
	return func() error {
		var errs []error
		for i := len(fns) - 1; i >= 0; i-- {
			if err := fns[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
