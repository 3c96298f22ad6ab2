package backend

import (
	"context"
	"fmt"

	applog "finanzas/internal/log"
	"finanzas/internal/seed"
	"finanzas/internal/storage"
	"finanzas/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentStorage),
	}
}

// CreateBackend opens the configured store and seeds it when asked to.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		result = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.SeedOnStart {
		if err := f.seed(ctx, result, config.SeedFile); err != nil {
			if result.Cleanup != nil {
				_ = result.Cleanup()
			}
			return nil, err
		}
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	store := memory.New()
	f.logger.Info("Initialized memory backend")
	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}
}

func (f *DefaultFactory) seed(ctx context.Context, result *BackendResult, path string) error {
	file, err := seed.Load(path)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	res, err := seed.Apply(ctx, result.Store, file)
	if err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	f.logger.InfoContext(ctx, "Store seeded",
		"seed_file", path,
		"profiles", res.Profiles,
		"lines_created", res.LinesCreated)
	return nil
}
