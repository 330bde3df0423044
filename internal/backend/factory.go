package backend

import (
	"context"
	"fmt"
	"log/slog"

	"caixa/internal/storage"
	"caixa/internal/store/memory"
	"caixa/internal/supabase"
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

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SupabaseBackend:
		return f.createSupabaseBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSupabaseBackend(config Config) (*BackendResult, error) {
	client, err := supabase.NewClient(supabase.Config{
		URL:    config.SupabaseURL,
		APIKey: config.SupabaseAnonKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
	}

	f.logger.Info("Initialized Supabase backend", "url", config.SupabaseURL)

	return &BackendResult{
		Backend: supabase.NewStore(client),
		Cleanup: nil, // No cleanup needed for supabase backend
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	sqliteStore, err := storage.NewSQLiteStore(config.SQLiteDBPath, []byte(config.SessionSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	if config.AdminEmail != "" {
		if err := sqliteStore.SeedAdmin(ctx, config.AdminEmail, config.AdminPassword, config.AdminName); err != nil {
			sqliteStore.Close()
			return nil, fmt.Errorf("failed to seed admin account: %w", err)
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: sqliteStore,
		Cleanup: sqliteStore.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(_ context.Context, config Config) (*BackendResult, error) {
	store := memory.New()

	if config.AdminEmail != "" {
		store.SeedAdmin(config.AdminEmail, config.AdminPassword, config.AdminName)
	}

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Backend: store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
