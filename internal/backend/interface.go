package backend

import (
	"context"

	"caixa/internal/store"
)

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	store.AuthStore
	store.ProfileStore
	store.TransactionStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Supabase specific
	SupabaseURL     string
	SupabaseAnonKey string

	// SQLite specific
	SQLiteDBPath  string
	SessionSecret string

	// Bootstrap admin (sqlite and memory backends)
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SupabaseBackend BackendType = "supabase"
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SupabaseBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
