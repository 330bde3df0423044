package backend

import (
	"fmt"

	"caixa/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SupabaseURL:     appConfig.SupabaseURL,
		SupabaseAnonKey: appConfig.SupabaseAnonKey,

		SQLiteDBPath:  appConfig.SQLiteDBPath,
		SessionSecret: appConfig.SessionSecret,

		AdminEmail:    appConfig.AdminEmail,
		AdminPassword: appConfig.AdminPassword,
		AdminName:     appConfig.AdminName,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SupabaseBackend:
		if c.SupabaseURL == "" {
			return fmt.Errorf("Supabase URL is required for supabase backend")
		}
		if c.SupabaseAnonKey == "" {
			return fmt.Errorf("Supabase anon key is required for supabase backend")
		}

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case MemoryBackend:
		// Memory backend doesn't require additional configuration
	}

	// The web server signs session cookies with the secret regardless of
	// which backend stores the data.
	if c.SessionSecret == "" {
		return fmt.Errorf("session secret is required")
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("admin email and password must be provided together")
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SupabaseBackend, SQLiteBackend, MemoryBackend}
}
