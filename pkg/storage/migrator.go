package storage

import (
	"context"
	"time"
)

// MigrationProvider applies the users schema migrations for one database
// engine. The built-in providers (postgres, mysql, sqlite) run the embedded
// goose migrations; applications with their own migration runner can
// implement this interface and register it instead.
type MigrationProvider interface {
	// RunMigrations migrates the users schema to config.TargetVersion,
	// or to the latest revision when TargetVersion is zero. Targets below
	// the current revision are downgrades (revision 1 drops the password
	// column again).
	RunMigrations(ctx context.Context, config MigrationConfig) error

	// GetCurrentVersion returns the users schema revision currently
	// applied to the database.
	GetCurrentVersion(ctx context.Context, config MigrationConfig) (int64, error)

	// GetSupportedEngine returns the engine identifier this provider
	// handles, e.g. "postgres".
	GetSupportedEngine() string
}

// MigrationConfig carries everything a provider needs to reach the database
// and pick a target revision.
type MigrationConfig struct {
	// Engine selects the provider, e.g. "postgres", "mysql", "sqlite".
	Engine string

	// URI is the connection string. Username and Password, when set,
	// override the credentials embedded in it.
	URI      string
	Username string
	Password string

	// TargetVersion is the users schema revision to migrate to.
	// Zero means latest.
	TargetVersion uint

	// Timeout bounds the initial connection attempts.
	Timeout time.Duration

	// Verbose enables per-migration logging in the underlying runner.
	Verbose bool
}

// MigratorRegistry maps engine identifiers to their migration providers.
// It is not safe for concurrent registration; register providers during
// initialization.
type MigratorRegistry struct {
	providers map[string]MigrationProvider
}

// NewMigratorRegistry returns an empty registry.
func NewMigratorRegistry() *MigratorRegistry {
	return &MigratorRegistry{
		providers: make(map[string]MigrationProvider),
	}
}

// RegisterProvider adds a provider under the given engine identifier,
// replacing any provider previously registered for it.
func (r *MigratorRegistry) RegisterProvider(engine string, provider MigrationProvider) {
	r.providers[engine] = provider
}

// GetProvider looks up the provider registered for the engine.
func (r *MigratorRegistry) GetProvider(engine string) (MigrationProvider, bool) {
	provider, exists := r.providers[engine]
	return provider, exists
}

// GetSupportedEngines lists the engine identifiers with a registered provider.
func (r *MigratorRegistry) GetSupportedEngines() []string {
	engines := make([]string, 0, len(r.providers))
	for engine := range r.providers {
		engines = append(engines, engine)
	}
	return engines
}
