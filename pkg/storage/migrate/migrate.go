// Package migrate wires the engine migration providers into a default
// registry and exposes the entry point the migrate command runs.
package migrate

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/userstore/userstore/pkg/storage"
	"github.com/userstore/userstore/pkg/storage/mysql"
	"github.com/userstore/userstore/pkg/storage/postgres"
	"github.com/userstore/userstore/pkg/storage/sqlite"
)

// MigrationConfig contains the configuration needed for running migrations.
type MigrationConfig = storage.MigrationConfig

var (
	// defaultRegistry is the global migration provider registry
	defaultRegistry *storage.MigratorRegistry
	registryOnce    sync.Once
)

// initDefaultRegistry initializes the default migration registry with built-in providers
func initDefaultRegistry() {
	registryOnce.Do(func() {
		defaultRegistry = storage.NewMigratorRegistry()

		// Register built-in migration providers
		defaultRegistry.RegisterProvider("postgres", postgres.NewPostgresMigrationProvider())
		defaultRegistry.RegisterProvider("mysql", mysql.NewMySQLMigrationProvider())
		defaultRegistry.RegisterProvider("sqlite", sqlite.NewSQLiteMigrationProvider())
	})
}

// GetDefaultRegistry returns the default migration provider registry.
func GetDefaultRegistry() *storage.MigratorRegistry {
	initDefaultRegistry()
	return defaultRegistry
}

// RegisterMigrationProvider allows applications to register custom migration providers.
func RegisterMigrationProvider(engine string, provider storage.MigrationProvider) {
	initDefaultRegistry()
	defaultRegistry.RegisterProvider(engine, provider)
}

// RunMigrationsWithProvider runs migrations using a specific migration provider.
func RunMigrationsWithProvider(ctx context.Context, provider storage.MigrationProvider, cfg storage.MigrationConfig) error {
	return provider.RunMigrations(ctx, cfg)
}

// RunMigrationsWithRegistry runs migrations using a specific migration registry.
func RunMigrationsWithRegistry(ctx context.Context, registry *storage.MigratorRegistry, cfg storage.MigrationConfig) error {
	if cfg.Engine == "memory" {
		log.Println("no migrations to run for `memory` datastore")
		return nil
	}

	if cfg.Engine == "" {
		return fmt.Errorf("missing datastore engine type")
	}

	provider, exists := registry.GetProvider(cfg.Engine)
	if !exists {
		return fmt.Errorf("no migration provider registered for engine: %s", cfg.Engine)
	}

	return provider.RunMigrations(ctx, cfg)
}

// RunMigrations runs the migrations for the given config using the default
// registry. Applications embedding userstore as a library can register custom
// providers via RegisterMigrationProvider before calling this, or use
// RunMigrationsWithProvider / RunMigrationsWithRegistry for full control. The
// registry handles upgrades and downgrades to specific versions through the
// individual migration providers.
func RunMigrations(ctx context.Context, cfg storage.MigrationConfig) error {
	return RunMigrationsWithRegistry(ctx, GetDefaultRegistry(), cfg)
}
