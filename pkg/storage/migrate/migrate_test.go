package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/userstore/userstore/pkg/storage"
)

type recordingProvider struct {
	engine string
	ran    bool
	cfg    storage.MigrationConfig
}

func (r *recordingProvider) RunMigrations(ctx context.Context, config storage.MigrationConfig) error {
	r.ran = true
	r.cfg = config
	return nil
}

func (r *recordingProvider) GetCurrentVersion(ctx context.Context, config storage.MigrationConfig) (int64, error) {
	return 0, nil
}

func (r *recordingProvider) GetSupportedEngine() string {
	return r.engine
}

func TestGetDefaultRegistry(t *testing.T) {
	registry := GetDefaultRegistry()
	require.ElementsMatch(t, []string{"postgres", "mysql", "sqlite"}, registry.GetSupportedEngines())

	// The registry is initialized once.
	require.Same(t, registry, GetDefaultRegistry())
}

func TestRunMigrationsWithRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("MemoryEngineIsNoop", func(t *testing.T) {
		registry := storage.NewMigratorRegistry()
		err := RunMigrationsWithRegistry(ctx, registry, storage.MigrationConfig{Engine: "memory"})
		require.NoError(t, err)
	})

	t.Run("MissingEngine", func(t *testing.T) {
		registry := storage.NewMigratorRegistry()
		err := RunMigrationsWithRegistry(ctx, registry, storage.MigrationConfig{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "missing datastore engine type")
	})

	t.Run("UnknownEngine", func(t *testing.T) {
		registry := storage.NewMigratorRegistry()
		err := RunMigrationsWithRegistry(ctx, registry, storage.MigrationConfig{Engine: "cockroach"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "no migration provider registered for engine: cockroach")
	})

	t.Run("DispatchesToProvider", func(t *testing.T) {
		registry := storage.NewMigratorRegistry()
		provider := &recordingProvider{engine: "postgres"}
		registry.RegisterProvider("postgres", provider)

		cfg := storage.MigrationConfig{Engine: "postgres", URI: "postgres://localhost:5432/db", TargetVersion: 1}
		require.NoError(t, RunMigrationsWithRegistry(ctx, registry, cfg))
		require.True(t, provider.ran)
		require.Equal(t, cfg, provider.cfg)
	})
}

func TestRunMigrationsWithProvider(t *testing.T) {
	provider := &recordingProvider{engine: "sqlite"}
	cfg := storage.MigrationConfig{Engine: "sqlite", URI: "file.db"}

	require.NoError(t, RunMigrationsWithProvider(context.Background(), provider, cfg))
	require.True(t, provider.ran)
}
