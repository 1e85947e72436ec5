package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/userstore/userstore/pkg/storage"
)

func TestMySQLMigrationProvider(t *testing.T) {
	provider := NewMySQLMigrationProvider()

	t.Run("GetSupportedEngine", func(t *testing.T) {
		require.Equal(t, "mysql", provider.GetSupportedEngine())
	})

	t.Run("NewMySQLMigrationProvider", func(t *testing.T) {
		require.NotNil(t, provider)
		require.Implements(t, (*storage.MigrationProvider)(nil), provider)
	})

	t.Run("ConnectionFailure", func(t *testing.T) {
		config := storage.MigrationConfig{
			Engine:  "mysql",
			URI:     "root:password@tcp(127.0.0.1:1)/userstore",
			Timeout: 1 * time.Second,
		}

		ctx := context.Background()
		err := provider.RunMigrations(ctx, config)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to initialize mysql connection")
	})
}

func TestMySQLMigrationProviderPrepareURI(t *testing.T) {
	provider := NewMySQLMigrationProvider()

	t.Run("NoOverrides", func(t *testing.T) {
		uri, err := provider.prepareURI(storage.MigrationConfig{
			URI: "root:password@tcp(localhost:3306)/userstore",
		})
		require.NoError(t, err)
		require.Contains(t, uri, "root:password@tcp(localhost:3306)/userstore")
	})

	t.Run("CredentialOverrides", func(t *testing.T) {
		uri, err := provider.prepareURI(storage.MigrationConfig{
			URI:      "root:password@tcp(localhost:3306)/userstore",
			Username: "other",
			Password: "secret",
		})
		require.NoError(t, err)
		require.Contains(t, uri, "other:secret@tcp(localhost:3306)/userstore")
	})

	t.Run("InvalidDSN", func(t *testing.T) {
		_, err := provider.prepareURI(storage.MigrationConfig{
			URI: "root:password@tcp(localhost:3306/userstore",
		})
		require.Error(t, err)
	})
}
