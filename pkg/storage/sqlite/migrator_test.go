package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/userstore/userstore/pkg/storage"
)

func TestSQLiteMigrationProvider(t *testing.T) {
	provider := NewSQLiteMigrationProvider()

	t.Run("GetSupportedEngine", func(t *testing.T) {
		require.Equal(t, "sqlite", provider.GetSupportedEngine())
	})

	t.Run("NewSQLiteMigrationProvider", func(t *testing.T) {
		require.NotNil(t, provider)
		require.Implements(t, (*storage.MigrationProvider)(nil), provider)
	})

	t.Run("InvalidPath", func(t *testing.T) {
		config := storage.MigrationConfig{
			Engine:  "sqlite",
			URI:     "/invalid/path/that/does/not/exist/db.sqlite",
			Timeout: 1 * time.Second,
		}

		ctx := context.Background()
		err := provider.RunMigrations(ctx, config)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to initialize sqlite connection")
	})
}

type columnInfo struct {
	columnType   string
	notNull      bool
	defaultValue sql.NullString
}

// tableColumns reads the users schema through PRAGMA table_info.
func tableColumns(t *testing.T, uri string) map[string]columnInfo {
	t.Helper()

	dsn, err := PrepareDSN(uri)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`PRAGMA table_info(users)`)
	require.NoError(t, err)
	defer rows.Close()

	columns := map[string]columnInfo{}
	for rows.Next() {
		var (
			cid     int
			name    string
			info    columnInfo
			notNull int
			pk      int
		)
		require.NoError(t, rows.Scan(&cid, &name, &info.columnType, &notNull, &info.defaultValue, &pk))
		info.notNull = notNull != 0
		columns[name] = info
	}
	require.NoError(t, rows.Err())

	return columns
}

func TestSQLiteMigrationsRoundTrip(t *testing.T) {
	uri := filepath.Join(t.TempDir(), "test.db")
	provider := NewSQLiteMigrationProvider()
	ctx := context.Background()

	config := storage.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 5 * time.Second,
	}

	// Upgrade to the latest schema.
	require.NoError(t, provider.RunMigrations(ctx, config))

	version, err := provider.GetCurrentVersion(ctx, config)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)

	columns := tableColumns(t, uri)
	password, ok := columns["password"]
	require.True(t, ok, "after upgrade, users must have a password column")
	require.Equal(t, "VARCHAR(32)", strings.ToUpper(password.columnType))
	require.False(t, password.notNull, "password must be nullable")
	require.False(t, password.defaultValue.Valid, "password must have no default")

	// Downgrade removes the column and leaves the rest of the schema intact.
	config.TargetVersion = 1
	require.NoError(t, provider.RunMigrations(ctx, config))

	version, err = provider.GetCurrentVersion(ctx, config)
	require.NoError(t, err)
	require.Equal(t, int64(1), version)

	columns = tableColumns(t, uri)
	require.NotContains(t, columns, "password")
	require.Contains(t, columns, "id")
	require.Contains(t, columns, "username")
	require.Contains(t, columns, "email")

	// Upgrading again restores the column.
	config.TargetVersion = 2
	require.NoError(t, provider.RunMigrations(ctx, config))
	require.Contains(t, tableColumns(t, uri), "password")
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	uri := filepath.Join(t.TempDir(), "test.db")
	provider := NewSQLiteMigrationProvider()
	ctx := context.Background()

	config := storage.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 5 * time.Second,
	}

	require.NoError(t, provider.RunMigrations(ctx, config))
	// A second run against an up-to-date database is a no-op.
	require.NoError(t, provider.RunMigrations(ctx, config))

	version, err := provider.GetCurrentVersion(ctx, config)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)
}
