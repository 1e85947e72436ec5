package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/userstore/userstore/pkg/storage"
	"github.com/userstore/userstore/pkg/storage/sqlcommon"
	"github.com/userstore/userstore/pkg/storage/test"
)

func migrateTestDB(t *testing.T, targetVersion uint) string {
	t.Helper()

	uri := filepath.Join(t.TempDir(), "test.db")
	provider := NewSQLiteMigrationProvider()
	err := provider.RunMigrations(context.Background(), storage.MigrationConfig{
		Engine:        "sqlite",
		URI:           uri,
		TargetVersion: targetVersion,
		Timeout:       5 * time.Second,
	})
	require.NoError(t, err)

	return uri
}

func TestSQLiteDatastore(t *testing.T) {
	uri := migrateTestDB(t, 0)

	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()

	test.RunAllTests(t, ds)
}

func TestSQLiteDatastoreIsReadyRequiresSchemaRevision(t *testing.T) {
	// Stop at revision 1, before the password column migration.
	uri := migrateTestDB(t, 1)

	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()

	status, err := ds.IsReady(context.Background())
	require.NoError(t, err)
	require.False(t, status.IsReady)
	require.Contains(t, status.Message, "datastore requires migrations")
}

func TestHandleSQLError(t *testing.T) {
	t.Run("NoRows", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(sql.ErrNoRows), storage.ErrNotFound)
	})

	t.Run("ContextCanceled", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(context.Canceled), storage.ErrCancelled)
	})

	t.Run("Other", func(t *testing.T) {
		err := HandleSQLError(errors.New("database is locked"))
		require.Error(t, err)
		require.NotErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestPrepareDSN(t *testing.T) {
	t.Run("ValidPath", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		uri, err := PrepareDSN(dbPath)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(uri, dbPath))
		require.Contains(t, uri, "_pragma=journal_mode")
		require.Contains(t, uri, "_pragma=busy_timeout")
		require.Contains(t, uri, "_txlock=immediate")
	})

	t.Run("ExistingPragmasAreKept", func(t *testing.T) {
		uri, err := PrepareDSN("file:test.db?_pragma=journal_mode(DELETE)")
		require.NoError(t, err)
		require.Contains(t, uri, "journal_mode%28DELETE%29")
		require.NotContains(t, uri, "journal_mode%28WAL%29")
	})

	t.Run("InvalidQuery", func(t *testing.T) {
		_, err := PrepareDSN("file:test.db?_pragma=%zz")
		require.Error(t, err)
	})
}
