package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/userstore/userstore/pkg/storage"
	"github.com/userstore/userstore/pkg/storage/sqlcommon"
)

func TestHandleSQLError(t *testing.T) {
	t.Run("NoRows", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(sql.ErrNoRows), storage.ErrNotFound)
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		err := errors.New(`ERROR: duplicate key value violates unique constraint "users_username_key" (SQLSTATE 23505)`)
		require.ErrorIs(t, HandleSQLError(err), storage.ErrCollision)
	})

	t.Run("ContextCanceled", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(context.Canceled), storage.ErrCancelled)
	})

	t.Run("Other", func(t *testing.T) {
		err := HandleSQLError(errors.New("connection reset"))
		require.Error(t, err)
		require.NotErrorIs(t, err, storage.ErrNotFound)
		require.NotErrorIs(t, err, storage.ErrCollision)
	})
}

func TestNewInvalidURI(t *testing.T) {
	// Username/password overrides force the URI through url.Parse.
	cfg := sqlcommon.NewConfig(sqlcommon.WithUsername("user"))
	_, err := New("postgres://localhost:5432/db\x00", cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse postgres connection uri")
}
