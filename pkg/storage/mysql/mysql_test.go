package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/userstore/userstore/pkg/storage"
	"github.com/userstore/userstore/pkg/storage/sqlcommon"
)

func TestHandleSQLError(t *testing.T) {
	t.Run("NoRows", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(sql.ErrNoRows), storage.ErrNotFound)
	})

	t.Run("DuplicateEntry", func(t *testing.T) {
		err := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'jon' for key 'users.username'"}
		require.ErrorIs(t, HandleSQLError(err), storage.ErrCollision)
	})

	t.Run("ContextCanceled", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(context.Canceled), storage.ErrCancelled)
	})

	t.Run("OtherMySQLError", func(t *testing.T) {
		err := HandleSQLError(&mysql.MySQLError{Number: 1146, Message: "Table 'userstore.users' doesn't exist"})
		require.Error(t, err)
		require.NotErrorIs(t, err, storage.ErrCollision)
	})

	t.Run("Other", func(t *testing.T) {
		err := HandleSQLError(errors.New("connection reset"))
		require.Error(t, err)
		require.NotErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestNewInvalidDSN(t *testing.T) {
	_, err := New("root:password@tcp(localhost:3306/userstore", sqlcommon.NewConfig())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse mysql connection dsn")
}
