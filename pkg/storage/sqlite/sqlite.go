package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/userstore/userstore/pkg/storage"
	"github.com/userstore/userstore/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("userstore/pkg/storage/sqlite")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sqlite."+name)
}

// Datastore provides a SQLite based implementation of [storage.UserBackend].
type Datastore struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	dbStatsCollector prometheus.Collector
}

// Ensures that Datastore implements the UserBackend interface.
var _ storage.UserBackend = (*Datastore)(nil)

// PrepareDSN prepares a raw DSN from config for use with SQLite, specifying
// defaults for journal mode and busy timeout.
func PrepareDSN(uri string) (string, error) {
	// Set journal mode and busy timeout pragmas if not specified.
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}

		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}

	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(100)")
	}

	// Set transaction mode to immediate if not specified
	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}

	uri += "?" + query.Encode()

	return uri, nil
}

// New creates a new [Datastore] storage.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	uri, err := PrepareDSN(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}

	return NewWithDB(db, cfg)
}

// NewWithDB creates a new [Datastore] storage with the provided database connection.
func NewWithDB(db *sql.DB, cfg *sqlcommon.Config) (*Datastore, error) {
	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, "userstore")
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	stbl := sq.StatementBuilder.RunWith(db)
	dbInfo := sqlcommon.NewDBInfo(stbl, HandleSQLError, "sqlite")

	return &Datastore{
		db:               db,
		dbInfo:           dbInfo,
		dbStatsCollector: collector,
	}, nil
}

// Close see [storage.UserBackend].Close.
func (s *Datastore) Close() {
	if s.dbStatsCollector != nil {
		prometheus.Unregister(s.dbStatsCollector)
	}
	s.db.Close()
}

// CreateUser see [storage.UserBackend].CreateUser.
func (s *Datastore) CreateUser(ctx context.Context, user storage.User) (storage.User, error) {
	ctx, span := startTrace(ctx, "CreateUser")
	defer span.End()

	return sqlcommon.InsertUser(ctx, s.dbInfo, user)
}

// GetUser see [storage.UserBackend].GetUser.
func (s *Datastore) GetUser(ctx context.Context, id string) (storage.User, error) {
	ctx, span := startTrace(ctx, "GetUser")
	defer span.End()

	return sqlcommon.GetUserBy(ctx, s.dbInfo, "id", id)
}

// GetUserByUsername see [storage.UserBackend].GetUserByUsername.
func (s *Datastore) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	ctx, span := startTrace(ctx, "GetUserByUsername")
	defer span.End()

	return sqlcommon.GetUserBy(ctx, s.dbInfo, "username", username)
}

// UpdateUserPassword see [storage.UserBackend].UpdateUserPassword.
func (s *Datastore) UpdateUserPassword(ctx context.Context, id string, password *string) error {
	ctx, span := startTrace(ctx, "UpdateUserPassword")
	defer span.End()

	return sqlcommon.UpdateUserPassword(ctx, s.dbInfo, id, password)
}

// ListUsers see [storage.UserBackend].ListUsers.
func (s *Datastore) ListUsers(ctx context.Context, opts storage.ListUsersOptions) ([]storage.User, error) {
	ctx, span := startTrace(ctx, "ListUsers")
	defer span.End()

	return sqlcommon.ListUsers(ctx, s.dbInfo, opts)
}

// DeleteUser see [storage.UserBackend].DeleteUser.
func (s *Datastore) DeleteUser(ctx context.Context, id string) error {
	ctx, span := startTrace(ctx, "DeleteUser")
	defer span.End()

	return sqlcommon.DeleteUser(ctx, s.dbInfo, id)
}

// IsReady see [storage.UserBackend].IsReady.
func (s *Datastore) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	ctx, span := startTrace(ctx, "IsReady")
	defer span.End()

	return sqlcommon.IsReady(ctx, false, s.db, database.DialectSQLite3)
}

// HandleSQLError processes an SQL error and converts it into a storage error.
func HandleSQLError(err error, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, context.Canceled) {
		return storage.ErrCancelled
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xFF == sqlite3.SQLITE_CONSTRAINT {
			return storage.ErrCollision
		}
	}

	return fmt.Errorf("sql error: %w", err)
}
