package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/pressly/goose/v3/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/userstore/userstore/pkg/storage"
	"github.com/userstore/userstore/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("userstore/pkg/storage/postgres")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "postgres."+name)
}

// Datastore provides a PostgreSQL based implementation of [storage.UserBackend].
type Datastore struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	dbStatsCollector prometheus.Collector
}

// Ensures that Datastore implements the UserBackend interface.
var _ storage.UserBackend = (*Datastore)(nil)

// New creates a new [Datastore] storage.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	db, err := initDB(uri, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres connection: %w", err)
	}

	return NewWithDB(db, cfg)
}

// NewWithDB creates a new [Datastore] storage with the provided database connection.
func NewWithDB(db *sql.DB, cfg *sqlcommon.Config) (*Datastore, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 1 * time.Minute
	attempt := 1
	err := backoff.Retry(func() error {
		err := db.PingContext(context.Background())
		if err != nil {
			cfg.Logger.Info("waiting for postgres", zap.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, "userstore")
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	stbl := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db)
	dbInfo := sqlcommon.NewDBInfo(stbl, HandleSQLError, "postgres")

	return &Datastore{
		db:               db,
		dbInfo:           dbInfo,
		dbStatsCollector: collector,
	}, nil
}

func initDB(uri string, cfg *sqlcommon.Config) (*sql.DB, error) {
	if cfg.Username != "" || cfg.Password != "" {
		parsed, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parse postgres connection uri: %w", err)
		}

		username := ""
		if cfg.Username != "" {
			username = cfg.Username
		} else if parsed.User != nil {
			username = parsed.User.Username()
		}

		switch {
		case cfg.Password != "":
			parsed.User = url.UserPassword(username, cfg.Password)
		case parsed.User != nil:
			if password, ok := parsed.User.Password(); ok {
				parsed.User = url.UserPassword(username, password)
			} else {
				parsed.User = url.User(username)
			}
		default:
			parsed.User = url.User(username)
		}

		uri = parsed.String()
	}

	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres connection: %w", err)
	}

	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns) // default is 2, not retaining connections(0) would be detrimental for performance
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Close see [storage.UserBackend].Close.
func (d *Datastore) Close() {
	if d.dbStatsCollector != nil {
		prometheus.Unregister(d.dbStatsCollector)
	}
	d.db.Close()
}

// CreateUser see [storage.UserBackend].CreateUser.
func (d *Datastore) CreateUser(ctx context.Context, user storage.User) (storage.User, error) {
	ctx, span := startTrace(ctx, "CreateUser")
	defer span.End()

	return sqlcommon.InsertUser(ctx, d.dbInfo, user)
}

// GetUser see [storage.UserBackend].GetUser.
func (d *Datastore) GetUser(ctx context.Context, id string) (storage.User, error) {
	ctx, span := startTrace(ctx, "GetUser")
	defer span.End()

	return sqlcommon.GetUserBy(ctx, d.dbInfo, "id", id)
}

// GetUserByUsername see [storage.UserBackend].GetUserByUsername.
func (d *Datastore) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	ctx, span := startTrace(ctx, "GetUserByUsername")
	defer span.End()

	return sqlcommon.GetUserBy(ctx, d.dbInfo, "username", username)
}

// UpdateUserPassword see [storage.UserBackend].UpdateUserPassword.
func (d *Datastore) UpdateUserPassword(ctx context.Context, id string, password *string) error {
	ctx, span := startTrace(ctx, "UpdateUserPassword")
	defer span.End()

	return sqlcommon.UpdateUserPassword(ctx, d.dbInfo, id, password)
}

// ListUsers see [storage.UserBackend].ListUsers.
func (d *Datastore) ListUsers(ctx context.Context, opts storage.ListUsersOptions) ([]storage.User, error) {
	ctx, span := startTrace(ctx, "ListUsers")
	defer span.End()

	return sqlcommon.ListUsers(ctx, d.dbInfo, opts)
}

// DeleteUser see [storage.UserBackend].DeleteUser.
func (d *Datastore) DeleteUser(ctx context.Context, id string) error {
	ctx, span := startTrace(ctx, "DeleteUser")
	defer span.End()

	return sqlcommon.DeleteUser(ctx, d.dbInfo, id)
}

// IsReady see [storage.UserBackend].IsReady.
func (d *Datastore) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	ctx, span := startTrace(ctx, "IsReady")
	defer span.End()

	return sqlcommon.IsReady(ctx, false, d.db, database.DialectPostgres)
}

// HandleSQLError processes an SQL error and converts it into a storage error.
func HandleSQLError(err error, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, context.Canceled) {
		return storage.ErrCancelled
	}

	if strings.Contains(err.Error(), "duplicate key value") {
		return storage.ErrCollision
	}

	return fmt.Errorf("sql error: %w", err)
}
