package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/userstore/userstore/pkg/storage"
	"github.com/userstore/userstore/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("userstore/pkg/storage/mysql")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mysql."+name)
}

// MySQL provides a MySQL based implementation of [storage.UserBackend].
type MySQL struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	dbStatsCollector prometheus.Collector
}

// Ensures that MySQL implements the UserBackend interface.
var _ storage.UserBackend = (*MySQL)(nil)

// New creates a new [MySQL] storage.
func New(uri string, cfg *sqlcommon.Config) (*MySQL, error) {
	dsnCfg, err := mysql.ParseDSN(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql connection dsn: %w", err)
	}

	if cfg.Username != "" {
		dsnCfg.User = cfg.Username
	}
	if cfg.Password != "" {
		dsnCfg.Passwd = cfg.Password
	}

	// DATETIME columns scan into time.Time only with parseTime enabled.
	dsnCfg.ParseTime = true

	db, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}

	if cfg.MaxOpenConns != 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxIdleTime != 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if cfg.ConnMaxLifetime != 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 1 * time.Minute
	attempt := 1
	err = backoff.Retry(func() error {
		err = db.PingContext(context.Background())
		if err != nil {
			cfg.Logger.Info("waiting for mysql", zap.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}

	return NewWithDB(db, cfg)
}

// NewWithDB creates a new [MySQL] storage with the provided database connection.
func NewWithDB(db *sql.DB, cfg *sqlcommon.Config) (*MySQL, error) {
	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, "userstore")
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	stbl := sq.StatementBuilder.RunWith(db)
	dbInfo := sqlcommon.NewDBInfo(stbl, HandleSQLError, "mysql")

	return &MySQL{
		db:               db,
		dbInfo:           dbInfo,
		dbStatsCollector: collector,
	}, nil
}

// Close see [storage.UserBackend].Close.
func (m *MySQL) Close() {
	if m.dbStatsCollector != nil {
		prometheus.Unregister(m.dbStatsCollector)
	}
	m.db.Close()
}

// CreateUser see [storage.UserBackend].CreateUser.
func (m *MySQL) CreateUser(ctx context.Context, user storage.User) (storage.User, error) {
	ctx, span := startTrace(ctx, "CreateUser")
	defer span.End()

	return sqlcommon.InsertUser(ctx, m.dbInfo, user)
}

// GetUser see [storage.UserBackend].GetUser.
func (m *MySQL) GetUser(ctx context.Context, id string) (storage.User, error) {
	ctx, span := startTrace(ctx, "GetUser")
	defer span.End()

	return sqlcommon.GetUserBy(ctx, m.dbInfo, "id", id)
}

// GetUserByUsername see [storage.UserBackend].GetUserByUsername.
func (m *MySQL) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	ctx, span := startTrace(ctx, "GetUserByUsername")
	defer span.End()

	return sqlcommon.GetUserBy(ctx, m.dbInfo, "username", username)
}

// UpdateUserPassword see [storage.UserBackend].UpdateUserPassword.
func (m *MySQL) UpdateUserPassword(ctx context.Context, id string, password *string) error {
	ctx, span := startTrace(ctx, "UpdateUserPassword")
	defer span.End()

	return sqlcommon.UpdateUserPassword(ctx, m.dbInfo, id, password)
}

// ListUsers see [storage.UserBackend].ListUsers.
func (m *MySQL) ListUsers(ctx context.Context, opts storage.ListUsersOptions) ([]storage.User, error) {
	ctx, span := startTrace(ctx, "ListUsers")
	defer span.End()

	return sqlcommon.ListUsers(ctx, m.dbInfo, opts)
}

// DeleteUser see [storage.UserBackend].DeleteUser.
func (m *MySQL) DeleteUser(ctx context.Context, id string) error {
	ctx, span := startTrace(ctx, "DeleteUser")
	defer span.End()

	return sqlcommon.DeleteUser(ctx, m.dbInfo, id)
}

// IsReady see [storage.UserBackend].IsReady.
func (m *MySQL) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	ctx, span := startTrace(ctx, "IsReady")
	defer span.End()

	return sqlcommon.IsReady(ctx, false, m.db, database.DialectMySQL)
}

// HandleSQLError processes an SQL error and converts it into a storage error.
func HandleSQLError(err error, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, context.Canceled) {
		return storage.ErrCancelled
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return storage.ErrCollision
	}

	return fmt.Errorf("sql error: %w", err)
}
