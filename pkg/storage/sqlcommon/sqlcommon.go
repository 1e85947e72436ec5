// Package sqlcommon contains utility functions shared among all SQL data stores.
package sqlcommon

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3/database"

	"github.com/userstore/userstore/internal/build"
	"github.com/userstore/userstore/pkg/logger"
	"github.com/userstore/userstore/pkg/storage"
)

// Config defines the configuration parameters
// for setting up and managing a sql connection.
type Config struct {
	Username string
	Password string
	Logger   logger.Logger

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	ExportMetrics bool
}

// DatastoreOption defines a function type
// used for configuring a Config object.
type DatastoreOption func(*Config)

// WithUsername returns a DatastoreOption that sets the username in the Config.
func WithUsername(username string) DatastoreOption {
	return func(config *Config) {
		config.Username = username
	}
}

// WithPassword returns a DatastoreOption that sets the password in the Config.
func WithPassword(password string) DatastoreOption {
	return func(config *Config) {
		config.Password = password
	}
}

// WithLogger returns a DatastoreOption that sets the Logger in the Config.
func WithLogger(l logger.Logger) DatastoreOption {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMaxOpenConns returns a DatastoreOption that sets the
// maximum number of open connections in the Config.
func WithMaxOpenConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxOpenConns = c
	}
}

// WithMaxIdleConns returns a DatastoreOption that sets the
// maximum number of idle connections in the Config.
func WithMaxIdleConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxIdleConns = c
	}
}

// WithConnMaxIdleTime returns a DatastoreOption that sets
// the maximum idle time for a connection in the Config.
func WithConnMaxIdleTime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxIdleTime = d
	}
}

// WithConnMaxLifetime returns a DatastoreOption that sets
// the maximum lifetime for a connection in the Config.
func WithConnMaxLifetime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxLifetime = d
	}
}

// WithMetrics returns a DatastoreOption that enables
// the export of metrics in the Config.
func WithMetrics() DatastoreOption {
	return func(cfg *Config) {
		cfg.ExportMetrics = true
	}
}

// NewConfig creates a new Config with default values,
// applying any provided options.
func NewConfig(opts ...DatastoreOption) *Config {
	cfg := &Config{
		Logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

type errorHandlerFn func(error, ...interface{}) error

// DBInfo encapsulates DB information for use in common method.
type DBInfo struct {
	stbl    sq.StatementBuilderType
	dialect string

	HandleSQLError errorHandlerFn
}

// NewDBInfo constructs a [DBInfo] object.
func NewDBInfo(stbl sq.StatementBuilderType, errorHandler errorHandlerFn, dialect string) *DBInfo {
	return &DBInfo{
		stbl:           stbl,
		dialect:        dialect,
		HandleSQLError: errorHandler,
	}
}

// InsertUser writes a new user row. An id is assigned when user.ID is empty.
// A password set on the user is validated and persisted.
func InsertUser(ctx context.Context, dbInfo *DBInfo, user storage.User) (storage.User, error) {
	if err := storage.ValidatePassword(user.Password); err != nil {
		return storage.User{}, err
	}

	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	var email interface{}
	if user.Email != "" {
		email = user.Email
	}

	var password interface{}
	if user.Password != nil {
		password = *user.Password
	}

	_, err := dbInfo.stbl.
		Insert("users").
		Columns("id", "username", "email", "password", "created_at").
		Values(user.ID, user.Username, email, password, user.CreatedAt).
		ExecContext(ctx)
	if err != nil {
		return storage.User{}, dbInfo.HandleSQLError(err)
	}

	return user, nil
}

// GetUserBy reads a single user row matching the given column value.
func GetUserBy(ctx context.Context, dbInfo *DBInfo, column, value string) (storage.User, error) {
	row := dbInfo.stbl.
		Select("id", "username", "email", "password", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{column: value}).
		QueryRowContext(ctx)

	user, err := scanUser(row)
	if err != nil {
		return storage.User{}, dbInfo.HandleSQLError(err)
	}

	return user, nil
}

// UpdateUserPassword sets or clears the password column for a user row.
func UpdateUserPassword(ctx context.Context, dbInfo *DBInfo, id string, password *string) error {
	if err := storage.ValidatePassword(password); err != nil {
		return err
	}

	var value interface{}
	if password != nil {
		value = *password
	}

	res, err := dbInfo.stbl.
		Update("users").
		Set("password", value).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return dbInfo.HandleSQLError(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return dbInfo.HandleSQLError(err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// ListUsers reads a page of user rows ordered by id.
func ListUsers(ctx context.Context, dbInfo *DBInfo, opts storage.ListUsersOptions) ([]storage.User, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = storage.DefaultPageSize
	}

	sb := dbInfo.stbl.
		Select("id", "username", "email", "password", "created_at", "updated_at").
		From("users").
		OrderBy("id").
		Limit(uint64(pageSize))

	if opts.AfterID != "" {
		sb = sb.Where(sq.Gt{"id": opts.AfterID})
	}

	rows, err := sb.QueryContext(ctx)
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	defer func() { _ = rows.Close() }()

	var users []storage.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, dbInfo.HandleSQLError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}

	return users, nil
}

// DeleteUser removes a user row by id.
func DeleteUser(ctx context.Context, dbInfo *DBInfo, id string) error {
	res, err := dbInfo.stbl.
		Delete("users").
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return dbInfo.HandleSQLError(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return dbInfo.HandleSQLError(err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (storage.User, error) {
	var (
		user      storage.User
		email     sql.NullString
		password  sql.NullString
		updatedAt sql.NullTime
	)

	err := row.Scan(&user.ID, &user.Username, &email, &password, &user.CreatedAt, &updatedAt)
	if err != nil {
		return storage.User{}, err
	}

	if email.Valid {
		user.Email = email.String
	}
	if password.Valid {
		user.Password = &password.String
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		user.UpdatedAt = &t
	}

	return user, nil
}

// IsReady returns the readiness status of a sql connection, checking that the
// schema revision is at least the minimum the datastore code was built against.
func IsReady(ctx context.Context, skipVersionCheck bool, db *sql.DB, dialect database.Dialect) (storage.ReadinessStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// do ping first to ensure we have better error message
	// if error is due to connection issue.
	if pingErr := db.PingContext(ctx); pingErr != nil {
		return storage.ReadinessStatus{}, pingErr
	}

	if skipVersionCheck {
		return storage.ReadinessStatus{
			IsReady: true,
		}, nil
	}

	store, err := database.NewStore(dialect, "goose_db_version")
	if err != nil {
		return storage.ReadinessStatus{}, err
	}

	revision, err := store.GetLatestVersion(ctx, db)
	if err != nil {
		if errors.Is(err, database.ErrVersionNotFound) {
			revision = 0
		} else {
			return storage.ReadinessStatus{}, err
		}
	}

	if revision < build.MinimumSupportedDatastoreSchemaRevision {
		return storage.ReadinessStatus{
			Message: "datastore requires migrations: at revision '" +
				strconv.FormatInt(revision, 10) +
				"', but requires '" +
				strconv.FormatInt(build.MinimumSupportedDatastoreSchemaRevision, 10) +
				"'. Run 'userstore migrate'.",
			IsReady: false,
		}, nil
	}
	return storage.ReadinessStatus{
		IsReady: true,
	}, nil
}
