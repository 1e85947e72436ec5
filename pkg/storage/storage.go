// Package storage contains storage interfaces and implementations for the user datastore.
package storage

import (
	"context"
	"time"
)

// MaxPasswordLength is the maximum number of bytes the users.password column
// can hold. The column is defined as VARCHAR(32).
const MaxPasswordLength = 32

// DefaultPageSize is the number of users returned by ListUsers when the
// caller does not provide a page size.
const DefaultPageSize = 50

// User is a single row of the users table.
type User struct {
	// ID is a 26 character ULID assigned by the datastore on create.
	ID string

	// Username is unique across the store.
	Username string

	// Email may be empty.
	Email string

	// Password is the legacy bounded password field added by schema
	// migration 2. It is nullable: nil means no password is set.
	Password *string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ListUsersOptions configures a ListUsers call.
type ListUsersOptions struct {
	// PageSize bounds the number of users returned. Zero or negative
	// values fall back to DefaultPageSize.
	PageSize int

	// AfterID returns users with an id strictly greater than this value.
	// Combined with the id ordering this gives keyset pagination.
	AfterID string
}

// UserBackend represents a data store that supports reading and writing users.
type UserBackend interface {
	// CreateUser writes a new user. If user.ID is empty an id is assigned.
	// A non-nil user.Password is persisted; passwords longer than
	// MaxPasswordLength must be rejected with ErrInvalidPassword before
	// the datastore is touched. It must return ErrCollision if the
	// username (or id) already exists.
	CreateUser(ctx context.Context, user User) (User, error)

	// GetUser reads a user by id. If none is found, it must return ErrNotFound.
	GetUser(ctx context.Context, id string) (User, error)

	// GetUserByUsername reads a user by username. If none is found, it must
	// return ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (User, error)

	// UpdateUserPassword sets or clears the password column for a user.
	// A nil password clears the column. Passwords longer than
	// MaxPasswordLength must be rejected with ErrInvalidPassword before
	// the datastore is touched.
	UpdateUserPassword(ctx context.Context, id string, password *string) error

	// ListUsers returns users ordered by id.
	ListUsers(ctx context.Context, opts ListUsersOptions) ([]User, error)

	// DeleteUser removes a user by id. If none is found, it must return
	// ErrNotFound.
	DeleteUser(ctx context.Context, id string) error

	// IsReady reports whether the datastore is ready to accept traffic.
	IsReady(ctx context.Context) (ReadinessStatus, error)

	// Close releases the resources held by the datastore.
	Close()
}

// ReadinessStatus carries the result of an IsReady probe.
type ReadinessStatus struct {
	// Message is a human-friendly status message, empty when healthy.
	Message string

	IsReady bool
}

// ValidatePassword checks the bound on the password column. A nil password
// is always valid because the column is nullable.
func ValidatePassword(password *string) error {
	if password != nil && len(*password) > MaxPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}
