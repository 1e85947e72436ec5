// Package memory contains an in-memory implementation of the user datastore,
// used for tests and local development. It is not migrated: the memory engine
// always carries the full schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/userstore/userstore/pkg/storage"
)

var tracer = otel.Tracer("userstore/pkg/storage/memory")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "memory."+name)
}

// Datastore provides an ephemeral memory-backed implementation of [storage.UserBackend].
type Datastore struct {
	mu sync.RWMutex

	// users is keyed by user id.
	users map[string]storage.User

	// usernames maps username to user id, mirroring the unique index
	// the SQL engines get from the schema.
	usernames map[string]string
}

// Ensures that Datastore implements the UserBackend interface.
var _ storage.UserBackend = (*Datastore)(nil)

// New creates a new [Datastore] storage.
func New() *Datastore {
	return &Datastore{
		users:     make(map[string]storage.User),
		usernames: make(map[string]string),
	}
}

// CreateUser see [storage.UserBackend].CreateUser.
func (d *Datastore) CreateUser(ctx context.Context, user storage.User) (storage.User, error) {
	_, span := startTrace(ctx, "CreateUser")
	defer span.End()

	if err := storage.ValidatePassword(user.Password); err != nil {
		return storage.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	if user.Password != nil {
		p := *user.Password
		user.Password = &p
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, ok := d.users[user.ID]; ok {
		return storage.User{}, storage.ErrCollision
	}
	if _, ok := d.usernames[user.Username]; ok {
		return storage.User{}, storage.ErrCollision
	}

	d.users[user.ID] = user
	d.usernames[user.Username] = user.ID

	return user, nil
}

// GetUser see [storage.UserBackend].GetUser.
func (d *Datastore) GetUser(ctx context.Context, id string) (storage.User, error) {
	_, span := startTrace(ctx, "GetUser")
	defer span.End()

	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}

	return user, nil
}

// GetUserByUsername see [storage.UserBackend].GetUserByUsername.
func (d *Datastore) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	_, span := startTrace(ctx, "GetUserByUsername")
	defer span.End()

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.usernames[username]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}

	return d.users[id], nil
}

// UpdateUserPassword see [storage.UserBackend].UpdateUserPassword.
func (d *Datastore) UpdateUserPassword(ctx context.Context, id string, password *string) error {
	_, span := startTrace(ctx, "UpdateUserPassword")
	defer span.End()

	if err := storage.ValidatePassword(password); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[id]
	if !ok {
		return storage.ErrNotFound
	}

	if password != nil {
		p := *password
		user.Password = &p
	} else {
		user.Password = nil
	}

	now := time.Now().UTC()
	user.UpdatedAt = &now
	d.users[id] = user

	return nil
}

// ListUsers see [storage.UserBackend].ListUsers.
func (d *Datastore) ListUsers(ctx context.Context, opts storage.ListUsersOptions) ([]storage.User, error) {
	_, span := startTrace(ctx, "ListUsers")
	defer span.End()

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = storage.DefaultPageSize
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]storage.User, 0, len(d.users))
	for _, user := range d.users {
		if opts.AfterID != "" && user.ID <= opts.AfterID {
			continue
		}
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	if len(users) > pageSize {
		users = users[:pageSize]
	}

	return users, nil
}

// DeleteUser see [storage.UserBackend].DeleteUser.
func (d *Datastore) DeleteUser(ctx context.Context, id string) error {
	_, span := startTrace(ctx, "DeleteUser")
	defer span.End()

	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[id]
	if !ok {
		return storage.ErrNotFound
	}

	delete(d.usernames, user.Username)
	delete(d.users, id)

	return nil
}

// IsReady see [storage.UserBackend].IsReady.
func (d *Datastore) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	_, span := startTrace(ctx, "IsReady")
	defer span.End()

	return storage.ReadinessStatus{IsReady: true}, nil
}

// Close does not do anything for [Datastore].
func (d *Datastore) Close() {}
