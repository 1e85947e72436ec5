// Package test contains the storage conformance tests that every
// [storage.UserBackend] implementation must pass.
package test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/userstore/userstore/pkg/storage"
)

// RunAllTests runs the full conformance suite against ds.
func RunAllTests(t *testing.T, ds storage.UserBackend) {
	t.Run("TestDatastoreIsReady", func(t *testing.T) {
		status, err := ds.IsReady(context.Background())
		require.NoError(t, err)
		require.True(t, status.IsReady)
	})

	t.Run("TestCreateAndGetUser", func(t *testing.T) { CreateAndGetUserTest(t, ds) })
	t.Run("TestCreateUserWithPassword", func(t *testing.T) { CreateUserWithPasswordTest(t, ds) })
	t.Run("TestCreateUserCollision", func(t *testing.T) { CreateUserCollisionTest(t, ds) })
	t.Run("TestUpdateUserPassword", func(t *testing.T) { UpdateUserPasswordTest(t, ds) })
	t.Run("TestListUsers", func(t *testing.T) { ListUsersTest(t, ds) })
	t.Run("TestDeleteUser", func(t *testing.T) { DeleteUserTest(t, ds) })
}

// CreateAndGetUserTest checks user creation, id assignment and both lookups.
func CreateAndGetUserTest(t *testing.T, ds storage.UserBackend) {
	ctx := context.Background()

	created, err := ds.CreateUser(ctx, storage.User{
		Username: "anne",
		Email:    "anne@example.com",
	})
	require.NoError(t, err)
	require.Len(t, created.ID, 26)
	require.False(t, created.CreatedAt.IsZero())
	require.Nil(t, created.Password, "a freshly created user has no password")

	byID, err := ds.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, byID.ID)
	require.Equal(t, "anne", byID.Username)
	require.Equal(t, "anne@example.com", byID.Email)
	require.Nil(t, byID.Password)

	byUsername, err := ds.GetUserByUsername(ctx, "anne")
	require.NoError(t, err)
	require.Equal(t, created.ID, byUsername.ID)

	_, err = ds.GetUser(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = ds.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// CreateUserWithPasswordTest checks that a password set at create time is
// validated and persisted.
func CreateUserWithPasswordTest(t *testing.T, ds storage.UserBackend) {
	ctx := context.Background()

	password := "s3cret"
	created, err := ds.CreateUser(ctx, storage.User{
		Username: "heidi",
		Password: &password,
	})
	require.NoError(t, err)

	got, err := ds.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Password)
	require.Equal(t, "s3cret", *got.Password)

	overBound := strings.Repeat("p", storage.MaxPasswordLength+1)
	_, err = ds.CreateUser(ctx, storage.User{
		Username: "ivan",
		Password: &overBound,
	})
	require.ErrorIs(t, err, storage.ErrInvalidPassword)

	// The rejected create must not have written the user.
	_, err = ds.GetUserByUsername(ctx, "ivan")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// CreateUserCollisionTest checks the unique username constraint.
func CreateUserCollisionTest(t *testing.T, ds storage.UserBackend) {
	ctx := context.Background()

	_, err := ds.CreateUser(ctx, storage.User{Username: "bob"})
	require.NoError(t, err)

	_, err = ds.CreateUser(ctx, storage.User{Username: "bob"})
	require.ErrorIs(t, err, storage.ErrCollision)
}

// UpdateUserPasswordTest checks setting, clearing and bounding the password column.
func UpdateUserPasswordTest(t *testing.T, ds storage.UserBackend) {
	ctx := context.Background()

	user, err := ds.CreateUser(ctx, storage.User{Username: "carol"})
	require.NoError(t, err)

	password := "hunter2"
	require.NoError(t, ds.UpdateUserPassword(ctx, user.ID, &password))

	got, err := ds.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Password)
	require.Equal(t, "hunter2", *got.Password)
	require.NotNil(t, got.UpdatedAt)

	// The column is bounded at 32 characters.
	atBound := strings.Repeat("p", storage.MaxPasswordLength)
	require.NoError(t, ds.UpdateUserPassword(ctx, user.ID, &atBound))

	overBound := strings.Repeat("p", storage.MaxPasswordLength+1)
	err = ds.UpdateUserPassword(ctx, user.ID, &overBound)
	require.ErrorIs(t, err, storage.ErrInvalidPassword)

	got, err = ds.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, atBound, *got.Password)

	// The column is nullable: nil clears it.
	require.NoError(t, ds.UpdateUserPassword(ctx, user.ID, nil))
	got, err = ds.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, got.Password)

	err = ds.UpdateUserPassword(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", &password)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// ListUsersTest checks id ordering and keyset pagination.
func ListUsersTest(t *testing.T, ds storage.UserBackend) {
	ctx := context.Background()

	var ids []string
	for _, username := range []string{"dan", "erin", "frank"} {
		user, err := ds.CreateUser(ctx, storage.User{Username: username})
		require.NoError(t, err)
		ids = append(ids, user.ID)
	}

	all, err := ds.ListUsers(ctx, storage.ListUsersOptions{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 3)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].ID, all[i].ID)
	}

	page, err := ds.ListUsers(ctx, storage.ListUsersOptions{PageSize: 1, AfterID: ids[0]})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Greater(t, page[0].ID, ids[0])
}

// DeleteUserTest checks deletion and the not-found path.
func DeleteUserTest(t *testing.T, ds storage.UserBackend) {
	ctx := context.Background()

	user, err := ds.CreateUser(ctx, storage.User{Username: "grace"})
	require.NoError(t, err)

	require.NoError(t, ds.DeleteUser(ctx, user.ID))

	_, err = ds.GetUser(ctx, user.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = ds.DeleteUser(ctx, user.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting frees the username for reuse.
	_, err = ds.CreateUser(ctx, storage.User{Username: "grace"})
	require.NoError(t, err)
}
