package storage

import "errors"

var (
	// Creation errors

	// ErrCollision if a user with the same id or username already exists
	// within the store.
	ErrCollision = errors.New("user already exists")

	// Write errors

	// ErrInvalidPassword if a password exceeds the bound of the
	// users.password column.
	ErrInvalidPassword = errors.New("password exceeds maximum length")

	// Shared errors

	ErrCancelled = errors.New("request has been cancelled")
	ErrNotFound  = errors.New("not found")
)
