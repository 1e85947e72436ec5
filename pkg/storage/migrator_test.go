package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	engine string
	ran    bool
}

func (f *fakeProvider) RunMigrations(ctx context.Context, config MigrationConfig) error {
	f.ran = true
	return nil
}

func (f *fakeProvider) GetCurrentVersion(ctx context.Context, config MigrationConfig) (int64, error) {
	return 0, nil
}

func (f *fakeProvider) GetSupportedEngine() string {
	return f.engine
}

func TestMigratorRegistry(t *testing.T) {
	t.Run("EmptyRegistry", func(t *testing.T) {
		registry := NewMigratorRegistry()
		_, exists := registry.GetProvider("postgres")
		require.False(t, exists)
		require.Empty(t, registry.GetSupportedEngines())
	})

	t.Run("RegisterAndGet", func(t *testing.T) {
		registry := NewMigratorRegistry()
		provider := &fakeProvider{engine: "postgres"}
		registry.RegisterProvider("postgres", provider)

		got, exists := registry.GetProvider("postgres")
		require.True(t, exists)
		require.Same(t, provider, got.(*fakeProvider))
	})

	t.Run("LastRegistrationWins", func(t *testing.T) {
		registry := NewMigratorRegistry()
		first := &fakeProvider{engine: "sqlite"}
		second := &fakeProvider{engine: "sqlite"}
		registry.RegisterProvider("sqlite", first)
		registry.RegisterProvider("sqlite", second)

		got, exists := registry.GetProvider("sqlite")
		require.True(t, exists)
		require.Same(t, second, got.(*fakeProvider))
	})

	t.Run("SupportedEngines", func(t *testing.T) {
		registry := NewMigratorRegistry()
		registry.RegisterProvider("postgres", &fakeProvider{engine: "postgres"})
		registry.RegisterProvider("mysql", &fakeProvider{engine: "mysql"})
		registry.RegisterProvider("sqlite", &fakeProvider{engine: "sqlite"})

		require.ElementsMatch(t, []string{"postgres", "mysql", "sqlite"}, registry.GetSupportedEngines())
	})
}

func TestValidatePassword(t *testing.T) {
	t.Run("NilIsValid", func(t *testing.T) {
		require.NoError(t, ValidatePassword(nil))
	})

	t.Run("AtBound", func(t *testing.T) {
		password := make([]byte, MaxPasswordLength)
		for i := range password {
			password[i] = 'a'
		}
		s := string(password)
		require.NoError(t, ValidatePassword(&s))
	})

	t.Run("OverBound", func(t *testing.T) {
		password := make([]byte, MaxPasswordLength+1)
		for i := range password {
			password[i] = 'a'
		}
		s := string(password)
		require.ErrorIs(t, ValidatePassword(&s), ErrInvalidPassword)
	})
}
