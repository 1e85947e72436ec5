package sqlcommon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/userstore/userstore/pkg/logger"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg.Logger)
	require.Empty(t, cfg.Username)
	require.Empty(t, cfg.Password)
	require.Zero(t, cfg.MaxOpenConns)
	require.False(t, cfg.ExportMetrics)
}

func TestNewConfigOptions(t *testing.T) {
	l := logger.NewNoopLogger()

	cfg := NewConfig(
		WithUsername("user"),
		WithPassword("pass"),
		WithLogger(l),
		WithMaxOpenConns(30),
		WithMaxIdleConns(10),
		WithConnMaxIdleTime(2*time.Minute),
		WithConnMaxLifetime(10*time.Minute),
		WithMetrics(),
	)

	require.Equal(t, "user", cfg.Username)
	require.Equal(t, "pass", cfg.Password)
	require.Equal(t, l, cfg.Logger)
	require.Equal(t, 30, cfg.MaxOpenConns)
	require.Equal(t, 10, cfg.MaxIdleConns)
	require.Equal(t, 2*time.Minute, cfg.ConnMaxIdleTime)
	require.Equal(t, 10*time.Minute, cfg.ConnMaxLifetime)
	require.True(t, cfg.ExportMetrics)
}
