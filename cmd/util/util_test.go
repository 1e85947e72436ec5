package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestMustBindPFlag(t *testing.T) {
	viper.Reset()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("some-flag", "default", "")

	require.NotPanics(t, func() {
		MustBindPFlag("some-flag", flags.Lookup("some-flag"))
	})
	require.Equal(t, "default", viper.GetString("some-flag"))
}

func TestPrepareTempConfigFile(t *testing.T) {
	PrepareTempConfigFile(t, "datastore:\n    engine: sqlite\n")

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(home, ".userstore", "config.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(content), "engine: sqlite")
}
