package main

import (
	"os"

	"github.com/userstore/userstore/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	migrateCmd := cmd.NewMigrateCommand()
	rootCmd.AddCommand(migrateCmd)

	versionCmd := cmd.NewVersionCommand()
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
