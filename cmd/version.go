package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/userstore/userstore/internal/build"
)

// NewVersionCommand returns the command to get the userstore version.
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the userstore version",
		Long:  "Return the userstore version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(_ *cobra.Command, _ []string) error {
	log.Printf("%s version %s date %s commit id %s", build.ProjectName, build.Version, build.Date, build.Commit)
	return nil
}
