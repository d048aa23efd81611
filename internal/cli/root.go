// Package cli holds the servicemeow command tree.
package cli

import "github.com/spf13/cobra"

// NewRootCommand returns the servicemeow command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "servicemeow",
		Short:        "ServiceMeow help-desk ticketing service",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newSweepCommand(),
	)
	return root
}
