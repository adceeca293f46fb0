package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/talisman"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of talisman",
	// Skip configuration loading.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "talisman version %s\n", strings.TrimSpace(talisman.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
