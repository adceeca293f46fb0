package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/talisman/internal/cli"
	"github.com/aretw0/talisman/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "talisman",
	Short: "Talisman is a guided fortune-telling dialogue engine",
	Long: `Talisman walks a user through a concern taxonomy, asks a fortune backend for a
reading, narrates it turn by turn and can draw a talisman image for the result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path, flagOverrides(cmd))
		if err != nil {
			return err
		}
		cfg = loaded
		logger, err = cli.NewLogger(os.Stderr, cfg.Log)
		return err
	},
}

// flagOverrides applies the persistent flags that were set explicitly.
func flagOverrides(cmd *cobra.Command) func(*config.Config) {
	return func(c *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			c.Log.Level, _ = flags.GetString("log-level")
		}
		if flags.Changed("offline") {
			c.Offline, _ = flags.GetBool("offline")
		}
		if flags.Changed("taxonomy") {
			c.Taxonomy, _ = flags.GetString("taxonomy")
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("offline", false, "Use the built-in canned backends instead of remote services")
	rootCmd.PersistentFlags().String("taxonomy", "", "Path to a concern taxonomy YAML file")
}
