package main

import (
	"log"
	"os"

	"github.com/aretw0/talisman/internal/cli"
	"github.com/aretw0/talisman/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Talisman as an MCP server over Standard Input/Output.
AI agents can then run one-shot consultations as tools and read the taxonomy as a resource.
Turns are delivered instantly in this mode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)

		app, closeApp, err := openApp(cli.WithInstant())
		if err != nil {
			return err
		}
		defer closeApp()

		logger.Info("Starting Talisman MCP Server (Stdio)...")
		return mcp.NewServer(app.Engine, mcp.WithLogger(logger)).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
