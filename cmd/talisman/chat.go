package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/talisman/internal/cli"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive consultation in the terminal",
	Long: `Starts a consultation in the terminal. Answer with the number or the label of an
option, or type your concern freely. With --session the conversation is saved and
can be resumed later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		name, _ := cmd.Flags().GetString("name")
		jsonMode, _ := cmd.Flags().GetBool("json")

		interactive := !jsonMode &&
			term.IsTerminal(int(os.Stdin.Fd())) &&
			term.IsTerminal(int(os.Stdout.Fd()))
		wordWrap := 0
		if interactive {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 8 {
				wordWrap = min(w-4, 100)
			}
		}

		app, closeApp, err := openApp()
		if err != nil {
			return err
		}
		defer closeApp()

		var ctx context.Context
		if interactive {
			// Ctrl+C is handled by the chat loop itself.
			var stop context.CancelFunc
			ctx, stop = signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
		} else {
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()
			ctx = sigCtx
		}

		return cli.RunChat(ctx, app, cli.ChatOptions{
			SessionID:   sessionID,
			Profile:     domain.Profile{Name: name},
			JSON:        jsonMode,
			Interactive: interactive,
			WordWrap:    wordWrap,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session ID to resume or create")
	chatCmd.Flags().String("name", "", "Name used to greet the user")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")

	// Make 'chat' the default if no command is provided.
	rootCmd.RunE = chatCmd.RunE
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
}
