package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/internal/presentation/tui"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/runner"
)

// ChatOptions configures RunChat.
type ChatOptions struct {
	// SessionID resumes or creates a named session. Empty creates a fresh one.
	SessionID string
	Profile   domain.Profile
	// JSON switches to JSON-Lines input and output.
	JSON bool
	// Interactive enables the banner, markdown rendering, colors and the typing indicator.
	Interactive bool
	WordWrap    int

	In  io.Reader
	Out io.Writer
}

// RunChat plays one conversation in the terminal until the user quits.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	quiet := opts.JSON || !opts.Interactive

	if !quiet {
		tui.PrintBanner(opts.Out, talisman.Version)
	}

	conv, loaded, err := app.Sessions.LoadOrCreate(ctx, opts.SessionID, opts.Profile)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}
	logSessionStatus(app.Logger, opts.Out, conv.ID(), conv.State().Step, loaded, quiet)

	runnerOpts := []runner.Option{
		runner.WithLogger(app.Logger),
		runner.WithReplay(loaded),
	}
	if opts.JSON {
		runnerOpts = append(runnerOpts, runner.WithInputHandler(runner.NewJSONHandler(opts.In, opts.Out)))
	} else {
		var handlerOpts []runner.TextHandlerOption
		if opts.Interactive {
			handlerOpts = append(handlerOpts,
				runner.WithTextHandlerRenderer(tui.NewRenderer(opts.WordWrap)),
				runner.WithTextHandlerStyler(tui.NewTheme(opts.Out)),
				runner.WithTypingIndicator(true),
			)
			sm := runner.NewSignalManager(os.Interrupt)
			defer sm.Stop()
			runnerOpts = append(runnerOpts, runner.WithSignalManager(sm))
		}
		runnerOpts = append(runnerOpts, runner.WithInputHandler(runner.NewTextHandler(opts.In, opts.Out, handlerOpts...)))
	}

	runErr := runner.NewRunner(runnerOpts...).Run(ctx, conv)

	// The write-behind may lag behind the last turn; flush before reporting.
	persistCtx := context.WithoutCancel(ctx)
	if err := app.Sessions.Persist(persistCtx, conv.ID()); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		app.Logger.Warn("final session save failed", "session_id", conv.ID(), "err", err)
	}
	if !quiet {
		printSystemMessage(opts.Out, "Session '%s' paused at %s.", conv.ID(), conv.State().Step)
	}
	return runErr
}
