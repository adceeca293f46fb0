package runner

import (
	"log/slog"
)

// DefaultInputBufferSize is the number of read-ahead lines kept by the input pump.
const DefaultInputBufferSize = 64

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSignalManager makes Ctrl+C interrupt the running narration instead of the process.
// A second Ctrl+C at the prompt ends the loop.
func WithSignalManager(sm *SignalManager) Option {
	return func(r *Runner) {
		r.Signals = sm
	}
}

// WithReplay re-emits the transcript of a resumed conversation before the first prompt.
func WithReplay(replay bool) Option {
	return func(r *Runner) {
		r.Replay = replay
	}
}
