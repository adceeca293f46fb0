package runner

import (
	"context"

	"github.com/aretw0/talisman/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
// Turn may be called from background goroutines while Input is blocked, so
// implementations must serialize their writes.
type IOHandler interface {
	// Turn presents a transcript change.
	Turn(ctx context.Context, ev domain.TurnEvent) error

	// Prompt presents what the user can answer next.
	Prompt(ctx context.Context, p Prompt) error

	// Input reads a response from the user.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (errors, command results).
	// This is distinct from the transcript.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer renders turn text for display, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)

// Prompt describes the answers accepted at the current step.
type Prompt struct {
	Step     domain.Step `json:"step"`
	Options  []string    `json:"options,omitempty"`
	FreeText bool        `json:"free_text,omitempty"`
	Commands []string    `json:"commands,omitempty"`
}
