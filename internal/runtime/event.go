package runtime

import (
	"context"
	"errors"
)

// EventKind names an input of the dialogue state machine.
type EventKind string

const (
	EventStart   EventKind = "start"
	EventSelect  EventKind = "select"
	EventText    EventKind = "text"
	EventRestart EventKind = "restart"
)

// Option labels offered next to the taxonomy options.
const (
	OptionDirectInput = "직접 입력하기"
	OptionRestart     = "처음으로"
)

// Event is one user input.
type Event struct {
	Kind  EventKind `json:"kind"`
	Value string    `json:"value,omitempty"`
}

// Start begins a conversation.
func Start() Event { return Event{Kind: EventStart} }

// Select picks one of the offered options.
func Select(option string) Event { return Event{Kind: EventSelect, Value: option} }

// Text submits a free-text concern.
func Text(s string) Event { return Event{Kind: EventText, Value: s} }

// Restart clears the conversation and replays the welcome.
func Restart() Event { return Event{Kind: EventRestart} }

var (
	// ErrArtifactsDisabled is returned when no artifact backend is configured.
	ErrArtifactsDisabled = errors.New("artifact generation is not configured")
	// ErrSaveDisabled is returned when no consultation store is configured.
	ErrSaveDisabled = errors.New("consultation store is not configured")
	// ErrEmptyFortune is reported when inference returns no paragraphs.
	ErrEmptyFortune = errors.New("inference returned no paragraphs")
	// ErrClosed is returned once the conversation was closed.
	ErrClosed = errors.New("conversation closed")
)

// effect is the side-effecting half of a transition. It runs after validation succeeded
// and while the busy guard is held.
type effect func(ctx context.Context) error
