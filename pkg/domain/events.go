package domain

import (
	"context"
	"time"
)

// TransitionEvent is emitted whenever the dialogue moves between steps.
type TransitionEvent struct {
	SessionID string `json:"session_id"`
	From      Step   `json:"from"`
	To        Step   `json:"to"`
	Event     string `json:"event"`
}

// InferenceEvent reports one inference round trip.
type InferenceEvent struct {
	SessionID  string        `json:"session_id"`
	FreeText   bool          `json:"free_text"`
	Paragraphs int           `json:"paragraphs"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// ArtifactEvent reports the terminal outcome of a generation job.
type ArtifactEvent struct {
	SessionID string        `json:"session_id"`
	Job       GenerationJob `json:"job"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// SaveEvent reports a consultation save attempt.
type SaveEvent struct {
	SessionID      string `json:"session_id"`
	ConsultationID string `json:"consultation_id,omitempty"`
	Err            error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnTurn       func(context.Context, string, TurnEvent)
	OnTransition func(context.Context, *TransitionEvent)
	OnInference  func(context.Context, *InferenceEvent)
	OnArtifact   func(context.Context, *ArtifactEvent)
	OnSave       func(context.Context, *SaveEvent)
}
