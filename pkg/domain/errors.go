package domain

import "errors"

// ErrBusy is returned when an event arrives while the conversation is still processing
// another event or a turn is being typed. The event is dropped, not queued.
var ErrBusy = errors.New("conversation busy")

// ErrEmptyInput is returned when free text is empty or whitespace-only.
var ErrEmptyInput = errors.New("empty input")

// ErrInvalidOption is returned when a selection is not among the offered options.
var ErrInvalidOption = errors.New("option not offered")

// ErrInvalidTransition is returned when an event has no transition from the current step.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrNoResult is returned when an artifact is requested before a fortune result was shown.
var ErrNoResult = errors.New("no fortune result available")

// ErrNotResultTurn is returned when a reaction targets a turn other than the result turn.
var ErrNotResultTurn = errors.New("turn is not the result turn")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrConsultationNotFound is returned when a saved consultation does not exist.
var ErrConsultationNotFound = errors.New("consultation not found")
