package domain

import "time"

// Sender identifies the author of a turn.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Turn is one delivered message of the conversation.
// A Turn is immutable once appended to the transcript.
type Turn struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	ImageRef  string    `json:"image_ref,omitempty"`
	IsResult  bool      `json:"is_result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Placeholder is the transient "typing" marker shown while a turn is being delivered.
// It is a rendering artifact only and never becomes part of a transcript.
type Placeholder struct {
	Sender   Sender `json:"sender"`
	Position int    `json:"position"`
}

// TurnEventKind describes what happened to the transcript.
type TurnEventKind string

const (
	TurnTyping   TurnEventKind = "typing"
	TurnRevealed TurnEventKind = "revealed"
	TurnReset    TurnEventKind = "reset"
)

// TurnEvent is emitted by the sequencer for every visible transcript change.
type TurnEvent struct {
	Kind        TurnEventKind `json:"kind"`
	Turn        *Turn         `json:"turn,omitempty"`
	Placeholder *Placeholder  `json:"placeholder,omitempty"`
}

// ResultTurn returns the last result turn of a transcript, if any.
func ResultTurn(transcript []Turn) (Turn, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].IsResult {
			return transcript[i], true
		}
	}
	return Turn{}, false
}
