package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/talisman/pkg/domain"
)

// Message types written by JSONHandler.
const (
	MessageTurn   = "turn"
	MessagePrompt = "prompt"
	MessageSystem = "system"
)

// Message is one JSON line written by JSONHandler.
type Message struct {
	Type    string            `json:"type"`
	Event   *domain.TurnEvent `json:"event,omitempty"`
	Prompt  *Prompt           `json:"prompt,omitempty"`
	Message string            `json:"message,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder

	mu sync.Mutex
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: enc,
	}
}

func (h *JSONHandler) emit(m Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(m)
}

func (h *JSONHandler) Turn(ctx context.Context, ev domain.TurnEvent) error {
	return h.emit(Message{Type: MessageTurn, Event: &ev})
}

func (h *JSONHandler) Prompt(ctx context.Context, p Prompt) error {
	return h.emit(Message{Type: MessagePrompt, Prompt: &p})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.emit(Message{Type: MessageSystem, Message: msg})
}

// Input reads one line. A JSON string is unquoted and an object's "input" field is
// used; anything else is taken verbatim.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return val, nil
	}
	var obj struct {
		Input string `json:"input"`
	}
	if strings.HasPrefix(text, "{") && json.Unmarshal([]byte(text), &obj) == nil {
		return obj.Input, nil
	}
	return text, nil
}
