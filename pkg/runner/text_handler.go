package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/muesli/termenv"
)

// Styler decorates the pieces of the text interface.
type Styler interface {
	User(text string) string
	Option(n int, label string) string
	Muted(text string) string
}

type plainStyler struct{}

func (plainStyler) User(text string) string           { return "› " + text }
func (plainStyler) Option(n int, label string) string { return fmt.Sprintf("  %d. %s", n, label) }
func (plainStyler) Muted(text string) string          { return text }

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Styler   Styler
	// Typing shows a transient indicator while a turn is being typed. It relies on
	// ANSI line erasure and should only be enabled on terminals.
	Typing bool

	mu        sync.Mutex
	indicator bool

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerStyler configures the decoration of labels and options.
func WithTextHandlerStyler(s Styler) TextHandlerOption {
	return func(h *TextHandler) {
		h.Styler = s
	}
}

// WithTypingIndicator toggles the typing indicator.
func WithTypingIndicator(enabled bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Typing = enabled
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Styler: plainStyler{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult, DefaultInputBufferSize)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honor context cancellation.
func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			return
		}
	}
}

func (h *TextHandler) Turn(ctx context.Context, ev domain.TurnEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev.Kind {
	case domain.TurnTyping:
		if h.Typing && !h.indicator {
			fmt.Fprint(h.Writer, h.Styler.Muted("  · · ·"))
			h.indicator = true
		}
	case domain.TurnRevealed:
		h.clearIndicator()
		if ev.Turn != nil {
			h.writeTurn(*ev.Turn)
		}
	case domain.TurnReset:
		h.clearIndicator()
		fmt.Fprintln(h.Writer)
	}
	return nil
}

func (h *TextHandler) clearIndicator() {
	if h.indicator {
		fmt.Fprint(h.Writer, "\r"+termenv.CSI+termenv.EraseEntireLineSeq)
		h.indicator = false
	}
}

func (h *TextHandler) writeTurn(t domain.Turn) {
	if t.Sender == domain.SenderUser {
		fmt.Fprintln(h.Writer, h.Styler.User(t.Text))
		return
	}
	output := t.Text
	if h.Renderer != nil {
		if rendered, err := h.Renderer(t.Text); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	if t.ImageRef != "" {
		fmt.Fprintln(h.Writer, h.Styler.Muted("  부적: "+t.ImageRef))
	}
}

func (h *TextHandler) Prompt(ctx context.Context, p Prompt) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clearIndicator()
	for i, opt := range p.Options {
		fmt.Fprintln(h.Writer, h.Styler.Option(i+1, opt))
	}
	if len(p.Commands) > 0 {
		fmt.Fprintln(h.Writer, h.Styler.Muted("  "+strings.Join(p.Commands, "  ")))
	}
	return nil
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	h.mu.Lock()
	fmt.Fprint(h.Writer, "> ")
	h.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clearIndicator()
	fmt.Fprintln(h.Writer, h.Styler.Muted("* "+msg))
	return nil
}
