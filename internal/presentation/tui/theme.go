package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Theme colors the chat interface for the color profile of its writer.
type Theme struct {
	out *termenv.Output
}

// NewTheme creates a theme for w.
func NewTheme(w io.Writer) *Theme {
	return &Theme{out: termenv.NewOutput(w)}
}

// User styles an echoed user turn.
func (t *Theme) User(text string) string {
	return t.out.String("› " + text).Foreground(t.out.Color("#fbbf24")).Bold().String()
}

// Option styles a numbered option.
func (t *Theme) Option(n int, label string) string {
	num := t.out.String(fmt.Sprintf("%d.", n)).Foreground(t.out.Color("#f97316"))
	return fmt.Sprintf("  %s %s", num, label)
}

// Muted styles hints and system messages.
func (t *Theme) Muted(text string) string {
	return t.out.String(text).Faint().String()
}
