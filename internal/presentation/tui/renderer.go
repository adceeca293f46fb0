package tui

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWordWrap is the column at which rendered turns wrap.
const DefaultWordWrap = 72

// NewRenderer returns a function that renders markdown using glamour, following the
// terminal's light or dark background. It falls back to the raw text when the
// renderer cannot be built.
func NewRenderer(wordWrap int) func(string) (string, error) {
	if wordWrap <= 0 {
		wordWrap = DefaultWordWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
		glamour.WithEmoji(),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
