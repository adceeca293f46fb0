package sequencer

import "time"

// TypingFunc maps the length of a turn (in runes) to how long its placeholder is shown.
type TypingFunc func(runes int) time.Duration

// ZeroDelay is a TypingFunc that reveals turns immediately.
func ZeroDelay(int) time.Duration { return 0 }

// Pacer is the default typing heuristic: a per-rune rate clamped to a window so that
// short turns are not instant and long turns are not tedious.
type Pacer struct {
	PerRune   time.Duration
	MinTyping time.Duration
	MaxTyping time.Duration
}

// DefaultPacer returns the pacing used by the chat UI.
func DefaultPacer() Pacer {
	return Pacer{
		PerRune:   40 * time.Millisecond,
		MinTyping: 600 * time.Millisecond,
		MaxTyping: 2500 * time.Millisecond,
	}
}

// Typing returns the typing duration for a turn of the given length.
func (p Pacer) Typing(runes int) time.Duration {
	return p.Clamp(time.Duration(runes) * p.PerRune)
}

// Clamp bounds d to [MinTyping, MaxTyping].
func (p Pacer) Clamp(d time.Duration) time.Duration {
	if d < p.MinTyping {
		d = p.MinTyping
	}
	if d > p.MaxTyping {
		d = p.MaxTyping
	}
	return d
}
