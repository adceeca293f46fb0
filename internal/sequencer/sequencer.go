// Package sequencer paces the delivery of conversation turns.
//
// Every delivery shows a typing placeholder, waits a duration derived from the turn's
// length, reveals the turn in place and then pauses so the reader can settle. Deliveries
// are strictly serialized: at most one placeholder exists at any time and the transcript
// preserves call order.
package sequencer

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/google/uuid"
)

// Draft is the content of a turn before it is delivered.
type Draft struct {
	Sender   domain.Sender
	Text     string
	ImageRef string
	IsResult bool
}

// DeliverOptions tune a single delivery.
type DeliverOptions struct {
	// ReadDelay is the pause after the turn is revealed.
	ReadDelay time.Duration
	// TypingHint overrides the length-derived typing duration. It is clamped to the
	// pacer bounds, so it has no effect with a custom TypingFunc.
	TypingHint time.Duration
}

// Observer receives every visible transcript change. Observers run while the delivery
// lock is held and must not call back into the Sequencer's delivery methods.
type Observer func(domain.TurnEvent)

// Sequencer owns the ordered transcript of one conversation.
type Sequencer struct {
	delivery sync.Mutex // held for the whole typing -> reveal -> pause cycle

	mu         sync.RWMutex
	transcript []domain.Turn
	pending    *domain.Placeholder
	observers  []Observer

	typing TypingFunc
	bounds Pacer
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithPacer uses p for typing durations and hint bounds.
func WithPacer(p Pacer) Option {
	return func(s *Sequencer) {
		s.typing = p.Typing
		s.bounds = p
	}
}

// WithTypingFunc injects a custom typing strategy (e.g. ZeroDelay in tests).
func WithTypingFunc(fn TypingFunc) Option {
	return func(s *Sequencer) {
		s.typing = fn
		s.bounds = Pacer{}
	}
}

// WithObserver registers a transcript observer.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		s.observers = append(s.observers, o)
	}
}

// WithClock overrides the time source used for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) {
		s.now = now
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// New creates a Sequencer with the default pacer.
func New(opts ...Option) *Sequencer {
	p := DefaultPacer()
	s := &Sequencer{
		typing: p.Typing,
		bounds: p,
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers an observer after construction.
func (s *Sequencer) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Deliver shows a placeholder, waits the typing duration, reveals the turn and waits
// opts.ReadDelay. If ctx is canceled before anything is shown, nothing is appended.
// If it is canceled later, the turn is still revealed so no placeholder is left behind,
// and ctx.Err() is returned together with the turn.
func (s *Sequencer) Deliver(ctx context.Context, d Draft, opts DeliverOptions) (domain.Turn, error) {
	s.delivery.Lock()
	defer s.delivery.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Turn{}, err
	}

	s.showPlaceholder(d.Sender)

	wait := s.typing(utf8.RuneCountInString(d.Text))
	if opts.TypingHint > 0 {
		wait = s.bounds.Clamp(opts.TypingHint)
	}
	err := sleep(ctx, wait)

	turn := s.reveal(d)
	if err != nil {
		return turn, err
	}
	return turn, sleep(ctx, opts.ReadDelay)
}

// Hold shows a placeholder for an operation whose content is not known yet.
// The caller owns the delivery slot until Resolve is called, and must call it on
// every path.
func (s *Sequencer) Hold(ctx context.Context, sender domain.Sender) (*Hold, error) {
	s.delivery.Lock()
	if err := ctx.Err(); err != nil {
		s.delivery.Unlock()
		return nil, err
	}
	s.showPlaceholder(sender)
	return &Hold{seq: s, sender: sender, started: time.Now()}, nil
}

// Append adds a turn immediately, without typing simulation. It is ordered behind any
// delivery in progress.
func (s *Sequencer) Append(d Draft) domain.Turn {
	s.delivery.Lock()
	defer s.delivery.Unlock()
	return s.reveal(d)
}

// Reset clears the transcript for a new cycle.
func (s *Sequencer) Reset() {
	s.delivery.Lock()
	defer s.delivery.Unlock()

	s.mu.Lock()
	s.transcript = nil
	s.pending = nil
	s.mu.Unlock()

	s.emit(domain.TurnEvent{Kind: domain.TurnReset})
}

// Restore replaces the transcript with a previously delivered one.
func (s *Sequencer) Restore(transcript []domain.Turn) {
	s.delivery.Lock()
	defer s.delivery.Unlock()

	s.mu.Lock()
	s.transcript = append([]domain.Turn(nil), transcript...)
	s.pending = nil
	s.mu.Unlock()
}

// Transcript returns a copy of the delivered turns.
func (s *Sequencer) Transcript() []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Turn(nil), s.transcript...)
}

// Pending returns the current placeholder, if a turn is being typed.
func (s *Sequencer) Pending() *domain.Placeholder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// Typing reports whether a placeholder is currently shown.
func (s *Sequencer) Typing() bool {
	return s.Pending() != nil
}

func (s *Sequencer) showPlaceholder(sender domain.Sender) {
	s.mu.Lock()
	p := &domain.Placeholder{Sender: sender, Position: len(s.transcript)}
	s.pending = p
	s.mu.Unlock()

	cp := *p
	s.emit(domain.TurnEvent{Kind: domain.TurnTyping, Placeholder: &cp})
}

func (s *Sequencer) reveal(d Draft) domain.Turn {
	turn := domain.Turn{
		ID:        uuid.NewString(),
		Sender:    d.Sender,
		Text:      d.Text,
		ImageRef:  d.ImageRef,
		IsResult:  d.IsResult,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, turn)
	s.pending = nil
	s.mu.Unlock()

	s.logger.Debug("turn revealed", "turn_id", turn.ID, "sender", turn.Sender, "result", turn.IsResult)
	cp := turn
	s.emit(domain.TurnEvent{Kind: domain.TurnRevealed, Turn: &cp})
	return turn
}

func (s *Sequencer) emit(ev domain.TurnEvent) {
	s.mu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, o := range observers {
		o(ev)
	}
}

// Hold is an open delivery slot created by Sequencer.Hold.
type Hold struct {
	seq     *Sequencer
	sender  domain.Sender
	started time.Time
	once    sync.Once
}

// Resolve reveals the held turn with its final content. The placeholder stays visible
// at least as long as the typing duration for d; the remainder is waited here.
// Calling Resolve more than once is a no-op returning a zero Turn.
func (h *Hold) Resolve(ctx context.Context, d Draft, opts DeliverOptions) (domain.Turn, error) {
	var (
		turn domain.Turn
		err  error
	)
	h.once.Do(func() {
		defer h.seq.delivery.Unlock()

		if d.Sender == "" {
			d.Sender = h.sender
		}
		remaining := h.seq.typing(utf8.RuneCountInString(d.Text)) - time.Since(h.started)
		err = sleep(ctx, remaining)

		turn = h.seq.reveal(d)
		if err != nil {
			return
		}
		err = sleep(ctx, opts.ReadDelay)
	})
	return turn, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
