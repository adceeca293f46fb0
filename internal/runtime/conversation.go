// Package runtime implements the guided dialogue of one conversation: the transition
// table over the concern taxonomy, the paragraph result flow, and the glue to the
// artifact manager and the recorder.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/talisman/internal/artifact"
	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/internal/recorder"
	"github.com/aretw0/talisman/internal/sequencer"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/aretw0/talisman/pkg/taxonomy"
)

// DefaultReadDelay is the pause after each narrated turn.
const DefaultReadDelay = 400 * time.Millisecond

// Conversation is one live consultation.
// Events are processed one at a time; events arriving meanwhile fail with domain.ErrBusy.
type Conversation struct {
	id           string
	taxonomy     *taxonomy.Taxonomy
	inference    ports.InferenceBackend
	inferTimeout time.Duration
	seq          *sequencer.Sequencer
	artifacts    *artifact.Manager
	recorder     *recorder.Recorder
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	readDelay    time.Duration
	now          func() time.Time

	seqOpts      []sequencer.Option
	artifactOpts []artifact.Option
	backend      ports.ArtifactBackend
	store        ports.ConsultationStore

	busy atomic.Bool
	bg   sync.WaitGroup

	// narrating is set from an accepted artifact request until its outcome turn is shown.
	narrating atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	profile     domain.Profile
	state       domain.DialogueState
	reactions   map[string]string
	updatedAt   time.Time
	cycleCtx    context.Context
	cycleCancel context.CancelFunc
	closed      bool
	listeners   []func()
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithTaxonomy sets the concern tree. Defaults to taxonomy.Default().
func WithTaxonomy(t *taxonomy.Taxonomy) Option {
	return func(c *Conversation) {
		c.taxonomy = t
	}
}

// WithInference sets the fortune backend.
func WithInference(b ports.InferenceBackend) Option {
	return func(c *Conversation) {
		c.inference = b
	}
}

// WithInferenceTimeout bounds each inference round trip.
func WithInferenceTimeout(d time.Duration) Option {
	return func(c *Conversation) {
		c.inferTimeout = d
	}
}

// WithArtifacts enables talisman generation on backend.
func WithArtifacts(backend ports.ArtifactBackend, opts ...artifact.Option) Option {
	return func(c *Conversation) {
		c.backend = backend
		c.artifactOpts = append(c.artifactOpts, opts...)
	}
}

// WithConsultationStore enables saving finished consultations.
func WithConsultationStore(store ports.ConsultationStore) Option {
	return func(c *Conversation) {
		c.store = store
	}
}

// WithSequencer passes options to the message sequencer.
func WithSequencer(opts ...sequencer.Option) Option {
	return func(c *Conversation) {
		c.seqOpts = append(c.seqOpts, opts...)
	}
}

// WithReadDelay sets the pause after each narrated turn.
func WithReadDelay(d time.Duration) Option {
	return func(c *Conversation) {
		c.readDelay = d
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Conversation) {
		c.hooks = hooks
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) {
		c.now = now
	}
}

// WithProfile sets the user profile forwarded to the backends.
func WithProfile(p domain.Profile) Option {
	return func(c *Conversation) {
		c.profile = p
	}
}

// New creates a conversation in the initial step. Call Handle or Dispatch with Start()
// to play the welcome.
func New(id string, opts ...Option) *Conversation {
	c := &Conversation{
		id:        id,
		readDelay: DefaultReadDelay,
		logger:    logging.NewNop(),
		now:       time.Now,
		state:     domain.NewDialogueState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.taxonomy == nil {
		c.taxonomy = taxonomy.Default()
	}
	c.logger = c.logger.With("session_id", id)

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.cycleCtx, c.cycleCancel = context.WithCancel(c.ctx)

	seqOpts := append([]sequencer.Option{
		sequencer.WithLogger(c.logger),
		sequencer.WithClock(c.now),
	}, c.seqOpts...)
	c.seq = sequencer.New(seqOpts...)
	if c.hooks.OnTurn != nil {
		c.seq.Subscribe(func(ev domain.TurnEvent) {
			c.hooks.OnTurn(c.ctx, c.id, ev)
		})
	}

	if c.backend != nil {
		artifactOpts := append([]artifact.Option{artifact.WithLogger(c.logger)}, c.artifactOpts...)
		c.artifacts = artifact.NewManager(c.backend, artifactOpts...)
	}
	if c.store != nil {
		c.recorder = recorder.New(c.store, recorder.WithLogger(c.logger), recorder.WithClock(c.now))
	}
	c.updatedAt = c.now().UTC()
	return c
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string {
	return c.id
}

// Subscribe registers an observer of transcript changes.
func (c *Conversation) Subscribe(o sequencer.Observer) {
	c.seq.Subscribe(o)
}

// OnChange registers fn to be called after every committed change of the state, the
// reactions or the saved flag. fn runs on the goroutine that made the change and must
// not block.
func (c *Conversation) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Conversation) changed() {
	c.mu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// State returns a copy of the dialogue state.
func (c *Conversation) State() domain.DialogueState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Transcript returns the delivered turns of the current cycle.
func (c *Conversation) Transcript() []domain.Turn {
	return c.seq.Transcript()
}

// Busy reports whether an event is being processed or a turn is being typed.
func (c *Conversation) Busy() bool {
	return c.busy.Load() || c.seq.Typing()
}

// Handle processes ev synchronously. Validation errors leave the conversation untouched.
func (c *Conversation) Handle(ctx context.Context, ev Event) error {
	run, err := c.prepare(ev)
	if err != nil {
		return err
	}
	defer c.release()
	return run(ctx)
}

// Dispatch validates ev and acquires the busy guard synchronously, then runs the
// transition in the background. The transition outlives ctx's cancellation but not
// Close. Use Wait to block until background work is done.
func (c *Conversation) Dispatch(ctx context.Context, ev Event) error {
	run, err := c.prepare(ev)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.ctx, cancel)

	err = c.background(func() {
		defer c.release()
		defer stop()
		defer cancel()
		if err := run(runCtx); err != nil {
			c.logger.Warn("event processing interrupted", "event", ev.Kind, "err", err)
		}
	})
	if err != nil {
		stop()
		cancel()
		c.release()
	}
	return err
}

// Wait blocks until all background transitions and artifact narration have finished.
func (c *Conversation) Wait() {
	c.bg.Wait()
}

// Close cancels background work, including any artifact job, and waits for it to stop.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	if c.artifacts != nil {
		c.artifacts.Reset(context.Background())
	}
	c.bg.Wait()
}

// prepare acquires the busy guard and validates ev against the transition table.
// On success the caller owns the guard and must call release after running the effect.
func (c *Conversation) prepare(ev Event) (effect, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if c.seq.Typing() || !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug("event dropped while busy", "event", ev.Kind)
		return nil, domain.ErrBusy
	}

	st := c.State()
	run, err := c.transition(st, ev)
	if err != nil {
		c.release()
		return nil, err
	}
	return run, nil
}

func (c *Conversation) release() {
	c.busy.Store(false)
}

// advance commits next as the live state.
func (c *Conversation) advance(ctx context.Context, ev Event, next domain.DialogueState) {
	c.mu.Lock()
	from := c.state.Step
	c.state = next
	c.updatedAt = c.now().UTC()
	c.mu.Unlock()

	c.logger.Debug("transition", "from", from, "to", next.Step, "event", ev.Kind)
	c.changed()
	if c.hooks.OnTransition != nil {
		c.hooks.OnTransition(ctx, &domain.TransitionEvent{
			SessionID: c.id,
			From:      from,
			To:        next.Step,
			Event:     string(ev.Kind),
		})
	}
}

func (c *Conversation) deliverOpts() sequencer.DeliverOptions {
	return sequencer.DeliverOptions{ReadDelay: c.readDelay}
}

// narrate delivers system turns in order.
func (c *Conversation) narrate(ctx context.Context, lines ...string) error {
	for _, line := range lines {
		d := sequencer.Draft{Sender: domain.SenderSystem, Text: line}
		if _, err := c.seq.Deliver(ctx, d, c.deliverOpts()); err != nil {
			return err
		}
	}
	return nil
}

// echo appends the user's input as a turn.
func (c *Conversation) echo(text string) {
	c.seq.Append(sequencer.Draft{Sender: domain.SenderUser, Text: text})
}
