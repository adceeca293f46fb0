package talisman

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/talisman/internal/artifact"
	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/internal/runtime"
	"github.com/aretw0/talisman/internal/sequencer"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/aretw0/talisman/pkg/taxonomy"
	"github.com/google/uuid"
)

// Conversation is one live consultation created by an Engine.
type Conversation = runtime.Conversation

// Event is one user input to a Conversation.
type Event = runtime.Event

// Option labels offered alongside the taxonomy.
const (
	OptionDirectInput = runtime.OptionDirectInput
	OptionRestart     = runtime.OptionRestart
)

// ResultFlourish closes the result paragraph.
const ResultFlourish = runtime.ResultFlourish

var (
	// ErrArtifactsDisabled is returned by RequestArtifact when no artifact backend is set.
	ErrArtifactsDisabled = runtime.ErrArtifactsDisabled
	// ErrSaveDisabled is returned by Save when no consultation store is set.
	ErrSaveDisabled = runtime.ErrSaveDisabled
	// ErrClosed is returned by a conversation once it was closed.
	ErrClosed = runtime.ErrClosed
	// ErrJobInFlight is returned by RequestArtifact while a job is still polling.
	ErrJobInFlight = artifact.ErrJobInFlight
	// ErrArtifactDone is returned by RequestArtifact once the talisman was generated.
	ErrArtifactDone = artifact.ErrArtifactDone
	// ErrNoInference is returned by New when no inference backend is set.
	ErrNoInference = errors.New("an inference backend is required")
)

// StartEvent begins a conversation.
func StartEvent() Event { return runtime.Start() }

// Select picks an offered option.
func Select(option string) Event { return runtime.Select(option) }

// Text submits a free-text concern.
func Text(s string) Event { return runtime.Text(s) }

// Restart clears the conversation and replays the welcome.
func Restart() Event { return runtime.Restart() }

// Engine is the high-level entry point of the library. It holds the shared
// collaborators and creates conversations wired to them.
type Engine struct {
	taxonomy      *taxonomy.Taxonomy
	inference     ports.InferenceBackend
	inferTimeout  time.Duration
	artifacts     ports.ArtifactBackend
	pollInterval  time.Duration
	maxRetries    int
	consultations ports.ConsultationStore
	hooks         domain.LifecycleHooks
	logger        *slog.Logger

	pacer     *sequencer.Pacer
	instant   bool
	readDelay *time.Duration
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithInference sets the fortune backend.
func WithInference(b ports.InferenceBackend) Option {
	return func(e *Engine) {
		e.inference = b
	}
}

// WithInferenceTimeout bounds each inference round trip.
func WithInferenceTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.inferTimeout = d
	}
}

// WithArtifacts enables talisman generation.
func WithArtifacts(b ports.ArtifactBackend) Option {
	return func(e *Engine) {
		e.artifacts = b
	}
}

// WithPolling overrides the status poll interval and the maximum number of polls.
// Zero values keep the defaults.
func WithPolling(interval time.Duration, maxRetries int) Option {
	return func(e *Engine) {
		e.pollInterval = interval
		e.maxRetries = maxRetries
	}
}

// WithConsultationStore enables saving finished consultations.
func WithConsultationStore(s ports.ConsultationStore) Option {
	return func(e *Engine) {
		e.consultations = s
	}
}

// WithTaxonomy replaces the embedded concern tree.
func WithTaxonomy(t *taxonomy.Taxonomy) Option {
	return func(e *Engine) {
		e.taxonomy = t
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPacing sets the typing simulation: perRune per character, clamped to
// [minTyping, maxTyping].
func WithPacing(perRune, minTyping, maxTyping time.Duration) Option {
	return func(e *Engine) {
		e.pacer = &sequencer.Pacer{PerRune: perRune, MinTyping: minTyping, MaxTyping: maxTyping}
	}
}

// WithReadDelay sets the pause after each narrated turn.
func WithReadDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.readDelay = &d
	}
}

// WithInstantDelivery disables typing simulation and read pauses.
func WithInstantDelivery() Option {
	return func(e *Engine) {
		e.instant = true
	}
}

// New initializes an Engine. An inference backend is required.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.inference == nil {
		return nil, ErrNoInference
	}
	if e.taxonomy == nil {
		e.taxonomy = taxonomy.Default()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	return e, nil
}

// Taxonomy returns the concern tree used by new conversations.
func (e *Engine) Taxonomy() *taxonomy.Taxonomy {
	return e.taxonomy
}

// Consultations returns the configured consultation store, or nil.
func (e *Engine) Consultations() ports.ConsultationStore {
	return e.consultations
}

// NewConversation creates a conversation in the initial step. An empty id is replaced
// by a random one.
func (e *Engine) NewConversation(id string, profile domain.Profile) *Conversation {
	if id == "" {
		id = uuid.NewString()
	}
	return runtime.New(id, e.conversationOptions(profile)...)
}

// Start creates a conversation and plays the welcome synchronously.
func (e *Engine) Start(ctx context.Context, id string, profile domain.Profile) (*Conversation, error) {
	c := e.NewConversation(id, profile)
	if err := c.Handle(ctx, runtime.Start()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Resume recreates a conversation from a snapshot.
func (e *Engine) Resume(snap *domain.Snapshot) *Conversation {
	c := runtime.New(snap.ID, e.conversationOptions(snap.Profile)...)
	c.Restore(snap)
	return c
}

func (e *Engine) conversationOptions(profile domain.Profile) []runtime.Option {
	opts := []runtime.Option{
		runtime.WithTaxonomy(e.taxonomy),
		runtime.WithInference(e.inference),
		runtime.WithInferenceTimeout(e.inferTimeout),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
		runtime.WithProfile(profile),
	}

	if e.artifacts != nil {
		var aopts []artifact.Option
		if e.pollInterval > 0 {
			aopts = append(aopts, artifact.WithInterval(e.pollInterval))
		}
		if e.maxRetries > 0 {
			aopts = append(aopts, artifact.WithMaxRetries(e.maxRetries))
		}
		opts = append(opts, runtime.WithArtifacts(e.artifacts, aopts...))
	}
	if e.consultations != nil {
		opts = append(opts, runtime.WithConsultationStore(e.consultations))
	}

	switch {
	case e.instant:
		opts = append(opts,
			runtime.WithSequencer(sequencer.WithTypingFunc(sequencer.ZeroDelay)),
			runtime.WithReadDelay(0),
		)
	case e.pacer != nil:
		opts = append(opts, runtime.WithSequencer(sequencer.WithPacer(*e.pacer)))
	}
	if e.readDelay != nil && !e.instant {
		opts = append(opts, runtime.WithReadDelay(*e.readDelay))
	}
	return opts
}
