// Package recorder hands finished transcripts to the consultation store, at most once
// per conversation cycle.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
)

// FallbackTitle is used when the conversation has neither free text nor a complete path.
const FallbackTitle = "오늘의 운세 상담"

// maxTitleRunes bounds titles derived from free text.
const maxTitleRunes = 40

// ErrEmptyTranscript is returned when there is nothing to save.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Record is everything the recorder needs to build a consultation.
type Record struct {
	Transcript  []domain.Turn
	ArtifactRef string
	FreeText    string
	Path        domain.ConcernPath
	Reactions   map[string]string
	Profile     domain.Profile
}

// Recorder enforces single-shot saves.
type Recorder struct {
	store  ports.ConsultationStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex // held across the store call so concurrent saves serialize
	savedID string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// New creates a Recorder backed by store.
func New(store ports.ConsultationStore, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save stores the record and returns the store's identifier. After one successful save,
// further calls return the same identifier without contacting the store.
func (r *Recorder) Save(ctx context.Context, rec Record) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.savedID != "" {
		return r.savedID, nil
	}
	if len(rec.Transcript) == 0 {
		return "", ErrEmptyTranscript
	}

	c := domain.Consultation{
		Title:       Title(rec.FreeText, rec.Path),
		Transcript:  append([]domain.Turn(nil), rec.Transcript...),
		ArtifactRef: rec.ArtifactRef,
		Reactions:   copyMap(rec.Reactions),
		Profile:     rec.Profile,
		CreatedAt:   r.now().UTC(),
	}

	id, err := r.store.SaveConsultation(ctx, c)
	if err != nil {
		return "", fmt.Errorf("failed to save consultation: %w", err)
	}
	r.savedID = id
	r.logger.Info("consultation saved", "consultation_id", id, "turns", len(c.Transcript))
	return id, nil
}

// Saved returns the stored identifier, or "" if nothing was saved in this cycle.
func (r *Recorder) Saved() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.savedID
}

// Reset allows a new save for the next cycle.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savedID = ""
}

// Restore marks the cycle as already saved under id.
func (r *Recorder) Restore(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savedID = id
}

// Title picks the consultation title: the free-text concern, else the leaf path, else
// FallbackTitle.
func Title(freeText string, path domain.ConcernPath) string {
	if t := strings.TrimSpace(freeText); t != "" {
		if utf8.RuneCountInString(t) > maxTitleRunes {
			return string([]rune(t)[:maxTitleRunes]) + "…"
		}
		return t
	}
	if path.Complete() {
		return path.Text()
	}
	return FallbackTitle
}

func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
