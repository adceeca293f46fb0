package runtime

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/aretw0/talisman/internal/artifact"
	"github.com/aretw0/talisman/internal/recorder"
	"github.com/aretw0/talisman/internal/sequencer"
	"github.com/aretw0/talisman/pkg/domain"
)

// RequestArtifact starts the talisman job for the shown result. A "working" turn is
// narrated while the job polls, followed by the outcome turn. The returned task
// completes independently of ctx; restart or Close cancels it.
func (c *Conversation) RequestArtifact(ctx context.Context) (*artifact.Task, error) {
	if c.artifacts == nil {
		return nil, ErrArtifactsDisabled
	}
	if c.seq.Typing() || !c.busy.CompareAndSwap(false, true) {
		return nil, domain.ErrBusy
	}
	defer c.release()

	st := c.State()
	if st.Step != domain.StepFortuneResult {
		return nil, domain.ErrNoResult
	}
	if _, ok := domain.ResultTurn(c.seq.Transcript()); !ok {
		return nil, domain.ErrNoResult
	}

	// The previous outcome turn must be shown before a retry is accepted.
	if c.narrating.Load() {
		return nil, artifact.ErrJobInFlight
	}

	c.mu.Lock()
	requester := c.profile.Name
	cycleCtx := c.cycleCtx
	c.mu.Unlock()

	task, err := c.artifacts.Request(ctx, st.ConcernText, requester)
	if err != nil {
		return nil, err
	}
	c.logger.Info("artifact requested", "step", st.Step)

	start := c.now()
	c.narrating.Store(true)
	if err := c.background(func() { c.narrateArtifact(cycleCtx, task, start) }); err != nil {
		c.narrating.Store(false)
		task.Cancel()
		return nil, err
	}
	c.changed()
	return task, nil
}

func (c *Conversation) narrateArtifact(ctx context.Context, task *artifact.Task, start time.Time) {
	defer func() {
		c.narrating.Store(false)
		c.changed()
	}()

	if err := c.narrate(ctx, artifactWorking); err != nil {
		return
	}

	job, err := task.Wait(ctx)
	if ctx.Err() != nil || errors.Is(err, artifact.ErrJobCanceled) {
		return
	}

	if c.hooks.OnArtifact != nil {
		c.hooks.OnArtifact(ctx, &domain.ArtifactEvent{
			SessionID: c.id,
			Job:       job,
			Duration:  c.now().Sub(start),
			Err:       err,
		})
	}

	d := sequencer.Draft{Sender: domain.SenderSystem}
	switch {
	case err == nil:
		c.logger.Info("artifact ready", "job_id", job.JobID, "attempt", job.Attempts)
		d.Text = artifactSucceeded
		d.ImageRef = job.ArtifactRef
	case errors.Is(err, artifact.ErrJobTimeout):
		c.logger.Warn("artifact timed out", "job_id", job.JobID, "attempt", job.Attempts)
		d.Text = artifactTimedOut
	default:
		c.logger.Warn("artifact failed", "job_id", job.JobID, "err", err)
		d.Text = artifactFailed
	}

	if _, err := c.seq.Deliver(ctx, d, c.deliverOpts()); err != nil {
		return
	}
	c.touch()
}

// Save stores the finished consultation once per cycle and returns its identifier.
func (c *Conversation) Save(ctx context.Context) (string, error) {
	if c.recorder == nil {
		return "", ErrSaveDisabled
	}
	st := c.State()
	if st.Step != domain.StepFortuneResult {
		return "", domain.ErrNoResult
	}

	c.mu.Lock()
	rec := recorder.Record{
		FreeText:  st.FreeText,
		Path:      st.Path,
		Reactions: maps.Clone(c.reactions),
		Profile:   c.profile,
	}
	c.mu.Unlock()
	rec.Transcript = c.seq.Transcript()
	rec.ArtifactRef = c.artifactRef()

	id, err := c.recorder.Save(ctx, rec)
	if c.hooks.OnSave != nil {
		c.hooks.OnSave(ctx, &domain.SaveEvent{SessionID: c.id, ConsultationID: id, Err: err})
	}
	if err != nil {
		c.logger.Error("save failed", "err", err)
		return "", err
	}
	c.touch()
	return id, nil
}

// React attaches a reaction to the result turn.
func (c *Conversation) React(turnID, reaction string) error {
	reaction = strings.TrimSpace(reaction)
	if reaction == "" {
		return domain.ErrEmptyInput
	}
	result, ok := domain.ResultTurn(c.seq.Transcript())
	if !ok || result.ID != turnID {
		return domain.ErrNotResultTurn
	}

	c.mu.Lock()
	if c.reactions == nil {
		c.reactions = make(map[string]string)
	}
	c.reactions[turnID] = reaction
	c.updatedAt = c.now().UTC()
	c.mu.Unlock()

	c.changed()
	return nil
}

// Snapshot returns a serializable view of the conversation.
func (c *Conversation) Snapshot() *domain.Snapshot {
	transcript := c.seq.Transcript()
	_, hasResult := domain.ResultTurn(transcript)

	c.mu.Lock()
	snap := &domain.Snapshot{
		ID:         c.id,
		Profile:    c.profile,
		State:      c.state.Clone(),
		Transcript: transcript,
		Typing:     c.seq.Pending(),
		Reactions:  maps.Clone(c.reactions),
		UpdatedAt:  c.updatedAt,
	}
	c.mu.Unlock()

	atResult := snap.State.Step == domain.StepFortuneResult
	if c.artifacts != nil {
		snap.Artifact = c.artifacts.Job()
		narrating := c.narrating.Load()
		snap.Affordances.ArtifactInFlight = c.artifacts.InFlight() || narrating
		snap.Affordances.CanGenerateArtifact = atResult && hasResult && c.artifacts.Available() && !narrating
	}
	if c.recorder != nil {
		snap.SavedID = c.recorder.Saved()
		snap.Affordances.CanSave = atResult && snap.SavedID == ""
	}
	snap.Affordances.CanRestart = snap.State.Step != domain.StepInitial
	return snap
}

// Restore loads a snapshot into a conversation that has not processed any event yet.
// A job that was still pending when the snapshot was taken is not resumed.
func (c *Conversation) Restore(snap *domain.Snapshot) {
	c.seq.Restore(snap.Transcript)

	c.mu.Lock()
	c.profile = snap.Profile
	c.state = snap.State.Clone()
	c.reactions = maps.Clone(snap.Reactions)
	c.updatedAt = snap.UpdatedAt
	c.mu.Unlock()

	if c.recorder != nil && snap.SavedID != "" {
		c.recorder.Restore(snap.SavedID)
	}
	if c.artifacts != nil && snap.Artifact != nil && snap.Artifact.Status.Terminal() {
		c.artifacts.Restore(*snap.Artifact)
	}
}

// Profile returns the user profile.
func (c *Conversation) Profile() domain.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

func (c *Conversation) artifactRef() string {
	if c.artifacts == nil {
		return ""
	}
	if j := c.artifacts.Job(); j != nil && j.Status == domain.JobSucceeded {
		return j.ArtifactRef
	}
	return ""
}

func (c *Conversation) touch() {
	c.mu.Lock()
	c.updatedAt = c.now().UTC()
	c.mu.Unlock()
	c.changed()
}

// background runs fn on a tracked goroutine unless the conversation is closed.
func (c *Conversation) background(fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		fn()
	}()
	return nil
}
