// Package artifact runs talisman generation jobs: submit once, then poll the backend on a
// fixed interval for a bounded number of attempts.
//
// A Manager belongs to one conversation and allows at most one job in flight. Each job runs
// as a Task that can be awaited or canceled; a conversation reset cancels the stale task
// instead of letting it poll to completion in the background.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
)

const (
	// DefaultMaxRetries bounds the number of status polls per job.
	DefaultMaxRetries = 30
	// DefaultInterval is the wait before each status poll.
	DefaultInterval = time.Second
)

// Manager guards and drives the generation job of one conversation.
type Manager struct {
	backend    ports.ArtifactBackend
	interval   time.Duration
	maxRetries int
	logger     *slog.Logger

	mu        sync.Mutex
	current   *Task
	succeeded bool
	lastJob   *domain.GenerationJob
}

// Option configures a Manager.
type Option func(*Manager)

// WithInterval sets the wait between status polls.
func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.interval = d
	}
}

// WithMaxRetries sets the maximum number of status polls.
func WithMaxRetries(n int) Option {
	return func(m *Manager) {
		m.maxRetries = n
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager for the given backend.
func NewManager(backend ports.ArtifactBackend, opts ...Option) *Manager {
	m := &Manager{
		backend:    backend,
		interval:   DefaultInterval,
		maxRetries: DefaultMaxRetries,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxRetries < 0 {
		m.maxRetries = 0
	}
	return m
}

// Request starts a generation job. The in-flight flag is set before the first network
// call. The returned Task runs detached from ctx's cancellation; use Task.Cancel or
// Manager.Reset to abort it.
func (m *Manager) Request(ctx context.Context, prompt, requester string) (*Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	m.mu.Lock()
	if m.succeeded {
		m.mu.Unlock()
		return nil, ErrArtifactDone
	}
	if m.current != nil {
		m.mu.Unlock()
		return nil, ErrJobInFlight
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
		job:    domain.GenerationJob{Status: domain.JobPending},
	}
	m.current = t
	m.mu.Unlock()

	go m.run(taskCtx, t, prompt, requester)
	return t, nil
}

// InFlight reports whether a job is pending.
func (m *Manager) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Available reports whether a new request would be accepted.
func (m *Manager) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == nil && !m.succeeded
}

// Job returns the in-flight job, or the last terminal job of this cycle.
func (m *Manager) Job() *domain.GenerationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		j := m.current.Job()
		return &j
	}
	if m.lastJob != nil {
		j := *m.lastJob
		return &j
	}
	return nil
}

// Reset cancels any in-flight task and re-enables requests for a new cycle.
// If the backend supports it, the abandoned job is also canceled server-side.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	t := m.current
	m.current = nil
	m.succeeded = false
	m.lastJob = nil
	m.mu.Unlock()

	if t == nil {
		return
	}
	t.Cancel()

	jobID := t.Job().JobID
	if c, ok := m.backend.(ports.JobCanceler); ok && jobID != "" {
		if err := c.Cancel(ctx, jobID); err != nil {
			m.logger.Warn("failed to cancel abandoned artifact job", "job_id", jobID, "err", err)
		}
	}
}

// Restore marks the cycle as already having produced job, without contacting the backend.
func (m *Manager) Restore(job domain.GenerationJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastJob = &job
	m.succeeded = job.Status == domain.JobSucceeded
}

func (m *Manager) run(ctx context.Context, t *Task, prompt, requester string) {
	job, err := m.poll(ctx, t, prompt, requester)
	if errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", ErrJobCanceled, err)
	}

	m.mu.Lock()
	if m.current == t {
		m.current = nil
		m.lastJob = &job
		if err == nil {
			m.succeeded = true
		}
	}
	m.mu.Unlock()

	t.finish(job, err)
}

func (m *Manager) poll(ctx context.Context, t *Task, prompt, requester string) (domain.GenerationJob, error) {
	handle, err := m.backend.Submit(ctx, prompt, requester)
	if err != nil {
		job := domain.GenerationJob{Status: domain.JobFailed, Reason: err.Error()}
		return job, fmt.Errorf("failed to submit artifact job: %w", err)
	}
	job := domain.GenerationJob{JobID: handle.JobID}
	apply(&job, handle)
	t.update(job)
	m.logger.Debug("artifact job submitted", "job_id", job.JobID, "status", job.Status)

	for job.Status == domain.JobPending && job.Attempts < m.maxRetries {
		if err := wait(ctx, m.interval); err != nil {
			return job, err
		}

		handle, err := m.backend.Status(ctx, job.JobID)
		job.Attempts++
		if err != nil {
			if ctx.Err() != nil {
				return job, ctx.Err()
			}
			m.logger.Warn("artifact status check failed", "job_id", job.JobID, "attempt", job.Attempts, "err", err)
			t.update(job)
			continue
		}
		apply(&job, handle)
		t.update(job)
	}

	switch job.Status {
	case domain.JobSucceeded:
		if job.ArtifactRef == "" {
			job.Status = domain.JobFailed
			job.Reason = "no artifact in successful job"
			return job, &JobFailedError{JobID: job.JobID, Reason: job.Reason}
		}
		return job, nil
	case domain.JobFailed:
		return job, &JobFailedError{JobID: job.JobID, Reason: job.Reason}
	default:
		return job, &JobTimeoutError{JobID: job.JobID, Attempts: job.Attempts}
	}
}

func apply(job *domain.GenerationJob, h ports.JobHandle) {
	switch h.Status {
	case domain.JobSucceeded, domain.JobFailed:
		job.Status = h.Status
	default:
		job.Status = domain.JobPending
	}
	job.ArtifactRef = h.ArtifactRef
	job.Reason = h.Reason
}

func wait(ctx context.Context, d time.Duration) error {
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
