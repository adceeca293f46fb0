package canned

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/google/uuid"
)

// Artifacts is an in-memory generation backend. Each job stays pending for a fixed
// number of status checks and then succeeds with a synthetic reference.
type Artifacts struct {
	pendingPolls int
	baseURL      string

	mu   sync.Mutex
	jobs map[string]*cannedJob
}

type cannedJob struct {
	polls    int
	canceled bool
}

// ArtifactsOption configures Artifacts.
type ArtifactsOption func(*Artifacts)

// WithPendingPolls sets how many status checks a job stays pending.
func WithPendingPolls(n int) ArtifactsOption {
	return func(a *Artifacts) {
		a.pendingPolls = n
	}
}

// WithBaseURL sets the prefix of generated artifact references.
func WithBaseURL(u string) ArtifactsOption {
	return func(a *Artifacts) {
		a.baseURL = strings.TrimSuffix(u, "/")
	}
}

// NewArtifacts creates the offline artifact backend.
func NewArtifacts(opts ...ArtifactsOption) *Artifacts {
	a := &Artifacts{
		pendingPolls: 2,
		baseURL:      "talisman://images",
		jobs:         make(map[string]*cannedJob),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit implements ports.ArtifactBackend.
func (a *Artifacts) Submit(ctx context.Context, prompt, requester string) (ports.JobHandle, error) {
	if strings.TrimSpace(prompt) == "" {
		return ports.JobHandle{}, fmt.Errorf("prompt is required")
	}
	id := uuid.NewString()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs[id] = &cannedJob{}
	return a.handle(id, a.jobs[id]), nil
}

// Status implements ports.ArtifactBackend.
func (a *Artifacts) Status(ctx context.Context, jobID string) (ports.JobHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	job, ok := a.jobs[jobID]
	if !ok {
		return ports.JobHandle{}, fmt.Errorf("unknown job %q", jobID)
	}
	job.polls++
	return a.handle(jobID, job), nil
}

// Cancel implements ports.JobCanceler.
func (a *Artifacts) Cancel(ctx context.Context, jobID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	job, ok := a.jobs[jobID]
	if !ok {
		return fmt.Errorf("unknown job %q", jobID)
	}
	job.canceled = true
	return nil
}

func (a *Artifacts) handle(id string, job *cannedJob) ports.JobHandle {
	switch {
	case job.canceled:
		return ports.JobHandle{JobID: id, Status: domain.JobFailed, Reason: "canceled"}
	case job.polls >= a.pendingPolls:
		return ports.JobHandle{JobID: id, Status: domain.JobSucceeded, ArtifactRef: fmt.Sprintf("%s/%s.png", a.baseURL, id)}
	default:
		return ports.JobHandle{JobID: id, Status: domain.JobPending}
	}
}
