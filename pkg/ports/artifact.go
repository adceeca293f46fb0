package ports

import (
	"context"

	"github.com/aretw0/talisman/pkg/domain"
)

// JobHandle is the backend's view of a generation job.
type JobHandle struct {
	JobID       string           `json:"id"`
	Status      domain.JobStatus `json:"status"`
	ArtifactRef string           `json:"url,omitempty"`
	Reason      string           `json:"error,omitempty"`
}

// ArtifactBackend generates talisman images asynchronously.
type ArtifactBackend interface {
	// Submit starts a job and returns its handle with the initial status.
	Submit(ctx context.Context, prompt, requester string) (JobHandle, error)

	// Status fetches the current status of a job.
	Status(ctx context.Context, jobID string) (JobHandle, error)
}

// JobCanceler is implemented by artifact backends that can abort a job server-side.
type JobCanceler interface {
	Cancel(ctx context.Context, jobID string) error
}
