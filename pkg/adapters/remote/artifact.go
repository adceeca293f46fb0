package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
)

type submitRequest struct {
	Prompt    string `json:"prompt"`
	Requester string `json:"requester"`
}

// Artifacts implements ports.ArtifactBackend and ports.JobCanceler against {base}/images.
type Artifacts struct {
	client *Client
}

// NewArtifacts creates the remote image backend.
func NewArtifacts(c *Client) *Artifacts {
	return &Artifacts{client: c}
}

// Submit implements ports.ArtifactBackend.
func (a *Artifacts) Submit(ctx context.Context, prompt, requester string) (ports.JobHandle, error) {
	var h ports.JobHandle
	if err := a.client.do(ctx, "POST", "/images", submitRequest{Prompt: prompt, Requester: requester}, &h); err != nil {
		return ports.JobHandle{}, fmt.Errorf("submit image job: %w", err)
	}
	if h.JobID == "" {
		return ports.JobHandle{}, fmt.Errorf("submit image job: response has no job id")
	}
	return normalize(h), nil
}

// Status implements ports.ArtifactBackend.
func (a *Artifacts) Status(ctx context.Context, jobID string) (ports.JobHandle, error) {
	var h ports.JobHandle
	if err := a.client.do(ctx, "GET", "/images/"+url.PathEscape(jobID), nil, &h); err != nil {
		return ports.JobHandle{}, fmt.Errorf("image job %s status: %w", jobID, err)
	}
	if h.JobID == "" {
		h.JobID = jobID
	}
	return normalize(h), nil
}

// Cancel implements ports.JobCanceler.
func (a *Artifacts) Cancel(ctx context.Context, jobID string) error {
	if err := a.client.do(ctx, "DELETE", "/images/"+url.PathEscape(jobID), nil, nil); err != nil {
		return fmt.Errorf("cancel image job %s: %w", jobID, err)
	}
	return nil
}

// normalize maps unknown statuses to pending so the poll loop keeps waiting.
func normalize(h ports.JobHandle) ports.JobHandle {
	switch h.Status {
	case domain.JobSucceeded, domain.JobFailed:
	default:
		h.Status = domain.JobPending
	}
	return h
}
