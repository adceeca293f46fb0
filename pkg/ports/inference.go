package ports

import (
	"context"

	"github.com/aretw0/talisman/pkg/domain"
)

// ConcernContext is the finalized concern handed to the inference backend.
// Exactly one of Path (a complete taxonomy path) or FreeText is set; Text is always set.
type ConcernContext struct {
	Path     []string `json:"path,omitempty"`
	FreeText string   `json:"free_text,omitempty"`
	Text     string   `json:"text"`
}

// InferenceRequest is one fortune request.
type InferenceRequest struct {
	Concern ConcernContext `json:"concern"`
	Profile domain.Profile `json:"profile"`
}

// InferenceBackend produces the raw fortune text for a concern.
type InferenceBackend interface {
	// Infer returns raw, multi-paragraph text. Paragraphs are separated by blank lines.
	Infer(ctx context.Context, req InferenceRequest) (string, error)
}

// InferenceFunc adapts a function to InferenceBackend.
type InferenceFunc func(ctx context.Context, req InferenceRequest) (string, error)

// Infer calls f.
func (f InferenceFunc) Infer(ctx context.Context, req InferenceRequest) (string, error) {
	return f(ctx, req)
}
