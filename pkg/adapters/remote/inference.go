package remote

import (
	"context"
	"fmt"

	"github.com/aretw0/talisman/pkg/ports"
)

type fortuneResponse struct {
	Text string `json:"text"`
}

// Inference implements ports.InferenceBackend against POST {base}/fortune.
type Inference struct {
	client *Client
}

// NewInference creates the remote fortune backend.
func NewInference(c *Client) *Inference {
	return &Inference{client: c}
}

// Infer implements ports.InferenceBackend.
func (i *Inference) Infer(ctx context.Context, req ports.InferenceRequest) (string, error) {
	var resp fortuneResponse
	if err := i.client.do(ctx, "POST", "/fortune", req, &resp); err != nil {
		return "", fmt.Errorf("fortune request: %w", err)
	}
	return resp.Text, nil
}
