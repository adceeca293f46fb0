package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/pkg/adapters/canned"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, inference ports.InferenceBackend) *Server {
	t.Helper()
	engine, err := talisman.New(
		talisman.WithInference(inference),
		talisman.WithInstantDelivery(),
	)
	require.NoError(t, err)
	return NewServer(engine)
}

func TestConsultPath(t *testing.T) {
	s := newTestServer(t, canned.NewInference())

	resp, err := s.handleConsultPath(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"category": "연애",
		"topic":    "시작 단계",
		"detail":   "짝사랑",
		"option":   "언제 고백할지",
		"name":     "지수",
	})
	require.NoError(t, err)
	assert.Equal(t, "연애 > 시작 단계 > 짝사랑 > 언제 고백할지", resp.ConcernText)
	require.Len(t, resp.Paragraphs, 3)
	assert.Contains(t, resp.Paragraphs[0], "지수님")
	assert.Equal(t, resp.Paragraphs[2], resp.Result)
	assert.Contains(t, resp.Result, talisman.ResultFlourish)
}

func TestConsultPath_InvalidOption(t *testing.T) {
	s := newTestServer(t, canned.NewInference())

	_, err := s.handleConsultPath(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"category": "연애",
		"topic":    "없는 주제",
		"detail":   "짝사랑",
		"option":   "언제 고백할지",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)
}

func TestConsultText(t *testing.T) {
	s := newTestServer(t, canned.NewInference())

	resp, err := s.handleConsultText(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"text": "  이직해도 될까요?  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "이직해도 될까요?", resp.ConcernText)
	assert.Len(t, resp.Paragraphs, 3)
}

func TestConsultText_InferenceFailure(t *testing.T) {
	failing := ports.InferenceFunc(func(ctx context.Context, req ports.InferenceRequest) (string, error) {
		return "", errors.New("backend down")
	})
	s := newTestServer(t, failing)

	_, err := s.handleConsultText(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"text": "이직해도 될까요?",
	})
	assert.Error(t, err)
}

func TestConsultText_EmptyInput(t *testing.T) {
	s := newTestServer(t, canned.NewInference())

	_, err := s.handleConsultText(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"text": " "})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestFortuneParagraphs_NoResult(t *testing.T) {
	_, ok := fortuneParagraphs([]domain.Turn{{Sender: domain.SenderSystem, Text: "hi"}})
	assert.False(t, ok)
}
