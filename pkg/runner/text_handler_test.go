package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_TypingIndicator(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out, WithTypingIndicator(true))
	ctx := context.Background()

	require.NoError(t, h.Turn(ctx, domain.TurnEvent{Kind: domain.TurnTyping, Placeholder: &domain.Placeholder{Sender: domain.SenderSystem}}))
	require.NoError(t, h.Turn(ctx, domain.TurnEvent{Kind: domain.TurnTyping, Placeholder: &domain.Placeholder{Sender: domain.SenderSystem}}))
	require.NoError(t, h.Turn(ctx, domain.TurnEvent{Kind: domain.TurnRevealed, Turn: &domain.Turn{Sender: domain.SenderSystem, Text: "안녕하세요"}}))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "· · ·"))
	assert.Contains(t, got, "\r"+termenv.CSI+termenv.EraseEntireLineSeq)
	assert.True(t, strings.HasSuffix(got, "안녕하세요\n"))
}

func TestTextHandler_NoIndicatorByDefault(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out)

	require.NoError(t, h.Turn(context.Background(), domain.TurnEvent{Kind: domain.TurnTyping}))
	assert.Empty(t, out.String())
}

func TestTextHandler_RendererAndImage(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "**" + s + "**\n\n", nil
	}))

	require.NoError(t, h.Turn(context.Background(), domain.TurnEvent{
		Kind: domain.TurnRevealed,
		Turn: &domain.Turn{Sender: domain.SenderSystem, Text: "부적이 완성되었어요.", ImageRef: "https://img/1.png"},
	}))
	assert.Equal(t, "**부적이 완성되었어요.**\n  부적: https://img/1.png\n", out.String())
}

func TestTextHandler_InputAndEOF(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(" 첫 줄 \n마지막"), &out)
	ctx := context.Background()

	line, err := h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "첫 줄", line)

	line, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "마지막", line)

	_, err = h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_InputCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONHandler_Input(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("\"1\"\n{\"input\":\"연애\"}\nplain text\n"), io.Discard)
	ctx := context.Background()

	for _, want := range []string{"1", "연애", "plain text"} {
		got, err := h.Input(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
