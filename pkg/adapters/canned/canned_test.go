package canned_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/talisman/pkg/adapters/canned"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInference_Deterministic(t *testing.T) {
	inf := canned.NewInference()
	req := ports.InferenceRequest{
		Concern: ports.ConcernContext{Text: "나 취업할 수 있을까?", FreeText: "나 취업할 수 있을까?"},
		Profile: domain.Profile{Name: "민호"},
	}

	a, err := inf.Infer(context.Background(), req)
	require.NoError(t, err)
	b, err := inf.Infer(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, strings.Split(a, "\n\n"), 3)
	assert.Contains(t, a, "민호님")
	assert.Contains(t, a, "나 취업할 수 있을까?")

	_, err = inf.Infer(context.Background(), ports.InferenceRequest{})
	assert.Error(t, err)
}

func TestArtifacts_Lifecycle(t *testing.T) {
	ctx := context.Background()
	a := canned.NewArtifacts(canned.WithPendingPolls(2), canned.WithBaseURL("https://cdn.example/"))

	h, err := a.Submit(ctx, "연애 > 시작 단계", "지수")
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, h.Status)

	h, err = a.Status(ctx, h.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, h.Status)

	h, err = a.Status(ctx, h.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobSucceeded, h.Status)
	assert.Equal(t, "https://cdn.example/"+h.JobID+".png", h.ArtifactRef)

	_, err = a.Status(ctx, "missing")
	assert.Error(t, err)
	_, err = a.Submit(ctx, " ", "지수")
	assert.Error(t, err)
}

func TestArtifacts_Cancel(t *testing.T) {
	ctx := context.Background()
	a := canned.NewArtifacts(canned.WithPendingPolls(10))
	var _ ports.JobCanceler = a

	h, err := a.Submit(ctx, "재물", "")
	require.NoError(t, err)
	require.NoError(t, a.Cancel(ctx, h.JobID))

	h, err = a.Status(ctx, h.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, h.Status)
	assert.Error(t, a.Cancel(ctx, "missing"))
}
