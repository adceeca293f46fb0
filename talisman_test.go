package talisman_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/pkg/adapters/canned"
	"github.com/aretw0/talisman/pkg/adapters/memory"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts ...talisman.Option) *talisman.Engine {
	t.Helper()
	base := []talisman.Option{
		talisman.WithInference(canned.NewInference()),
		talisman.WithInstantDelivery(),
	}
	eng, err := talisman.New(append(base, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestNew_RequiresInference(t *testing.T) {
	_, err := talisman.New()
	assert.ErrorIs(t, err, talisman.ErrNoInference)
}

func TestFacade_FullConsultation(t *testing.T) {
	store := memory.NewConsultationStore()
	eng := newEngine(t,
		talisman.WithArtifacts(canned.NewArtifacts(canned.WithPendingPolls(3))),
		talisman.WithPolling(time.Millisecond, 10),
		talisman.WithConsultationStore(store),
	)
	ctx := context.Background()

	conv, err := eng.Start(ctx, "", domain.Profile{Name: "지수"})
	require.NoError(t, err)
	defer conv.Close()
	assert.NotEmpty(t, conv.ID())

	for _, opt := range []string{"연애", "시작 단계", "짝사랑", "언제 고백할지"} {
		require.NoError(t, conv.Handle(ctx, talisman.Select(opt)))
	}
	snap := conv.Snapshot()
	require.Equal(t, domain.StepFortuneResult, snap.State.Step)
	require.True(t, snap.Affordances.CanGenerateArtifact)

	task, err := conv.RequestArtifact(ctx)
	require.NoError(t, err)
	job, err := task.Wait(ctx)
	require.NoError(t, err)
	conv.Wait()
	assert.Contains(t, job.ArtifactRef, job.JobID)

	id, err := conv.Save(ctx)
	require.NoError(t, err)

	saved, err := eng.Consultations().GetConsultation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.ArtifactRef, saved.ArtifactRef)
	assert.Equal(t, "연애 > 시작 단계 > 짝사랑 > 언제 고백할지", saved.Title)
}

func TestFacade_Resume(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	conv, err := eng.Start(ctx, "abc", domain.Profile{Name: "민호"})
	require.NoError(t, err)
	require.NoError(t, conv.Handle(ctx, talisman.Select(talisman.OptionDirectInput)))
	snap := conv.Snapshot()
	conv.Close()

	resumed := eng.Resume(snap)
	defer resumed.Close()
	assert.Equal(t, "abc", resumed.ID())
	assert.Equal(t, domain.StepDirectInput, resumed.State().Step)

	require.NoError(t, resumed.Handle(ctx, talisman.Text("이사 가도 될까요?")))
	_, ok := domain.ResultTurn(resumed.Transcript())
	assert.True(t, ok)
}

func TestFacade_DisabledFeatures(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	conv, err := eng.Start(ctx, "", domain.Profile{})
	require.NoError(t, err)
	defer conv.Close()
	require.NoError(t, conv.Handle(ctx, talisman.Text("올해 운세")))

	_, err = conv.RequestArtifact(ctx)
	assert.ErrorIs(t, err, talisman.ErrArtifactsDisabled)
	_, err = conv.Save(ctx)
	assert.ErrorIs(t, err, talisman.ErrSaveDisabled)
	assert.Nil(t, eng.Consultations())
}
