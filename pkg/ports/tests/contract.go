// Package tests provides reusable contract suites for port implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(id string) *domain.Snapshot {
	return &domain.Snapshot{
		ID:      id,
		Profile: domain.Profile{Name: "지수"},
		State: domain.DialogueState{
			Step:    domain.StepDetailLevel1,
			Path:    domain.ConcernPath{Category: "연애"},
			Offered: []string{"시작 단계", "연애 중"},
		},
		Transcript: []domain.Turn{
			{ID: "t1", Sender: domain.SenderSystem, Text: "안녕하세요"},
			{ID: "t2", Sender: domain.SenderUser, Text: "연애"},
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// RunSnapshotStoreContract verifies that a SnapshotStore adheres to the interface contract.
func RunSnapshotStoreContract(t *testing.T, store ports.SnapshotStore) {
	t.Helper()
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := sampleSnapshot(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, snap.State.Step, loaded.State.Step)
		assert.Equal(t, snap.State.Offered, loaded.State.Offered)
		require.Len(t, loaded.Transcript, 2)
		assert.Equal(t, "연애", loaded.Transcript[1].Text)
		assert.Equal(t, "지수", loaded.Profile.Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := sessionID+"-1", sessionID+"-2"
		require.NoError(t, store.Save(ctx, id1, sampleSnapshot(id1)))
		require.NoError(t, store.Save(ctx, id2, sampleSnapshot(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, sampleSnapshot(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})
}

// RunConsultationStoreContract verifies that a ConsultationStore adheres to the interface contract.
func RunConsultationStoreContract(t *testing.T, store ports.ConsultationStore) {
	t.Helper()
	ctx := context.Background()

	first := domain.Consultation{
		Title: "연애 > 시작 단계 > 짝사랑 > 언제 고백할지",
		Transcript: []domain.Turn{
			{ID: "a", Sender: domain.SenderSystem, Text: "첫 문단"},
			{ID: "b", Sender: domain.SenderSystem, Text: "마지막 문단", IsResult: true},
		},
		ArtifactRef: "https://img.example/1.png",
		Reactions:   map[string]string{"b": "like"},
		Profile:     domain.Profile{Name: "지수"},
		CreatedAt:   time.Now().UTC().Add(-time.Minute).Truncate(time.Second),
	}
	second := domain.Consultation{
		Title:      "나 취업할 수 있을까?",
		Transcript: []domain.Turn{{ID: "c", Sender: domain.SenderUser, Text: "나 취업할 수 있을까?"}},
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}

	var firstID, secondID string

	t.Run("Save", func(t *testing.T) {
		var err error
		firstID, err = store.SaveConsultation(ctx, first)
		require.NoError(t, err)
		assert.NotEmpty(t, firstID)

		secondID, err = store.SaveConsultation(ctx, second)
		require.NoError(t, err)
		assert.NotEqual(t, firstID, secondID, "each save must yield a distinct id")
	})

	t.Run("Get", func(t *testing.T) {
		got, err := store.GetConsultation(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, firstID, got.ID)
		assert.Equal(t, first.Title, got.Title)
		assert.Equal(t, first.ArtifactRef, got.ArtifactRef)
		require.Len(t, got.Transcript, 2)
		assert.True(t, got.Transcript[1].IsResult)
		assert.Equal(t, "like", got.Reactions["b"])
		assert.Equal(t, "지수", got.Profile.Name)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetConsultation(ctx, "missing-consultation")
		assert.ErrorIs(t, err, domain.ErrConsultationNotFound)
	})

	t.Run("List Newest First", func(t *testing.T) {
		list, err := store.ListConsultations(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(list), 2)

		pos := map[string]int{}
		for i, s := range list {
			pos[s.ID] = i
		}
		assert.Less(t, pos[secondID], pos[firstID])
	})
}
