package recorder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/talisman/pkg/adapters/memory"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	*memory.ConsultationStore
	fail bool
}

func (f *flakyStore) SaveConsultation(ctx context.Context, c domain.Consultation) (string, error) {
	if f.fail {
		return "", errors.New("db down")
	}
	return f.ConsultationStore.SaveConsultation(ctx, c)
}

func transcript() []domain.Turn {
	return []domain.Turn{
		{ID: "1", Sender: domain.SenderUser, Text: "나 취업할 수 있을까?"},
		{ID: "2", Sender: domain.SenderSystem, Text: "좋은 기운이 보여요", IsResult: true},
	}
}

func TestTitle(t *testing.T) {
	full := domain.ConcernPath{Category: "연애", Topic: "시작 단계", Detail: "짝사랑", Leaf: "언제 고백할지"}

	tests := []struct {
		name     string
		freeText string
		path     domain.ConcernPath
		want     string
	}{
		{"Free text wins", "나 취업할 수 있을까?", full, "나 취업할 수 있을까?"},
		{"Leaf path", "", full, "연애 > 시작 단계 > 짝사랑 > 언제 고백할지"},
		{"Incomplete path falls back", "", domain.ConcernPath{Category: "연애"}, FallbackTitle},
		{"Whitespace falls back", "   ", domain.ConcernPath{}, FallbackTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.freeText, tt.path))
		})
	}

	long := strings.Repeat("가", 100)
	assert.Equal(t, maxTitleRunes+1, len([]rune(Title(long, domain.ConcernPath{}))))
}

func TestSave_IsSingleShot(t *testing.T) {
	store := memory.NewConsultationStore()
	r := New(store)
	ctx := context.Background()

	id1, err := r.Save(ctx, Record{Transcript: transcript(), FreeText: "나 취업할 수 있을까?", ArtifactRef: "ref"})
	require.NoError(t, err)
	id2, err := r.Save(ctx, Record{Transcript: transcript()})
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, id1, r.Saved())

	saved, err := store.GetConsultation(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "나 취업할 수 있을까?", saved.Title)
	assert.Equal(t, "ref", saved.ArtifactRef)
}

func TestSave_ConcurrentCallsStoreOnce(t *testing.T) {
	store := memory.NewConsultationStore()
	r := New(store)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _ = r.Save(context.Background(), Record{Transcript: transcript()})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestSave_FailureAllowsRetry(t *testing.T) {
	store := &flakyStore{ConsultationStore: memory.NewConsultationStore(), fail: true}
	r := New(store)
	ctx := context.Background()

	_, err := r.Save(ctx, Record{Transcript: transcript()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, r.Saved())

	store.fail = false
	id, err := r.Save(ctx, Record{Transcript: transcript()})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestSave_EmptyTranscript(t *testing.T) {
	r := New(memory.NewConsultationStore())
	_, err := r.Save(context.Background(), Record{})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestReset_AllowsNewSave(t *testing.T) {
	store := memory.NewConsultationStore()
	r := New(store)
	ctx := context.Background()

	_, err := r.Save(ctx, Record{Transcript: transcript()})
	require.NoError(t, err)
	r.Reset()
	_, err = r.Save(ctx, Record{Transcript: transcript()})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}
