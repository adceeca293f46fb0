package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/talisman/pkg/adapters/memory"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksMatchingFields(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"^name$", "^birth_"})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	snap := sampleSnapshot("s1")
	snap.Profile = domain.Profile{
		Name:      "지수",
		BirthDate: "1995-03-02",
		BirthTime: "07:30",
		Gender:    "female",
	}
	require.NoError(t, store.Save(ctx, "s1", snap))

	assert.Equal(t, "지수", snap.Profile.Name, "caller's snapshot is untouched")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Profile.Name)
	assert.Equal(t, middleware.Mask, loaded.Profile.BirthDate)
	assert.Equal(t, middleware.Mask, loaded.Profile.BirthTime)
	assert.Equal(t, "female", loaded.Profile.Gender)
	assert.Empty(t, loaded.Profile.Calendar, "empty fields stay empty")
	assert.Equal(t, "이직해도 될까요", loaded.State.FreeText)
}

func TestNewPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.ErrorContains(t, err, "invalid PII pattern")
}

func TestChain_OrderAppliesMaskBeforeEncryption(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"name"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", sampleSnapshot("s1")))

	raw, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Profile.Name)
}
