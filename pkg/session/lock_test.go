package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/pkg/adapters/canned"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLifecycle(t *testing.T) {
	engine, err := talisman.New(talisman.WithInference(canned.NewInference()))
	require.NoError(t, err)
	mgr := NewManager(engine)
	ctx := context.Background()

	for i := range 10000 {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.WithLock(ctx, sid, func(context.Context) error { return nil })
	}

	mgr.mu.Lock()
	lockCount := len(mgr.locks)
	mgr.mu.Unlock()

	if lockCount != 0 {
		t.Errorf("memory leak detected: %d locks remaining after use", lockCount)
	}
}
