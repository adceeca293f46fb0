package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// raceWindow is how long CheckRace waits for a signal to follow an input error.
const raceWindow = 100 * time.Millisecond

// SignalManager turns OS signals into a context that can be re-armed after each
// interruption, so one Ctrl+C stops a narration and the next one ends the chat.
type SignalManager struct {
	signals []os.Signal

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSignalManager creates a manager and immediately starts listening. Without
// arguments it listens for SIGINT and SIGTERM.
func NewSignalManager(signals ...os.Signal) *SignalManager {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sm := &SignalManager{signals: signals}
	sm.Reset()
	return sm
}

// Context returns the current signal context. It is canceled when a signal arrives.
func (sm *SignalManager) Context() context.Context {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.ctx
}

// Reset re-arms the listener with a fresh context.
// Call it once an interruption has been handled.
func (sm *SignalManager) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.ctx, sm.cancel = signal.NotifyContext(context.Background(), sm.signals...)
}

// Stop permanently stops the listener and cancels the current context.
func (sm *SignalManager) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.cancel != nil {
		sm.cancel()
	}
}

// CheckRace waits briefly to see if a signal follows an input error.
// Some terminals report Ctrl+C as EOF slightly before the signal is delivered.
func (sm *SignalManager) CheckRace() {
	ctx := sm.Context()
	if ctx.Err() != nil {
		return
	}
	timer := time.NewTimer(raceWindow)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
