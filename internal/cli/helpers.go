package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/talisman/internal/config"
	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger from cfg. Logs go to w, which should
// be Stderr so the chat and MCP stdio stay clean on Stdout.
func NewLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(w, level, cfg.Format), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func logSessionStatus(logger *slog.Logger, w io.Writer, sessionID string, step domain.Step, loaded, quiet bool) {
	if loaded {
		logger.Info("Session Resumed", "session_id", sessionID, "step", step)
		if !quiet {
			printSystemMessage(w, "Resuming session '%s' at %s...", sessionID, step)
		}
		return
	}
	logger.Info("Session Created", "session_id", sessionID)
	if !quiet {
		printSystemMessage(w, "Session '%s' active.", sessionID)
	}
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Transition", "session_id", e.SessionID, "from", e.From, "to", e.To, "event", e.Event)
		},
		OnInference: func(ctx context.Context, e *domain.InferenceEvent) {
			if e.Err != nil {
				logger.Debug("Inference (Error)", "session_id", e.SessionID, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Debug("Inference", "session_id", e.SessionID, "paragraphs", e.Paragraphs, "duration", e.Duration)
		},
		OnArtifact: func(ctx context.Context, e *domain.ArtifactEvent) {
			logger.Debug("Artifact", "session_id", e.SessionID, "job_id", e.Job.JobID, "status", e.Job.Status, "attempts", e.Job.Attempts)
		},
		OnSave: func(ctx context.Context, e *domain.SaveEvent) {
			logger.Debug("Save", "session_id", e.SessionID, "consultation_id", e.ConsultationID, "err", e.Err)
		},
	}
}
