package artifact

import (
	"context"
	"sync"

	"github.com/aretw0/talisman/pkg/domain"
)

// Task is the handle of one running generation job.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	job domain.GenerationJob
	err error
}

// Done is closed once the job reached a terminal outcome (or was canceled).
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
// On success it returns the job with its artifact reference.
func (t *Task) Wait(ctx context.Context) (domain.GenerationJob, error) {
	select {
	case <-ctx.Done():
		return t.Job(), ctx.Err()
	case <-t.done:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job, t.err
}

// Job returns the latest view of the job.
func (t *Task) Job() domain.GenerationJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job
}

// Cancel aborts the poll loop. It is safe to call more than once.
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) update(job domain.GenerationJob) {
	t.mu.Lock()
	t.job = job
	t.mu.Unlock()
}

func (t *Task) finish(job domain.GenerationJob, err error) {
	t.mu.Lock()
	t.job = job
	t.err = err
	t.mu.Unlock()
	t.cancel()
	close(t.done)
}
