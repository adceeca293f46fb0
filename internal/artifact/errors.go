package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPrompt is returned when a request has no prompt text.
	ErrEmptyPrompt = errors.New("artifact prompt is empty")
	// ErrJobInFlight is returned while another job of the same conversation is pending.
	ErrJobInFlight = errors.New("artifact job already in flight")
	// ErrArtifactDone is returned once an artifact was generated for the current cycle.
	ErrArtifactDone = errors.New("artifact already generated")
	// ErrJobFailed marks an explicit failure reported by the backend.
	ErrJobFailed = errors.New("artifact job failed")
	// ErrJobTimeout marks a job that stayed pending for every poll attempt.
	ErrJobTimeout = errors.New("artifact job timed out")
	// ErrJobCanceled marks a job abandoned by a conversation reset.
	ErrJobCanceled = errors.New("artifact job canceled")
)

// JobFailedError is returned when the backend reports the job as failed.
type JobFailedError struct {
	JobID  string
	Reason string
}

func (e *JobFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("artifact job %s failed", e.JobID)
	}
	return fmt.Sprintf("artifact job %s failed: %s", e.JobID, e.Reason)
}

func (e *JobFailedError) Unwrap() error { return ErrJobFailed }

// JobTimeoutError is returned when polling exhausted its attempts.
type JobTimeoutError struct {
	JobID    string
	Attempts int
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("artifact job %s still pending after %d attempts", e.JobID, e.Attempts)
}

func (e *JobTimeoutError) Unwrap() error { return ErrJobTimeout }
