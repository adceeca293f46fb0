package domain

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// GenerationJob tracks one talisman generation request.
// It is mutated only by the poll loop and is terminal once Status leaves JobPending.
type GenerationJob struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Attempts    int       `json:"attempts"`
	ArtifactRef string    `json:"artifact_ref,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}
