package domain

import "time"

// Consultation is a finished transcript handed to a consultation store.
type Consultation struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Transcript  []Turn            `json:"transcript"`
	ArtifactRef string            `json:"artifact_ref,omitempty"`
	Reactions   map[string]string `json:"reactions,omitempty"`
	Profile     Profile           `json:"profile"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ConsultationSummary is the listing view of a saved consultation.
type ConsultationSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ArtifactRef string    `json:"artifact_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
