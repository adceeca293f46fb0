package domain

import "time"

// Affordances lists the actions currently available to the user.
type Affordances struct {
	CanGenerateArtifact bool `json:"can_generate_artifact"`
	ArtifactInFlight    bool `json:"artifact_in_flight"`
	CanSave             bool `json:"can_save"`
	CanRestart          bool `json:"can_restart"`
}

// Snapshot is a serializable view of one conversation.
type Snapshot struct {
	ID          string            `json:"id"`
	Profile     Profile           `json:"profile"`
	State       DialogueState     `json:"state"`
	Transcript  []Turn            `json:"transcript"`
	Typing      *Placeholder      `json:"typing,omitempty"`
	Affordances Affordances       `json:"affordances"`
	Artifact    *GenerationJob    `json:"artifact,omitempty"`
	SavedID     string            `json:"saved_id,omitempty"`
	Reactions   map[string]string `json:"reactions,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
	// Sealed carries the encrypted snapshot when it is stored through an encrypting
	// store. Only ID and UpdatedAt are readable alongside it.
	Sealed string `json:"sealed,omitempty"`
}
