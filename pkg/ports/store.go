package ports

import (
	"context"

	"github.com/aretw0/talisman/pkg/domain"
)

// ConsultationStore persists finished consultations.
type ConsultationStore interface {
	// SaveConsultation stores c and returns its opaque identifier.
	SaveConsultation(ctx context.Context, c domain.Consultation) (string, error)

	// GetConsultation returns a stored consultation.
	// Returns domain.ErrConsultationNotFound if it does not exist.
	GetConsultation(ctx context.Context, id string) (*domain.Consultation, error)

	// ListConsultations returns summaries, newest first.
	ListConsultations(ctx context.Context) ([]domain.ConsultationSummary, error)
}

// SnapshotStore persists conversation snapshots so sessions survive restarts of the host.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all stored session IDs.
	List(ctx context.Context) ([]string, error)
}
