package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/google/uuid"
)

// ConsultationStore implements ports.ConsultationStore in memory.
type ConsultationStore struct {
	mu    sync.RWMutex
	items map[string]domain.Consultation
	order []string
}

// NewConsultationStore creates an empty store.
func NewConsultationStore() *ConsultationStore {
	return &ConsultationStore{items: make(map[string]domain.Consultation)}
}

// SaveConsultation stores c under a fresh identifier.
func (s *ConsultationStore) SaveConsultation(ctx context.Context, c domain.Consultation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	c.ID = id
	c.Transcript = append([]domain.Turn(nil), c.Transcript...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = c
	s.order = append(s.order, id)
	return id, nil
}

// GetConsultation returns a stored consultation.
func (s *ConsultationStore) GetConsultation(ctx context.Context, id string) (*domain.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return nil, domain.ErrConsultationNotFound
	}
	c.Transcript = append([]domain.Turn(nil), c.Transcript...)
	return &c, nil
}

// ListConsultations returns summaries, newest first.
func (s *ConsultationStore) ListConsultations(ctx context.Context) ([]domain.ConsultationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ConsultationSummary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.items[s.order[i]]
		out = append(out, domain.ConsultationSummary{
			ID:          c.ID,
			Title:       c.Title,
			ArtifactRef: c.ArtifactRef,
			CreatedAt:   c.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Len returns the number of stored consultations.
func (s *ConsultationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
