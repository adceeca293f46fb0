package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ConsultationStore implements ports.ConsultationStore using Redis.
// Consultations never expire; a ZSET scored by creation time orders the listing.
type ConsultationStore struct {
	client *backend.Client
	prefix string
}

// NewConsultationStore creates a consultation store from an existing client.
func NewConsultationStore(client *backend.Client, prefix string) *ConsultationStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &ConsultationStore{client: client, prefix: prefix}
}

func (s *ConsultationStore) key(id string) string {
	return s.prefix + "consultation:" + id
}

func (s *ConsultationStore) indexKey() string {
	return s.prefix + "consultation:index"
}

// SaveConsultation implements ports.ConsultationStore.
func (s *ConsultationStore) SaveConsultation(ctx context.Context, c domain.Consultation) (string, error) {
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal consultation: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(c.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: float64(c.CreatedAt.UnixNano()), Member: c.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save consultation: %w", err)
	}
	return c.ID, nil
}

// GetConsultation implements ports.ConsultationStore.
func (s *ConsultationStore) GetConsultation(ctx context.Context, id string) (*domain.Consultation, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrConsultationNotFound
		}
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}

	var c domain.Consultation
	if err := json.Unmarshal(val, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consultation: %w", err)
	}
	return &c, nil
}

// ListConsultations implements ports.ConsultationStore.
func (s *ConsultationStore) ListConsultations(ctx context.Context) ([]domain.ConsultationSummary, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load consultations: %w", err)
	}

	out := make([]domain.ConsultationSummary, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var c domain.Consultation
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal consultation: %w", err)
		}
		out = append(out, domain.ConsultationSummary{
			ID:          c.ID,
			Title:       c.Title,
			ArtifactRef: c.ArtifactRef,
			CreatedAt:   c.CreatedAt,
		})
	}
	return out, nil
}
