package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
)

// Mask replaces masked profile values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the profile fields whose JSON key
// (name, birth_date, birth_time, gender, calendar) matches one of the patterns.
// Resumed conversations see the masked values.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	// Copy so the live conversation keeps the real profile.
	cloned := *snap
	maskProfile(&cloned.Profile, m.patterns)
	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskProfile(p *domain.Profile, patterns []*regexp.Regexp) {
	fields := map[string]*string{
		"name":       &p.Name,
		"birth_date": &p.BirthDate,
		"birth_time": &p.BirthTime,
		"gender":     &p.Gender,
		"calendar":   &p.Calendar,
	}
	for key, v := range fields {
		if *v == "" {
			continue
		}
		for _, re := range patterns {
			if re.MatchString(key) {
				*v = Mask
				break
			}
		}
	}
}
