// Package sqlite implements ports.ConsultationStore on an embedded SQLite database
// (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS consultations (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	artifact_ref TEXT,
	profile      TEXT,
	reactions    TEXT,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consultations_created ON consultations(created_at);

CREATE TABLE IF NOT EXISTS turns (
	consultation_id TEXT NOT NULL REFERENCES consultations(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	id              TEXT NOT NULL,
	sender          TEXT NOT NULL,
	text            TEXT,
	image_ref       TEXT,
	is_result       INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT,
	PRIMARY KEY (consultation_id, position)
);
`

// Store is a SQLite-backed consultation store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens (creating if needed) the database at dbPath and applies the schema.
func Open(dbPath string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveConsultation implements ports.ConsultationStore.
func (s *Store) SaveConsultation(ctx context.Context, c domain.Consultation) (string, error) {
	id := uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	profile, err := json.Marshal(c.Profile)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	reactions, err := json.Marshal(c.Reactions)
	if err != nil {
		return "", fmt.Errorf("encode reactions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO consultations (id, title, artifact_ref, profile, reactions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, c.Title, c.ArtifactRef, string(profile), string(reactions), formatTime(c.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert consultation: %w", err)
	}

	for i, t := range c.Transcript {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO turns (consultation_id, position, id, sender, text, image_ref, is_result, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, t.ID, string(t.Sender), t.Text, t.ImageRef, t.IsResult, formatTime(t.CreatedAt),
		)
		if err != nil {
			return "", fmt.Errorf("insert turn %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("consultation stored", "consultation_id", id, "turns", len(c.Transcript))
	return id, nil
}

// GetConsultation implements ports.ConsultationStore.
func (s *Store) GetConsultation(ctx context.Context, id string) (*domain.Consultation, error) {
	var (
		c                  domain.Consultation
		artifact           sql.NullString
		profile, reactions sql.NullString
		created            string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, artifact_ref, profile, reactions, created_at FROM consultations WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &artifact, &profile, &reactions, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConsultationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query consultation: %w", err)
	}

	c.ArtifactRef = artifact.String
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if profile.Valid && profile.String != "" {
		if err := json.Unmarshal([]byte(profile.String), &c.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	if reactions.Valid && reactions.String != "" && reactions.String != "null" {
		if err := json.Unmarshal([]byte(reactions.String), &c.Reactions); err != nil {
			return nil, fmt.Errorf("decode reactions: %w", err)
		}
	}

	c.Transcript, err = s.turns(ctx, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) turns(ctx context.Context, id string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, text, image_ref, is_result, created_at FROM turns
		 WHERE consultation_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var (
			t                 domain.Turn
			sender            string
			text, image, when sql.NullString
		)
		if err := rows.Scan(&t.ID, &sender, &text, &image, &t.IsResult, &when); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Sender = domain.Sender(sender)
		t.Text = text.String
		t.ImageRef = image.String
		if when.Valid && when.String != "" {
			if t.CreatedAt, err = parseTime(when.String); err != nil {
				return nil, err
			}
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// ListConsultations implements ports.ConsultationStore.
func (s *Store) ListConsultations(ctx context.Context) ([]domain.ConsultationSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, artifact_ref, created_at FROM consultations ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var out []domain.ConsultationSummary
	for rows.Next() {
		var (
			sum      domain.ConsultationSummary
			artifact sql.NullString
			created  string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &artifact, &created); err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		sum.ArtifactRef = artifact.String
		if sum.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Timestamps are stored as fixed-width UTC text so that lexical order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
