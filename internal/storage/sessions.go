package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Save stores the serialized session of kind, replacing any previous one.
func (s *StateDB) Save(ctx context.Context, kind models.SessionKind, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO active_sessions (kind, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(kind), payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving %s session: %w", kind, err)
	}
	return nil
}

// Load returns the serialized session of kind, or nil when none is stored.
func (s *StateDB) Load(ctx context.Context, kind models.SessionKind) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM active_sessions WHERE kind = ?`, string(kind),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s session: %w", kind, err)
	}
	return payload, nil
}

// Delete removes the stored session of kind. Deleting a missing one is not an error.
func (s *StateDB) Delete(ctx context.Context, kind models.SessionKind) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("deleting %s session: %w", kind, err)
	}
	return nil
}

// UpdatedAt reports when the session of kind was last written.
func (s *StateDB) UpdatedAt(ctx context.Context, kind models.SessionKind) (time.Time, bool, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM active_sessions WHERE kind = ?`, string(kind),
	).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading %s session time: %w", kind, err)
	}
	return t, true, nil
}
