package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// CommitRecord is one session committed from this device.
type CommitRecord struct {
	Kind        models.SessionKind `json:"kind"`
	RemoteID    string             `json:"remote_id"`
	Name        string             `json:"name"`
	CommittedAt time.Time          `json:"committed_at"`
}

// RecordCommit appends a commit to the local log.
func (s *StateDB) RecordCommit(ctx context.Context, rec CommitRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commit_log (kind, remote_id, name, committed_at) VALUES (?, ?, ?, ?)`,
		string(rec.Kind), rec.RemoteID, rec.Name, rec.CommittedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording commit: %w", err)
	}
	return nil
}

// RecentCommits returns up to limit commits, newest first.
func (s *StateDB) RecentCommits(ctx context.Context, limit int) ([]CommitRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, remote_id, name, committed_at FROM commit_log
		 ORDER BY committed_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying commits: %w", err)
	}
	defer rows.Close()

	out := []CommitRecord{}
	for rows.Next() {
		var (
			rec  CommitRecord
			kind string
		)
		if err := rows.Scan(&kind, &rec.RemoteID, &rec.Name, &rec.CommittedAt); err != nil {
			return nil, fmt.Errorf("scanning commit: %w", err)
		}
		rec.Kind = models.SessionKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}
