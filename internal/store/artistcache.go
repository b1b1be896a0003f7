// Package store persists resolved artist names in Postgres so they survive
// process restarts and the in-memory cache's TTLs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotCached signals the work has no persisted artist name.
var ErrNotCached = errors.New("artist name not cached")

// Store provides artist-name persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the artist_names table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS artist_names (
			work_id          TEXT PRIMARY KEY,
			artist_name      TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			access_count     BIGINT NOT NULL DEFAULT 0,
			last_accessed_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("create artist_names table: %w", err)
	}
	return nil
}

// Get returns the persisted artist name for a work and records the access.
func (s *Store) Get(ctx context.Context, workID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		UPDATE artist_names
		SET access_count = access_count + 1, last_accessed_at = now()
		WHERE work_id = $1
		RETURNING artist_name
	`, workID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotCached
	}
	if err != nil {
		return "", fmt.Errorf("get artist name: %w", err)
	}
	return name, nil
}

// Put stores or replaces the artist name for a work.
func (s *Store) Put(ctx context.Context, workID, artistName string) error {
	if strings.TrimSpace(workID) == "" {
		return fmt.Errorf("work id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artist_names (work_id, artist_name)
		VALUES ($1, $2)
		ON CONFLICT (work_id)
		DO UPDATE SET artist_name = EXCLUDED.artist_name, updated_at = now()
	`, workID, artistName)
	if err != nil {
		return fmt.Errorf("put artist name: %w", err)
	}
	return nil
}

// GetBatch returns the persisted artist names for the given works. Works with
// no entry are simply absent from the result; batch reads do not bump access
// stats.
func (s *Store) GetBatch(ctx context.Context, workIDs []string) (map[string]string, error) {
	if len(workIDs) == 0 {
		return map[string]string{}, nil
	}

	placeholders := make([]string, len(workIDs))
	args := make([]any, len(workIDs))
	for i, id := range workIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT work_id, artist_name
		FROM artist_names
		WHERE work_id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("batch get artist names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string, len(workIDs))
	for rows.Next() {
		var workID, name string
		if err := rows.Scan(&workID, &name); err != nil {
			return nil, fmt.Errorf("scan artist name: %w", err)
		}
		names[workID] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artist names: %w", err)
	}
	return names, nil
}

// Delete drops the persisted name for a work, forcing the next lookup to
// resolve it fresh from the catalog.
func (s *Store) Delete(ctx context.Context, workID string) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM artist_names WHERE work_id = $1
	`, workID); err != nil {
		return fmt.Errorf("delete artist name: %w", err)
	}
	return nil
}
