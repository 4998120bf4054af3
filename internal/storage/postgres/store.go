package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cursorSchema = `
	CREATE TABLE IF NOT EXISTS registry_cursor (
		name       TEXT PRIMARY KEY,
		next_block BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// Store provides Postgres persistence for watcher cursors.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the cursor table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, cursorSchema); err != nil {
		return fmt.Errorf("create registry_cursor: %w", err)
	}
	return nil
}

// LoadCursor returns next_block for a name.
func (s *Store) LoadCursor(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("cursor name required")
	}
	var next int64
	row := s.pool.QueryRow(ctx, `SELECT next_block FROM registry_cursor WHERE name=$1`, name)
	if err := row.Scan(&next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if next < 0 {
		return 0, false, fmt.Errorf("cursor %s has negative next_block %d", name, next)
	}
	return uint64(next), true, nil
}

// SaveCursor upserts next_block for a name.
func (s *Store) SaveCursor(ctx context.Context, name string, next uint64) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO registry_cursor (name, next_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET next_block = EXCLUDED.next_block, updated_at = now()
	`, name, int64(next))
	return err
}
