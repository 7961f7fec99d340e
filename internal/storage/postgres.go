package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps each collection as a single jsonb row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, collection Collection) ([]byte, error) {
	query := `
		SELECT data
		FROM collections
		WHERE name = $1
	`

	var data []byte
	err := s.pool.QueryRow(ctx, query, string(collection)).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select collection: %w", err)
	}

	return data, nil
}

func (s *PostgresStore) Put(ctx context.Context, collection Collection, data []byte) error {
	query := `
		INSERT INTO collections (name, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.pool.Exec(ctx, query, string(collection), data); err != nil {
		return fmt.Errorf("upsert collection: %w", err)
	}

	return nil
}
