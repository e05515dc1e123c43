// Package pgstore is a store.Store backed by postgres, for clients sharing a cache
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fhepoker-client/pkg/store"
)

// Store is a postgres-backed key-value store
// The client_cache table is created by the migrations in sql/
type Store struct {
	db *sql.DB
}

// New returns a store using an open database handle
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get implements store.Store
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM client_cache WHERE key = $1`

	var value []byte
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", key, store.ErrNotFound)
		}

		return nil, err
	}

	return value, nil
}

// Put implements store.Store
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	const query = `
INSERT INTO client_cache (key, value, updated)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated = NOW()`

	if _, err := s.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return err
	}

	return nil
}

// Close implements store.Store
func (s *Store) Close() error {
	return s.db.Close()
}
