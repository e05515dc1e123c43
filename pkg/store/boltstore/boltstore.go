// Package boltstore is a store.Store backed by a local bbolt file
package boltstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fhepoker-client/pkg/store"
	"go.etcd.io/bbolt"
)

const cacheBucket = "cache"

// Store is a bbolt-backed key-value store
type Store struct {
	db *bbolt.DB
}

// Open opens the store at path, creating it if needed
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close implements store.Store
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Get implements store.Store
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}

		payload := bucket.Get([]byte(key))
		if payload == nil {
			return fmt.Errorf("%s: %w", key, store.ErrNotFound)
		}

		// payload is only valid for the life of the transaction
		value = append([]byte(nil), payload...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Put implements store.Store
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}

		return bucket.Put([]byte(key), value)
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(cacheBucket)); err != nil {
			return fmt.Errorf("create cache bucket: %w", err)
		}

		return nil
	})
}
