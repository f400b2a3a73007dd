// Package cache is the on-device snapshot store for the synchronized
// collections. Each namespace holds one JSON array with the whole
// collection; writes replace it wholesale.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/auditkeeper/internal/dbx"
)

// Instance is the fixed key under which a namespace keeps its snapshot.
const Instance = "snapshot"

type Store interface {
	// Get returns the stored snapshot, or nil when the namespace was never
	// written.
	Get(ctx context.Context, namespace string) ([]byte, error)
	// Set replaces the namespace's snapshot.
	Set(ctx context.Context, namespace string, data []byte) error
	// Clear drops every namespace.
	Clear(ctx context.Context) error
}

type SQLiteStore struct {
	db dbx.DBTX
}

func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, namespace string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM collections WHERE namespace = ? AND instance = ?`, namespace, Instance).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot[%s]: %w", namespace, err)
	}
	return data, nil
}

func (s *SQLiteStore) Set(ctx context.Context, namespace string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (namespace, instance, data, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(namespace, instance) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, namespace, Instance, data)
	if err != nil {
		return fmt.Errorf("failed to set snapshot[%s]: %w", namespace, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections`); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}

// Load decodes the namespace's snapshot into a slice. A missing namespace
// yields an empty slice and ok=false so callers can tell "never cached"
// from "cached empty".
func Load[T any](ctx context.Context, s Store, namespace string) (items []T, ok bool, err error) {
	data, err := s.Get(ctx, namespace)
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot[%s]: %w", namespace, err)
	}
	return items, true, nil
}

// Save encodes items as a JSON array and replaces the namespace's snapshot.
func Save[T any](ctx context.Context, s Store, namespace string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot[%s]: %w", namespace, err)
	}
	return s.Set(ctx, namespace, data)
}
