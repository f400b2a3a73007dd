package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
)

// Records binds a Store to one collection and decodes its wire JSON into
// typed records.
type Records[T models.Record] struct {
	store      Store
	collection string
}

func NewRecords[T models.Record](store Store, collection string) *Records[T] {
	return &Records[T]{store: store, collection: collection}
}

func (r *Records[T]) Collection() string { return r.collection }

// ListAll fetches the whole collection. A record that cannot be decoded
// fails the call with ErrValidation.
func (r *Records[T]) ListAll(ctx context.Context) ([]T, error) {
	raw, err := r.store.ListAll(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for i, m := range raw {
		var rec T
		if err := json.Unmarshal(m, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrValidation, r.collection, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Records[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	raw, err := r.store.Get(ctx, r.collection, id)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("%w: %s %s: %v", ErrValidation, r.collection, id, err)
	}
	return rec, nil
}

func (r *Records[T]) Create(ctx context.Context, rec T) error {
	_, err := r.store.Create(ctx, r.collection, rec)
	return err
}

// Upsert pushes the full record through the update endpoint.
func (r *Records[T]) Upsert(ctx context.Context, rec T) error {
	_, err := r.store.Update(ctx, r.collection, rec.RecordID(), rec)
	return err
}

func (r *Records[T]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.collection, id)
}
