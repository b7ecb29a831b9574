package repo

import (
	"context"
	"encoding/json"
	"fmt"
)

// Records is a typed view over one record kind in a Store. It
// implements Repository[T, string].
type Records[T any] struct {
	store *Store
	kind  string
	id    func(T) string
}

// NewRecords creates a typed record collection for kind, using id to
// extract the primary key from an entity.
func NewRecords[T any](store *Store, kind string, id func(T) string) *Records[T] {
	return &Records[T]{store: store, kind: kind, id: id}
}

// Get loads one entity by id.
func (r *Records[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	if err := r.store.GetRecord(ctx, r.kind, id, &out); err != nil {
		return out, err
	}
	return out, nil
}

// List returns entities in insertion order.
func (r *Records[T]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	raw, err := r.store.ListRecords(ctx, r.kind, opts)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(raw))
	for i, data := range raw {
		if err := json.Unmarshal(data, &out[i]); err != nil {
			return nil, fmt.Errorf("repo: decode %s: %w", r.kind, err)
		}
	}
	return out, nil
}

// Create stores a new entity. Creating over an existing id replaces it;
// id uniqueness is the caller's concern.
func (r *Records[T]) Create(ctx context.Context, entity T) (T, error) {
	if err := r.store.PutRecord(ctx, r.kind, r.id(entity), entity); err != nil {
		var zero T
		return zero, err
	}
	return entity, nil
}

// Update replaces an existing entity wholesale.
func (r *Records[T]) Update(ctx context.Context, entity T) (T, error) {
	return r.Create(ctx, entity)
}

// Delete removes an entity by id.
func (r *Records[T]) Delete(ctx context.Context, id string) error {
	return r.store.DeleteRecord(ctx, r.kind, id)
}
