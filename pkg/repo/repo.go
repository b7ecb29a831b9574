// Package repo provides the generic record repository interface and a
// SQLite-backed implementation.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested id has no row.
var ErrNotFound = errors.New("repo: not found")

// Repository is a generic CRUD interface over one record kind.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id ID) error
}

// ListOpts controls pagination for List operations.
type ListOpts struct {
	Offset int
	Limit  int
}
