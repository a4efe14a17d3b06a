package repositories

import (
	"context"
	"errors"
)

var ErrRecordNotFound = errors.New("record not found")

// Store is a keyed store for one entity type. Implementations must make Update
// atomic with respect to other Update calls on the same key.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, error)
	Put(ctx context.Context, key string, value V) error
	Delete(ctx context.Context, key string) error
	// Update applies fn to the current value (the zero value when exists is
	// false) and persists the result. An error from fn aborts the write.
	Update(ctx context.Context, key string, fn func(value *V, exists bool) error) (V, error)
	List(ctx context.Context) ([]V, error)
}

// Sweeper removes expired records.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
