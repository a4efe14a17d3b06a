package repositories

import (
	"context"
	"errors"
	"fmt"
)

// IdempotentResponse is a stored response replayed for a repeated Idempotency-Key.
type IdempotentResponse struct {
	Key        string `json:"key"`
	StatusCode int    `json:"statusCode"`
	Body       []byte `json:"body"`
}

type IdempotencyRepository interface {
	Get(ctx context.Context, scope, key string) (*IdempotentResponse, bool, error)
	Put(ctx context.Context, scope string, response *IdempotentResponse) error
}

type idempotencyRepository struct {
	store Store[IdempotentResponse]
}

func NewIdempotencyRepository(store Store[IdempotentResponse]) IdempotencyRepository {
	return &idempotencyRepository{store: store}
}

func (r *idempotencyRepository) Get(ctx context.Context, scope, key string) (*IdempotentResponse, bool, error) {
	resp, err := r.store.Get(ctx, scope+":"+key)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load idempotency record: %w", err)
	}
	return &resp, true, nil
}

func (r *idempotencyRepository) Put(ctx context.Context, scope string, response *IdempotentResponse) error {
	if err := r.store.Put(ctx, scope+":"+response.Key, *response); err != nil {
		return fmt.Errorf("failed to save idempotency record: %w", err)
	}
	return nil
}
