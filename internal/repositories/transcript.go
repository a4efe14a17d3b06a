package repositories

import (
	"context"
	"errors"
	"fmt"

	"alfredoptarigan/underwriting-intake/internal/models"
)

type TranscriptRepository interface {
	Create(ctx context.Context, sessionID string) error
	Append(ctx context.Context, sessionID string, entries ...models.TranscriptEntry) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.Transcript, error)
}

type transcriptRepository struct {
	store Store[models.Transcript]
}

func NewTranscriptRepository(store Store[models.Transcript]) TranscriptRepository {
	return &transcriptRepository{store: store}
}

func (r *transcriptRepository) Create(ctx context.Context, sessionID string) error {
	transcript := models.Transcript{SessionID: sessionID, Items: []models.TranscriptEntry{}}
	if err := r.store.Put(ctx, sessionID, transcript); err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}
	return nil
}

func (r *transcriptRepository) Append(ctx context.Context, sessionID string, entries ...models.TranscriptEntry) error {
	_, err := r.store.Update(ctx, sessionID, func(t *models.Transcript, exists bool) error {
		if !exists {
			return ErrRecordNotFound
		}
		t.Items = append(t.Items, entries...)
		return nil
	})
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return err
}

func (r *transcriptRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Transcript, error) {
	transcript, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &transcript, nil
}
