package repositories

import (
	"context"
	"fmt"
	"time"

	"alfredoptarigan/underwriting-intake/internal/models"
)

type ConfirmationRepository interface {
	Save(ctx context.Context, record *models.ConfirmationRecord) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.ConfirmationRecord, error)
	MarkConsumed(ctx context.Context, sessionID string) error
}

type confirmationRepository struct {
	store Store[models.ConfirmationRecord]
}

func NewConfirmationRepository(store Store[models.ConfirmationRecord]) ConfirmationRepository {
	return &confirmationRepository{store: store}
}

// Save replaces any earlier record for the session.
func (r *confirmationRepository) Save(ctx context.Context, record *models.ConfirmationRecord) error {
	if err := r.store.Put(ctx, record.SessionID, *record); err != nil {
		return fmt.Errorf("failed to save confirmation: %w", err)
	}
	return nil
}

func (r *confirmationRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.ConfirmationRecord, error) {
	record, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *confirmationRepository) MarkConsumed(ctx context.Context, sessionID string) error {
	_, err := r.store.Update(ctx, sessionID, func(rec *models.ConfirmationRecord, exists bool) error {
		if !exists {
			return ErrRecordNotFound
		}
		if rec.ConsumedAt == nil {
			now := time.Now()
			rec.ConsumedAt = &now
		}
		return nil
	})
	return err
}
