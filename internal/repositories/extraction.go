package repositories

import (
	"context"

	"alfredoptarigan/underwriting-intake/internal/models"
)

type ExtractionRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (*models.ExtractionJob, error)
	// Update is the only write path; all candidate appends and status
	// transitions go through it so concurrent file results merge.
	Update(ctx context.Context, sessionID string, fn func(job *models.ExtractionJob, exists bool) error) (*models.ExtractionJob, error)
}

type extractionRepository struct {
	store Store[models.ExtractionJob]
}

func NewExtractionRepository(store Store[models.ExtractionJob]) ExtractionRepository {
	return &extractionRepository{store: store}
}

func (r *extractionRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.ExtractionJob, error) {
	job, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *extractionRepository) Update(ctx context.Context, sessionID string, fn func(job *models.ExtractionJob, exists bool) error) (*models.ExtractionJob, error) {
	job, err := r.store.Update(ctx, sessionID, fn)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
