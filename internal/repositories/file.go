package repositories

import (
	"context"
	"fmt"
	"time"

	"alfredoptarigan/underwriting-intake/internal/models"
)

type FileRepository interface {
	Create(ctx context.Context, file *models.UploadedFile) error
	FindByID(ctx context.Context, id string) (*models.UploadedFile, error)
	UpdateStatus(ctx context.Context, id string, status models.FileStatus, errorMsg string) error
	UpdateResult(ctx context.Context, id string, candidates int) error
	ClaimForScan(ctx context.Context, id string) (bool, error)
	FindPending(ctx context.Context, olderThan time.Duration, limit int) ([]models.UploadedFile, error)
}

type fileRepository struct {
	store Store[models.UploadedFile]
}

func NewFileRepository(store Store[models.UploadedFile]) FileRepository {
	return &fileRepository{store: store}
}

func (r *fileRepository) Create(ctx context.Context, file *models.UploadedFile) error {
	if err := r.store.Put(ctx, file.ID, *file); err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

func (r *fileRepository) FindByID(ctx context.Context, id string) (*models.UploadedFile, error) {
	file, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) UpdateStatus(ctx context.Context, id string, status models.FileStatus, errorMsg string) error {
	_, err := r.store.Update(ctx, id, func(f *models.UploadedFile, exists bool) error {
		if !exists {
			return ErrRecordNotFound
		}
		f.Status = status
		f.Error = errorMsg
		if status == models.FileFailed {
			now := time.Now()
			f.ExtractedAt = &now
		}
		return nil
	})
	return err
}

func (r *fileRepository) UpdateResult(ctx context.Context, id string, candidates int) error {
	_, err := r.store.Update(ctx, id, func(f *models.UploadedFile, exists bool) error {
		if !exists {
			return ErrRecordNotFound
		}
		now := time.Now()
		f.Status = models.FileExtracted
		f.Candidates = candidates
		f.Error = ""
		f.ExtractedAt = &now
		return nil
	})
	return err
}

// ClaimForScan moves an uploaded file to scanning. It reports false when the
// file was already claimed, so a file queued twice is only processed once.
func (r *fileRepository) ClaimForScan(ctx context.Context, id string) (bool, error) {
	claimed := false
	_, err := r.store.Update(ctx, id, func(f *models.UploadedFile, exists bool) error {
		if !exists {
			return ErrRecordNotFound
		}
		claimed = f.Status == models.FileUploaded
		if claimed {
			f.Status = models.FileScanning
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// FindPending returns files still waiting in uploaded status for longer than olderThan.
func (r *fileRepository) FindPending(ctx context.Context, olderThan time.Duration, limit int) ([]models.UploadedFile, error) {
	files, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending files: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	var pending []models.UploadedFile
	for _, f := range files {
		if f.Status != models.FileUploaded || f.UploadedAt.After(cutoff) {
			continue
		}
		pending = append(pending, f)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}
