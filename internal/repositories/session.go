package repositories

import (
	"context"
	"errors"
	"fmt"

	"alfredoptarigan/underwriting-intake/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, id string, fn func(session *models.Session) error) (*models.Session, error)
}

type sessionRepository struct {
	store Store[models.Session]
}

func NewSessionRepository(store Store[models.Session]) SessionRepository {
	return &sessionRepository{store: store}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	if err := r.store.Put(ctx, session.ID, *session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	session, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

// Update mutates an existing session atomically. It returns ErrRecordNotFound
// for unknown ids and never creates a session.
func (r *sessionRepository) Update(ctx context.Context, id string, fn func(session *models.Session) error) (*models.Session, error) {
	session, err := r.store.Update(ctx, id, func(s *models.Session, exists bool) error {
		if !exists {
			return ErrRecordNotFound
		}
		return fn(s)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}
