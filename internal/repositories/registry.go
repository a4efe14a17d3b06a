package repositories

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"alfredoptarigan/underwriting-intake/internal/models"
)

// Registry groups one repository per entity type.
type Registry struct {
	Sessions      SessionRepository
	Transcripts   TranscriptRepository
	Files         FileRepository
	Extractions   ExtractionRepository
	Confirmations ConfirmationRepository
	Idempotency   IdempotencyRepository

	sweepers []Sweeper
}

func NewMemoryRegistry(ttl time.Duration) *Registry {
	sessions := NewMemoryStore[models.Session](ttl)
	transcripts := NewMemoryStore[models.Transcript](ttl)
	files := NewMemoryStore[models.UploadedFile](ttl)
	extractions := NewMemoryStore[models.ExtractionJob](ttl)
	confirmations := NewMemoryStore[models.ConfirmationRecord](ttl)
	idempotency := NewMemoryStore[IdempotentResponse](ttl)

	return &Registry{
		Sessions:      NewSessionRepository(sessions),
		Transcripts:   NewTranscriptRepository(transcripts),
		Files:         NewFileRepository(files),
		Extractions:   NewExtractionRepository(extractions),
		Confirmations: NewConfirmationRepository(confirmations),
		Idempotency:   NewIdempotencyRepository(idempotency),
		sweepers:      []Sweeper{sessions, transcripts, files, extractions, confirmations, idempotency},
	}
}

func NewGormRegistry(db *gorm.DB, ttl time.Duration) *Registry {
	sessions := NewGormStore[models.Session](db, "sessions", ttl)
	transcripts := NewGormStore[models.Transcript](db, "transcripts", ttl)
	files := NewGormStore[models.UploadedFile](db, "files", ttl)
	extractions := NewGormStore[models.ExtractionJob](db, "extractions", ttl)
	confirmations := NewGormStore[models.ConfirmationRecord](db, "confirmations", ttl)
	idempotency := NewGormStore[IdempotentResponse](db, "idempotency", ttl)

	return &Registry{
		Sessions:      NewSessionRepository(sessions),
		Transcripts:   NewTranscriptRepository(transcripts),
		Files:         NewFileRepository(files),
		Extractions:   NewExtractionRepository(extractions),
		Confirmations: NewConfirmationRepository(confirmations),
		Idempotency:   NewIdempotencyRepository(idempotency),
		sweepers:      []Sweeper{sessions, transcripts, files, extractions, confirmations, idempotency},
	}
}

// StartJanitor evicts expired records every interval until ctx is done.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				total := 0
				for _, s := range r.sweepers {
					n, err := s.Sweep(ctx)
					if err != nil {
						logger.Warn("sweep failed", zap.Error(err))
						continue
					}
					total += n
				}
				if total > 0 {
					logger.Debug("evicted expired records", zap.Int("count", total))
				}
			}
		}
	}()
}
