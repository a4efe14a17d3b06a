package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRecord is the single table backing every GormStore namespace.
type KVRecord struct {
	Namespace string     `gorm:"type:text;primaryKey" json:"namespace"`
	Key       string     `gorm:"type:text;primaryKey" json:"key"`
	Payload   []byte     `gorm:"type:jsonb;not null" json:"payload"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (KVRecord) TableName() string {
	return "kv_records"
}

const maxUpdateAttempts = 5

type GormStore[V any] struct {
	db        *gorm.DB
	namespace string
	ttl       time.Duration
}

func NewGormStore[V any](db *gorm.DB, namespace string, ttl time.Duration) *GormStore[V] {
	return &GormStore[V]{db: db, namespace: namespace, ttl: ttl}
}

func (s *GormStore[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	rec, err := s.find(s.db.WithContext(ctx), key, false)
	if err != nil {
		return zero, err
	}
	return decodeRecord[V](rec.Payload)
}

func (s *GormStore[V]) Put(ctx context.Context, key string, value V) error {
	rec, err := s.record(key, value)
	if err != nil {
		return err
	}
	return s.upsert(s.db.WithContext(ctx), rec)
}

func (s *GormStore[V]) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", s.namespace, key).
		Delete(&KVRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// Update locks the row for the duration of fn. When no live row exists the
// new one is inserted, replacing an expired row the janitor has not swept
// yet, and the whole update is retried if a concurrent writer created a live
// row first.
func (s *GormStore[V]) Update(ctx context.Context, key string, fn func(value *V, exists bool) error) (V, error) {
	var result V

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		inserted := true
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var current V
			rec, err := s.find(tx, key, true)
			exists := err == nil
			if err != nil && !errors.Is(err, ErrRecordNotFound) {
				return err
			}
			if exists {
				if current, err = decodeRecord[V](rec.Payload); err != nil {
					return err
				}
			}

			if err := fn(&current, exists); err != nil {
				return err
			}

			next, err := s.record(key, current)
			if err != nil {
				return err
			}

			if exists {
				result = current
				return s.upsert(tx, next)
			}

			res := tx.Clauses(insertOrReclaim(time.Now())).Create(next)
			if res.Error != nil {
				return fmt.Errorf("failed to insert %s/%s: %w", s.namespace, key, res.Error)
			}
			inserted = res.RowsAffected > 0
			result = current
			return nil
		})
		if err != nil {
			var zero V
			return zero, err
		}
		if inserted {
			return result, nil
		}
	}

	var zero V
	return zero, fmt.Errorf("failed to update %s/%s: too much contention", s.namespace, key)
}

func (s *GormStore[V]) List(ctx context.Context) ([]V, error) {
	var recs []KVRecord
	err := s.live(s.db.WithContext(ctx)).
		Where("namespace = ?", s.namespace).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.namespace, err)
	}

	out := make([]V, 0, len(recs))
	for _, rec := range recs {
		v, err := decodeRecord[V](rec.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *GormStore[V]) Sweep(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).
		Where("namespace = ? AND expires_at IS NOT NULL AND expires_at <= ?", s.namespace, time.Now()).
		Delete(&KVRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep %s: %w", s.namespace, res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *GormStore[V]) find(db *gorm.DB, key string, lock bool) (*KVRecord, error) {
	q := s.live(db)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rec KVRecord
	if err := q.Where("namespace = ? AND key = ?", s.namespace, key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find %s/%s: %w", s.namespace, key, err)
	}
	return &rec, nil
}

func (s *GormStore[V]) live(db *gorm.DB) *gorm.DB {
	return db.Where("expires_at IS NULL OR expires_at > ?", time.Now())
}

func (s *GormStore[V]) record(key string, value V) (*KVRecord, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s/%s: %w", s.namespace, key, err)
	}

	rec := &KVRecord{
		Namespace: s.namespace,
		Key:       key,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	if s.ttl > 0 {
		expires := time.Now().Add(s.ttl)
		rec.ExpiresAt = &expires
	}
	return rec, nil
}

// insertOrReclaim only overwrites a conflicting row that has already expired;
// a live row is left alone and the insert affects no rows.
func insertOrReclaim(now time.Time) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "created_at", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "kv_records.expires_at IS NOT NULL AND kv_records.expires_at <= ?", Vars: []any{now}},
		}},
	}
}

func (s *GormStore[V]) upsert(db *gorm.DB, rec *KVRecord) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", s.namespace, rec.Key, err)
	}
	return nil
}
