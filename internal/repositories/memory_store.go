package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryRecord struct {
	payload   []byte
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore keeps JSON-encoded records in a map so callers never share
// memory with stored values. A ttl of zero disables expiry.
type MemoryStore[V any] struct {
	mu    sync.Mutex
	items map[string]memoryRecord
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore[V any](ttl time.Duration) *MemoryStore[V] {
	return &MemoryStore[V]{
		items: make(map[string]memoryRecord),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *MemoryStore[V]) Get(ctx context.Context, key string) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	rec, ok := s.live(key)
	if !ok {
		return zero, ErrRecordNotFound
	}
	return decodeRecord[V](rec.payload)
}

func (s *MemoryStore[V]) Put(ctx context.Context, key string, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(key, value)
}

func (s *MemoryStore[V]) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *MemoryStore[V]) Update(ctx context.Context, key string, fn func(value *V, exists bool) error) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current V
	rec, exists := s.live(key)
	if exists {
		decoded, err := decodeRecord[V](rec.payload)
		if err != nil {
			return current, err
		}
		current = decoded
	}

	if err := fn(&current, exists); err != nil {
		var zero V
		return zero, err
	}

	if err := s.write(key, current); err != nil {
		var zero V
		return zero, err
	}
	return current, nil
}

// List returns live records ordered by creation time.
func (s *MemoryStore[V]) List(ctx context.Context) ([]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		if _, ok := s.live(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.items[keys[i]].createdAt.Before(s.items[keys[j]].createdAt)
	})

	out := make([]V, 0, len(keys))
	for _, key := range keys {
		v, err := decodeRecord[V](s.items[key].payload)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *MemoryStore[V]) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.items {
		if _, ok := s.live(key); !ok {
			delete(s.items, key)
			removed++
		}
	}
	return removed, nil
}

// live must be called with s.mu held.
func (s *MemoryStore[V]) live(key string) (memoryRecord, bool) {
	rec, ok := s.items[key]
	if !ok {
		return rec, false
	}
	if !rec.expiresAt.IsZero() && !s.now().Before(rec.expiresAt) {
		return rec, false
	}
	return rec, true
}

// write must be called with s.mu held.
func (s *MemoryStore[V]) write(key string, value V) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}

	now := s.now()
	rec := memoryRecord{payload: payload, createdAt: now}
	if prev, ok := s.items[key]; ok {
		rec.createdAt = prev.createdAt
	}
	if s.ttl > 0 {
		rec.expiresAt = now.Add(s.ttl)
	}
	// assigning to an existing key replaces the stored key string too
	s.items[strings.Clone(key)] = rec
	return nil
}

func decodeRecord[V any](payload []byte) (V, error) {
	var v V
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("failed to decode record: %w", err)
	}
	return v, nil
}
