package staging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
)

// MemoryStore is an in-process Store for tests and single-node development.
// Expiry is enforced lazily on Get and opportunistically on Put.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration

	// now is swappable so tests can control expiry.
	now func() time.Time
}

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore. A non-positive ttl falls back to DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Put stores a deep copy of the draft and resets its TTL.
func (s *MemoryStore) Put(_ context.Context, draft *model.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	draft.ExpiresAt = now.Add(s.ttl)

	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	s.items[draft.ID] = memoryItem{data: data, expiresAt: draft.ExpiresAt}

	for id, item := range s.items {
		if now.After(item.expiresAt) {
			delete(s.items, id)
		}
	}
	return nil
}

// Get returns a copy of the draft, treating expired entries as missing.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.Draft, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()

	if !ok || s.now().After(item.expiresAt) {
		return nil, errors.ErrDraftNotFound
	}

	var draft model.Draft
	if err := json.Unmarshal(item.data, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Delete removes the draft. Idempotent.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
