package jwt

import (
	"context"
	"sync"
	"time"
)

// Store persists token revocations. Implementations exist for memory and
// Redis; distributed deployments need the latter so revocation is shared.
type Store interface {
	// Revoke marks a token as revoked. The entry only needs to live until
	// the token's natural expiration.
	Revoke(ctx context.Context, token string, expiration time.Duration) error

	// IsRevoked checks if a token has been revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// Close releases any resources used by the store.
	Close() error
}

// MemoryStore keeps revocations in a map. Fine for a single instance or
// tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time // token -> 撤销记录失效时间

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// MemoryStoreOption is a functional option for MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired revocations are swept.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupInterval = d }
}

// NewMemoryStore creates an in-memory token store. A background goroutine
// sweeps expired entries until Close is called.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		tokens:          make(map[string]time.Time),
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanup()
	return s
}

// Revoke marks a token as revoked.
func (s *MemoryStore) Revoke(ctx context.Context, token string, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = time.Now().Add(expiration)
	return nil
}

// IsRevoked reports whether the token is currently revoked. Entries past
// their expiration count as not revoked even before the sweeper removes
// them.
func (s *MemoryStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, exists := s.tokens[token]
	return exists && time.Now().Before(exp), nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	return nil
}

// Size returns the number of revocation entries held.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// sweepExpired collects candidates under the read lock, then deletes them in
// batches under the write lock, re-checking each entry so a token revoked
// again in between is kept.
func (s *MemoryStore) sweepExpired() {
	s.mu.RLock()
	var expired []string
	now := time.Now()
	for token, exp := range s.tokens {
		if now.After(exp) {
			expired = append(expired, token)
		}
	}
	s.mu.RUnlock()

	const batchSize = 100
	for i := 0; i < len(expired); i += batchSize {
		end := i + batchSize
		if end > len(expired) {
			end = len(expired)
		}

		s.mu.Lock()
		now := time.Now()
		for _, token := range expired[i:end] {
			if exp, exists := s.tokens[token]; exists && now.After(exp) {
				delete(s.tokens, token)
			}
		}
		s.mu.Unlock()
	}
}

// NoopStore disables revocation tracking entirely.
type NoopStore struct{}

// NewNoopStore creates a new no-op store.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (s *NoopStore) Revoke(ctx context.Context, token string, expiration time.Duration) error {
	return nil
}

func (s *NoopStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	return false, nil
}

func (s *NoopStore) Close() error {
	return nil
}
