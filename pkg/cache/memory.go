package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sayandkrishna/querypilot/pkg/models"
)

// MemoryStore is an in-process Store used in tests. It honors TTLs and can
// be forced to fail to exercise the cache's degradation paths.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]map[string]memoryEntry // owner -> key -> entry

	// FailWith, when set, makes every operation return this error.
	FailWith error

	now func() time.Time
}

type memoryEntry struct {
	entry     *models.CacheEntry
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock for TTL tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Entries(ctx context.Context, owner string) ([]*models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}

	var out []*models.CacheEntry
	for key, me := range s.entries[owner] {
		if s.now().After(me.expiresAt) {
			delete(s.entries[owner], key)
			continue
		}
		copied := *me.entry
		out = append(out, &copied)
	}

	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, owner, key string, entry *models.CacheEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return s.FailWith
	}

	if s.entries[owner] == nil {
		s.entries[owner] = make(map[string]memoryEntry)
	}
	copied := *entry
	s.entries[owner][key] = memoryEntry{
		entry:     &copied,
		expiresAt: s.now().Add(ttl),
	}

	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return 0, s.FailWith
	}

	n := len(s.entries[owner])
	delete(s.entries, owner)
	return n, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FailWith
}

// Ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
