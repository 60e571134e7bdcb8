package geocache

import (
	"context"
	"sync"

	"github.com/kwparking/parksafe/internal/model"
)

// MemoryStore implements Store without durability. It backs tests and the
// degraded mode entered when the durable store rejects writes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]model.GeocodeEntry
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.GeocodeEntry)}
}

// Seed pre-populates the store, for tests.
func (s *MemoryStore) Seed(entries ...model.GeocodeEntry) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.Address] = e
	}
	return s
}

// LoadAll implements Store.
func (s *MemoryStore) LoadAll(_ context.Context) (map[string]model.GeocodeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.GeocodeEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, entry model.GeocodeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Address] = entry
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]model.GeocodeEntry)
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
