package asset

import (
	"sort"
	"sync"
)

// Store answers the non-blocking "is it loaded" query runners make.
// A false result means not loaded yet; it never triggers a load.
type Store interface {
	Get(h Handle) (*Asset, bool)
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[Handle]*Asset
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[Handle]*Asset)}
}

func (s *MemoryStore) Get(h Handle) (*Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[h]
	return a, ok
}

// Put stores a under h, replacing any previous asset.
func (s *MemoryStore) Put(h Handle, a *Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[h] = a
}

// Insert stores a under a new handle and returns it.
func (s *MemoryStore) Insert(a *Asset) Handle {
	h := NewHandle()
	s.Put(h, a)
	return h
}

// Remove drops h. It reports whether h was present.
func (s *MemoryStore) Remove(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.assets[h]
	delete(s.assets, h)
	return ok
}

// Handles returns every handle, sorted.
func (s *MemoryStore) Handles() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Handle, 0, len(s.assets))
	for h := range s.assets {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}
