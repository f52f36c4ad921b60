package cunit

import (
	"slices"
	"sync"
)

// LoadedSet records the identifiers activated in one Runtime. Entries are never removed.
type LoadedSet struct {
	mu    sync.RWMutex
	index map[string]struct{}
	order []string
}

// NewLoadedSet creates an empty LoadedSet.
func NewLoadedSet() *LoadedSet {
	return &LoadedSet{index: make(map[string]struct{})}
}

// Contains reports whether id was committed.
func (s *LoadedSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Add commits id, returns false when it was already present.
func (s *LoadedSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Len of committed identifiers.
func (s *LoadedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns the committed identifiers in commit order.
func (s *LoadedSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}
