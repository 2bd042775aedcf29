package discovery

import (
	"sync"
	"time"

	"github.com/lumivpn/discovery/internal/catalog"
)

// Store holds the latest verified catalog per manifest kind for the
// rest of the application to read. Entries are swapped atomically and
// only ever come from a StatusReady outcome, so readers can never
// observe an unverified or partial catalog.
type Store struct {
	mu      sync.RWMutex
	entries map[Kind]storeEntry
}

type storeEntry struct {
	catalog catalog.Catalog
	updated time.Time
}

// NewStore creates an empty catalog store.
func NewStore() *Store {
	return &Store{entries: make(map[Kind]storeEntry)}
}

// Publish replaces the stored catalog for kind.
func (s *Store) Publish(kind Kind, cat catalog.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[kind] = storeEntry{catalog: cat, updated: time.Now()}
}

// Latest returns the stored catalog for kind and when it was
// published. ok is false when no catalog has been published yet, or
// after the entry was removed.
func (s *Store) Latest(kind Kind) (cat catalog.Catalog, updated time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[kind]
	return entry.catalog, entry.updated, ok
}

// Remove drops the stored catalog for kind. Used when the authority
// reports the manifest deleted.
func (s *Store) Remove(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, kind)
}
