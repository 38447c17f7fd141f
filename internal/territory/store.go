package territory

import (
	"sync"
	"time"

	"github.com/talgya/warfront/internal/faction"
)

// Store holds the authoritative territory map. Each territory mutates under
// its own lock, so contention stays confined to the zone being written;
// territories are independent aggregates and update in parallel.
type Store struct {
	mu      sync.RWMutex // guards the map structure, not entry contents
	entries map[Key]*entry
}

type entry struct {
	mu sync.Mutex
	t  *Territory
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[Key]*entry)}
}

// Put installs a territory, replacing any existing one. Used by seeding and
// restore paths before the authority starts accepting updates.
func (s *Store) Put(t *Territory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t.Clone()
	s.entries[t.Key()] = &entry{t: &cp}
}

// Get returns a copy of a territory. The second result is false if the
// territory has never been touched.
func (s *Store) Get(key Key) (Territory, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Territory{ID: key.ID, Type: key.Type, Influences: map[faction.ID]int{}}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.t.Clone(), true
}

// Mutate runs fn against the territory under its per-territory lock, creating
// the territory lazily on first touch. fn must not retain the pointer.
func (s *Store) Mutate(key Key, fn func(*Territory)) {
	e := s.ensure(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.t)
}

// All returns copies of every territory, in no particular order.
func (s *Store) All() []Territory {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Territory, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.t.Clone())
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of territories created so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) ensure(key Key) *entry {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &entry{t: &Territory{
		ID:          key.ID,
		Type:        key.Type,
		Influences:  make(map[faction.ID]int),
		LastUpdated: time.Now(),
	}}
	s.entries[key] = e
	return e
}
