// Package session holds the mutable per-session selection of
// participant timezones. A Store is a small ordered collection with a
// CRUD surface; a Registry hands out one Store per session identifier
// so concurrent visitors never share state.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/erikdrouhard/tzconverter/pkg/catalog"
	"github.com/erikdrouhard/tzconverter/pkg/viability"
)

// Default preferred-hours window for a freshly added timezone.
const (
	DefaultStart = 9
	DefaultEnd   = 17
)

// Entry is one selected timezone. ID is unique for the entry's
// lifetime and is what remove/update address; TZ may not repeat within
// a store.
type Entry struct {
	ID    string
	TZ    string
	Label string
	Start int
	End   int
}

// Store is an ordered collection of entries. All methods are safe for
// concurrent use. The zero value is not usable; call NewStore.
type Store struct {
	mu      sync.Mutex
	entries []Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a new entry for tzID with the default window and a fresh
// unique id. Adding a timezone that is already present is a no-op, so
// duplicate form submissions cannot produce redundant cards.
func (s *Store) Add(tzID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.TZ == tzID {
			return
		}
	}
	s.entries = append(s.entries, Entry{
		ID:    uuid.NewString(),
		TZ:    tzID,
		Label: catalog.Lookup(tzID),
		Start: DefaultStart,
		End:   DefaultEnd,
	})
}

// Remove deletes the entry with the given id. Removing an id that is
// not present is a no-op, not an error: deletes are idempotent.
func (s *Store) Remove(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == entryID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// UpdateHours replaces the preferred-hours window of the entry with the
// given id, preserving its position. Hours are clamped into 0..23 so
// the scorer only ever sees its defined domain. Unknown ids are a
// no-op.
func (s *Store) UpdateHours(entryID string, start, end int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == entryID {
			s.entries[i].Start = clampHour(start)
			s.entries[i].End = clampHour(end)
			return
		}
	}
}

// List returns the entries in insertion order. The slice and its
// elements are copies; mutating them does not touch the store.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Zones projects the store into the scorer's input, preserving order.
func (s *Store) Zones() []viability.Zone {
	list := s.List()
	zones := make([]viability.Zone, 0, len(list))
	for _, e := range list {
		zones = append(zones, viability.Zone{TZ: e.TZ, Start: e.Start, End: e.End})
	}
	return zones
}

func clampHour(h int) int {
	if h < 0 {
		return 0
	}
	if h > 23 {
		return 23
	}
	return h
}

// Registry maps session identifiers to stores, creating a store on
// first use. It replaces the single process-wide bucket of the first
// version of this app: each browser session gets its own store.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// Store returns the store for a session id, creating it if needed.
// The same id always yields the same store.
func (r *Registry) Store(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stores[sessionID]
	if !ok {
		st = NewStore()
		r.stores[sessionID] = st
	}
	return st
}

// NewSessionID mints an identifier suitable for a session cookie.
func NewSessionID() string {
	return uuid.NewString()
}
