package tle

import (
	"sync/atomic"
	"time"
)

// Store provides thread-safe access to the current catalog snapshot.
// Readers get an immutable *Catalog; writers replace the whole pointer.
type Store struct {
	catalog atomic.Pointer[Catalog]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current catalog, or nil if none has been loaded.
func (s *Store) Get() *Catalog {
	return s.catalog.Load()
}

// Set atomically replaces the current catalog.
func (s *Store) Set(c *Catalog) {
	s.catalog.Store(c)
}

// AgeSeconds returns the age of the current catalog in seconds, or -1 when
// no catalog is loaded.
func (s *Store) AgeSeconds() float64 {
	c := s.catalog.Load()
	if c == nil {
		return -1
	}
	return time.Since(c.FetchedAt).Seconds()
}
