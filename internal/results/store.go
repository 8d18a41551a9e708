// Package results keeps the most recent completed analysis runs in memory
// so the HTTP layer can serve status-free reads (latest stats, past run
// lookups) without recomputation. Bounded retention: the oldest run is
// evicted once the cap is reached.
package results

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skywatch/covergo/internal/coverage"
)

// Run is one completed analysis with its inputs' identity and outputs.
type Run struct {
	ID          string              `json:"run_id"`
	CompletedAt time.Time           `json:"completed_at"`
	Mode        coverage.Mode       `json:"mode"`
	Skipped     int                 `json:"satellites_skipped"`
	Series      []coverage.Point    `json:"series"`
	Stats       coverage.Statistics `json:"stats"`
}

// Store is a bounded in-memory collection of completed runs.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]*Run
	maxRuns int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewStore creates a Store retaining at most maxRuns completed runs.
func NewStore(maxRuns int) *Store {
	if maxRuns <= 0 {
		maxRuns = 10
	}
	return &Store{
		runs:    make(map[string]*Run),
		maxRuns: maxRuns,
	}
}

// Put stores a completed run, evicting the oldest when over capacity.
func (s *Store) Put(r *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[r.ID] = r
	for len(s.runs) > s.maxRuns {
		oldestID := ""
		var oldest time.Time
		for id, run := range s.runs {
			if oldestID == "" || run.CompletedAt.Before(oldest) {
				oldestID = id
				oldest = run.CompletedAt
			}
		}
		delete(s.runs, oldestID)
		s.evictions.Add(1)
	}
}

// Get returns the run with the given ID, or nil.
func (s *Store) Get(id string) *Run {
	s.mu.RLock()
	r, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil
	}
	s.hits.Add(1)
	return r
}

// Latest returns the most recently completed run, or nil when empty.
func (s *Store) Latest() *Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Run
	for _, r := range s.runs {
		if latest == nil || r.CompletedAt.After(latest.CompletedAt) {
			latest = r
		}
	}
	if latest == nil {
		s.misses.Add(1)
	} else {
		s.hits.Add(1)
	}
	return latest
}

// IDs returns all stored run IDs, newest first.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.runs[ids[i]].CompletedAt.After(s.runs[ids[j]].CompletedAt)
	})
	return ids
}

// Stats holds store counters for the stats endpoint.
type Stats struct {
	Runs      int   `json:"runs"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Counters returns current store statistics.
func (s *Store) Counters() Stats {
	s.mu.RLock()
	n := len(s.runs)
	s.mu.RUnlock()

	return Stats{
		Runs:      n,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}
