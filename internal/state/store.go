package state

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/five82/docent/internal/museum"
)

// offlineAfter is the number of consecutive failed refreshes after which the
// museum service is reported offline.
const offlineAfter = 2

// Snapshot is the exhibit catalogue as last seen by the poller.
type Snapshot struct {
	// Exhibits are ordered by floor, then title.
	Exhibits            []museum.Exhibit
	HasExhibits         bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline reports whether the service has missed several refreshes in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= offlineAfter
}

// Exhibit looks up an exhibit by ID.
func (s Snapshot) Exhibit(id string) (museum.Exhibit, bool) {
	i := slices.IndexFunc(s.Exhibits, func(e museum.Exhibit) bool { return e.ID == id })
	if i < 0 {
		return museum.Exhibit{}, false
	}
	return s.Exhibits[i], true
}

// Floors returns the distinct floors in the catalogue, lowest first.
func (s Snapshot) Floors() []int {
	floors := make([]int, 0, len(s.Exhibits))
	for _, e := range s.Exhibits {
		floors = append(floors, e.Floor)
	}
	slices.Sort(floors)
	return slices.Compact(floors)
}

// Store is the catalogue shared between the poller and the UI.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records a refresh. A failed refresh keeps the previous exhibits and
// only records the error.
func (s *Store) Update(exhibits []museum.Exhibit, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	sorted := slices.Clone(exhibits)
	slices.SortStableFunc(sorted, func(a, b museum.Exhibit) int {
		return cmp.Or(cmp.Compare(a.Floor, b.Floor), cmp.Compare(a.Title, b.Title))
	})
	s.snapshot.Exhibits = sorted
	s.snapshot.HasExhibits = true
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy the caller may keep.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Exhibits = slices.Clone(s.snapshot.Exhibits)
	return snap
}
