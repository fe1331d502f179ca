package state

import (
	"errors"
	"testing"
	"time"

	"github.com/five82/docent/internal/museum"
)

func TestStore_UpdateSortsAndClones(t *testing.T) {
	var s Store

	exhibits := []museum.Exhibit{
		{ID: "great-wave", Title: "The Great Wave", Floor: 3},
		{ID: "rosetta-stone", Title: "Rosetta Stone", Floor: 0},
		{ID: "lewis-chessmen", Title: "Lewis Chessmen", Floor: 0},
	}

	before := time.Now()
	s.Update(exhibits, nil)

	snap := s.Snapshot()
	var ids []string
	for _, e := range snap.Exhibits {
		ids = append(ids, e.ID)
	}
	want := []string{"lewis-chessmen", "rosetta-stone", "great-wave"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
	if exhibits[0].ID != "great-wave" {
		t.Fatal("Update reordered the caller's slice")
	}
	if !snap.HasExhibits || snap.LastError != nil || snap.LastUpdated.Before(before) {
		t.Fatalf("snapshot = %+v", snap)
	}
	if e, ok := snap.Exhibit("rosetta-stone"); !ok || e.Title != "Rosetta Stone" {
		t.Fatalf("Exhibit(rosetta-stone) = %#v, %v", e, ok)
	}
	if _, ok := snap.Exhibit("missing"); ok {
		t.Fatal("Exhibit(missing) found something")
	}

	snap.Exhibits[0].ID = "mutated"
	if got := s.Snapshot().Exhibits[0].ID; got != "lewis-chessmen" {
		t.Fatalf("Snapshot should clone exhibits; got %q", got)
	}
}

func TestSnapshot_Floors(t *testing.T) {
	snap := Snapshot{Exhibits: []museum.Exhibit{{Floor: 2}, {Floor: 0}, {Floor: 2}, {Floor: -1}}}
	got := snap.Floors()
	want := []int{-1, 0, 2}
	if len(got) != len(want) {
		t.Fatalf("Floors() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Floors() = %v, want %v", got, want)
		}
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store
	s.Update([]museum.Exhibit{{ID: "e1"}}, nil)

	before := time.Now()
	s.Update(nil, errors.New("boom"))

	snap := s.Snapshot()
	if len(snap.Exhibits) != 1 || snap.Exhibits[0].ID != "e1" {
		t.Fatalf("exhibits changed on error: %#v", snap.Exhibits)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	tests := []struct {
		err      error
		failures int
		offline  bool
	}{
		{errors.New("fail 1"), 1, false},
		{errors.New("fail 2"), 2, true},
		{errors.New("fail 3"), 3, true},
		{nil, 0, false},
	}
	for _, tt := range tests {
		s.Update(nil, tt.err)
		snap := s.Snapshot()
		if snap.ConsecutiveFailures != tt.failures {
			t.Fatalf("ConsecutiveFailures = %d, want %d", snap.ConsecutiveFailures, tt.failures)
		}
		if snap.IsOffline() != tt.offline {
			t.Fatalf("IsOffline() = %v, want %v with %d failures", snap.IsOffline(), tt.offline, tt.failures)
		}
	}
}
