package tracker

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/docent/internal/geo"
	"github.com/five82/docent/internal/museum"
)

var origin = museum.Coordinate{Lat: 51.5194, Lng: -0.1270}

type pushFunc func(ctx context.Context, userID string, lat, lng float64) error

func (f pushFunc) UpdateCoordinates(ctx context.Context, userID string, lat, lng float64) error {
	return f(ctx, userID, lat, lng)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestTracker_AtMostOnePushInFlight(t *testing.T) {
	var current, maxSeen, total atomic.Int32
	pusher := pushFunc(func(ctx context.Context, _ string, _, _ float64) error {
		n := current.Add(1)
		for {
			m := maxSeen.Load()
			if n <= m || maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		current.Add(-1)
		total.Add(1)
		return nil
	})

	tr := New("u1", pusher, Options{Interval: 5 * time.Millisecond, Origin: origin})
	tr.Start(context.Background())
	waitFor(t, "several pushes", func() bool { return total.Load() >= 4 })
	tr.Stop()

	if got := maxSeen.Load(); got != 1 {
		t.Fatalf("max concurrent pushes = %d, want 1", got)
	}
	if snap := tr.Snapshot(); snap.Skipped == 0 {
		t.Fatalf("Skipped = 0, want ticks dropped while a push was in flight")
	}
}

func TestTracker_SuccessUpdatesLastAndFailureKeepsIt(t *testing.T) {
	var calls atomic.Int32
	pusher := pushFunc(func(context.Context, string, float64, float64) error {
		if calls.Add(1) <= 2 {
			return &museum.ConnectivityError{Op: "update coordinates", Err: errors.New("offline")}
		}
		return nil
	})

	tr := New("u1", pusher, Options{Interval: 2 * time.Millisecond, Origin: origin})
	tr.Start(context.Background())
	defer tr.Stop()

	waitFor(t, "a failed push", func() bool { return tr.Snapshot().LastPushError != nil || tr.Snapshot().Pushes > 0 })
	waitFor(t, "a successful push", func() bool { return tr.Snapshot().Pushes > 0 })

	snap := tr.Snapshot()
	if snap.Status != Tracking {
		t.Fatalf("Status = %v, want Tracking after push failures", snap.Status)
	}
	if snap.Last == origin {
		t.Fatalf("Last not updated after successful push")
	}
	if math.Abs(snap.Last.Lat-origin.Lat) > 0.01 || math.Abs(snap.Last.Lng-origin.Lng) > 0.01 {
		t.Fatalf("simulated position %#v wandered too far from origin", snap.Last)
	}
	if snap.LastSource != SourceSimulated {
		t.Fatalf("LastSource = %q, want simulated", snap.LastSource)
	}
}

func TestTracker_StopDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Bool
	pusher := pushFunc(func(context.Context, string, float64, float64) error {
		started.Store(true)
		<-release
		return nil
	})

	tr := New("u1", pusher, Options{Interval: 2 * time.Millisecond, Origin: origin})
	tr.Start(context.Background())
	waitFor(t, "push in flight", started.Load)

	stopped := make(chan struct{})
	go func() {
		tr.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on the in-flight push")
	}
	if tr.Status() != Idle {
		t.Fatalf("Status = %v, want Idle", tr.Status())
	}

	close(release)
	waitFor(t, "push to finish", func() bool { return !tr.Busy() })

	if got := tr.Last(); got != origin {
		t.Fatalf("Last = %#v, want origin kept after discarded push", got)
	}
	if tr.Snapshot().Pushes != 0 {
		t.Fatalf("Pushes = %d, want 0", tr.Snapshot().Pushes)
	}
	tr.Stop()
	tr.Stop()
}

type fixedDevice struct {
	mu      sync.Mutex
	stopped int
	coord   museum.Coordinate
}

func (d *fixedDevice) Watch(_ geo.WatchOptions, onSample func(museum.Coordinate), _ func(error)) (func(), error) {
	c := d.coord
	c.Timestamp = time.Now()
	onSample(c)
	return func() {
		d.mu.Lock()
		d.stopped++
		d.mu.Unlock()
	}, nil
}

type refusingDevice struct{}

func (refusingDevice) Watch(geo.WatchOptions, func(museum.Coordinate), func(error)) (func(), error) {
	return nil, errors.New("permission denied")
}

func TestTracker_UsesDeviceFix(t *testing.T) {
	dev := &fixedDevice{coord: museum.Coordinate{Lat: 40.7794, Lng: -73.9632}}
	var mu sync.Mutex
	var pushed []float64
	pusher := pushFunc(func(_ context.Context, _ string, lat, _ float64) error {
		mu.Lock()
		pushed = append(pushed, lat)
		mu.Unlock()
		return nil
	})

	tr := New("u1", pusher, Options{
		Interval: 2 * time.Millisecond,
		Source:   geo.NewSource(dev, geo.DefaultWatchOptions()),
		Origin:   origin,
	})
	tr.Start(context.Background())
	waitFor(t, "a device push", func() bool { return tr.Snapshot().Pushes > 0 })
	tr.Stop()

	snap := tr.Snapshot()
	if snap.LastSource != SourceDevice || snap.Last.Lat != 40.7794 {
		t.Fatalf("snapshot = %#v, want device fix", snap)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.stopped != 1 {
		t.Fatalf("device watch stopped %d times, want 1", dev.stopped)
	}
}

func TestTracker_PositionUnavailableDegradesToSimulated(t *testing.T) {
	pusher := pushFunc(func(context.Context, string, float64, float64) error { return nil })
	tr := New("u1", pusher, Options{
		Interval: 2 * time.Millisecond,
		Source:   geo.NewSource(refusingDevice{}, geo.DefaultWatchOptions()),
		Origin:   origin,
	})
	tr.Start(context.Background())
	defer tr.Stop()

	waitFor(t, "a simulated push", func() bool { return tr.Snapshot().Pushes > 0 })
	snap := tr.Snapshot()
	if !errors.Is(snap.Warning, geo.ErrPositionUnavailable) {
		t.Fatalf("Warning = %v, want ErrPositionUnavailable", snap.Warning)
	}
	if snap.LastSource != SourceSimulated || snap.Status != Tracking {
		t.Fatalf("snapshot = %#v, want simulated tracking", snap)
	}
}

func TestTracker_StartTwiceAndRestart(t *testing.T) {
	var total atomic.Int32
	pusher := pushFunc(func(context.Context, string, float64, float64) error {
		total.Add(1)
		return nil
	})
	tr := New("u1", pusher, Options{Interval: 2 * time.Millisecond, Origin: origin})

	tr.Start(context.Background())
	tr.Start(context.Background())
	tr.Stop()
	tr.Start(context.Background())
	waitFor(t, "pushes after restart", func() bool { return total.Load() > 0 })
	tr.Stop()

	if tr.Status() != Idle {
		t.Fatalf("Status = %v, want Idle", tr.Status())
	}
}

func TestTracker_ContextCancelStopsTicks(t *testing.T) {
	var total atomic.Int32
	pusher := pushFunc(func(context.Context, string, float64, float64) error {
		total.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	tr := New("u1", pusher, Options{Interval: 2 * time.Millisecond, Origin: origin})
	tr.Start(ctx)
	waitFor(t, "first push", func() bool { return total.Load() > 0 })
	cancel()
	waitFor(t, "push to finish", func() bool { return !tr.Busy() })

	before := total.Load()
	time.Sleep(20 * time.Millisecond)
	if after := total.Load(); after > before+1 {
		t.Fatalf("pushes continued after context cancel: %d -> %d", before, after)
	}
	tr.Stop()
}
