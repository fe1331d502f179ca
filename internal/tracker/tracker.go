package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/five82/docent/internal/geo"
	"github.com/five82/docent/internal/metrics"
	"github.com/five82/docent/internal/museum"
)

// DefaultInterval is the coordinate push period while tracking.
const DefaultInterval = 5 * time.Second

// defaultStep is the simulated fallback wander, roughly five metres.
const defaultStep = 0.00005

// Pusher sends the visitor's position to the museum service.
type Pusher interface {
	UpdateCoordinates(ctx context.Context, userID string, lat, lng float64) error
}

var _ Pusher = (*museum.Client)(nil)

// Status is the tracker state.
type Status int

const (
	Idle Status = iota
	Tracking
)

func (s Status) String() string {
	if s == Tracking {
		return "Tracking"
	}
	return "Idle"
}

// Sample sources.
const (
	SourceDevice    = "device"
	SourceSimulated = "simulated"
)

// Options configure a Tracker.
type Options struct {
	Interval time.Duration // zero uses DefaultInterval
	Source   *geo.Source   // nil means simulated positions only
	Origin   museum.Coordinate
	Step     float64 // simulated wander in degrees; zero uses defaultStep
	Logger   *log.Logger
	Metrics  *metrics.Recorder
}

// Snapshot is a point-in-time view of the tracker for the UI.
type Snapshot struct {
	Status        Status
	Last          museum.Coordinate
	LastSource    string
	Warning       error // latest PositionUnavailable, nil once the device recovers
	LastPushError error
	Pushes        int
	Skipped       int
}

// Tracker pushes the visitor's position on a fixed period while armed. At
// most one push is in flight at any time; ticks that find one running are
// dropped.
type Tracker struct {
	userID   string
	pusher   Pusher
	source   *geo.Source
	interval time.Duration
	step     float64
	logger   *log.Logger
	metrics  *metrics.Recorder
	inflight *semaphore.Weighted

	mu     sync.Mutex
	status Status
	epoch  uint64
	cancel context.CancelFunc
	sub    *geo.Subscription
	snap   Snapshot
}

// New builds an idle Tracker.
func New(userID string, pusher Pusher, opts Options) *Tracker {
	t := &Tracker{
		userID:   userID,
		pusher:   pusher,
		source:   opts.Source,
		interval: opts.Interval,
		step:     opts.Step,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		inflight: semaphore.NewWeighted(1),
	}
	if t.interval <= 0 {
		t.interval = DefaultInterval
	}
	if t.step <= 0 {
		t.step = defaultStep
	}
	if t.logger == nil {
		t.logger = log.Default()
	}
	t.snap.Last = opts.Origin
	return t
}

// Start arms the tracker. Calling Start while tracking is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == Tracking {
		return
	}

	if t.source != nil {
		sub, err := t.source.Subscribe()
		if err != nil {
			t.snap.Warning = err
			t.logger.Printf("tracker: geolocation unavailable, using simulated positions: %v", err)
		} else {
			t.sub = sub
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.status = Tracking
	t.snap.Status = Tracking
	t.epoch++
	t.cancel = cancel
	go t.loop(runCtx, t.epoch, t.sub)
}

// Stop disarms the tracker. It returns without waiting for an in-flight push;
// that push's result is discarded when it arrives. Safe to call repeatedly.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == Idle {
		return
	}
	t.status = Idle
	t.snap.Status = Idle
	t.epoch++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.sub.Close()
	t.sub = nil
}

// Status returns the current state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Snapshot returns the current tracker view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Last returns the last coordinate the server acknowledged.
func (t *Tracker) Last() museum.Coordinate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.Last
}

// Busy reports whether a push is in flight.
func (t *Tracker) Busy() bool {
	if t.inflight.TryAcquire(1) {
		t.inflight.Release(1)
		return false
	}
	return true
}

func (t *Tracker) loop(ctx context.Context, epoch uint64, sub *geo.Subscription) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx, epoch, sub)
		}
	}
}

func (t *Tracker) tick(ctx context.Context, epoch uint64, sub *geo.Subscription) {
	if !t.inflight.TryAcquire(1) {
		t.mu.Lock()
		t.snap.Skipped++
		t.mu.Unlock()
		t.metrics.SkippedTick()
		return
	}
	coord, source := t.sample(sub)
	go func() {
		defer t.inflight.Release(1)
		err := t.pusher.UpdateCoordinates(ctx, t.userID, coord.Lat, coord.Lng)
		t.finish(epoch, coord, source, err)
	}()
}

// sample prefers the device fix and falls back to wandering from the last
// acknowledged position.
func (t *Tracker) sample(sub *geo.Subscription) (museum.Coordinate, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sub != nil {
		c, err := sub.Latest()
		if err == nil {
			t.snap.Warning = nil
			return c, SourceDevice
		}
		if t.snap.Warning == nil {
			t.logger.Printf("tracker: %v; falling back to simulated position", err)
		}
		t.snap.Warning = err
	}
	c := geo.Perturb(t.snap.Last, t.step)
	c.Accuracy = 0
	c.Timestamp = time.Now()
	return c, SourceSimulated
}

func (t *Tracker) finish(epoch uint64, coord museum.Coordinate, source string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if epoch != t.epoch || t.status != Tracking {
		return
	}
	if err != nil {
		t.snap.LastPushError = err
		t.metrics.Push(source, "error")
		t.logger.Printf("tracker: coordinate push failed, keeping last position: %v", err)
		return
	}
	t.snap.Last = coord
	t.snap.LastSource = source
	t.snap.LastPushError = nil
	t.snap.Pushes++
	t.metrics.Push(source, "ok")
}
