// Package geo wraps a device's continuous position capability as a
// cancellable subscription of fresh coordinate samples.
package geo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/docent/internal/museum"
)

// ErrPositionUnavailable covers denied permission, acquisition timeout and a
// missing device.
var ErrPositionUnavailable = errors.New("position unavailable")

// WatchOptions mirror the usual platform geolocation knobs.
type WatchOptions struct {
	HighAccuracy bool
	// Timeout bounds how old the latest fix may be before it counts as lost.
	Timeout time.Duration
	// MaximumAge is the oldest cached fix the device may hand back. Zero
	// demands a fresh fix for every sample.
	MaximumAge time.Duration
}

// DefaultWatchOptions asks for fresh high-accuracy fixes with a 10s timeout.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{HighAccuracy: true, Timeout: 10 * time.Second}
}

// Device is the platform capability. Watch starts delivering samples or
// errors through the callbacks until the returned stop function is called.
type Device interface {
	Watch(opts WatchOptions, onSample func(museum.Coordinate), onError func(error)) (stop func(), err error)
}

// Source hands out subscriptions on a device.
type Source struct {
	device Device
	opts   WatchOptions
	now    func() time.Time
}

// NewSource builds a Source. A nil device makes every Subscribe fail with
// ErrPositionUnavailable.
func NewSource(device Device, opts WatchOptions) *Source {
	return &Source{device: device, opts: opts, now: time.Now}
}

// Subscribe starts watching the device.
func (s *Source) Subscribe() (*Subscription, error) {
	if s == nil || s.device == nil {
		return nil, fmt.Errorf("subscribe: %w: no geolocation device", ErrPositionUnavailable)
	}
	sub := &Subscription{opts: s.opts, now: s.now, started: s.now()}
	stop, err := s.device.Watch(s.opts, sub.onSample, sub.onError)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w: %v", ErrPositionUnavailable, err)
	}
	sub.stop = stop
	return sub, nil
}

// Subscription holds the most recent fresh sample from a device watch.
type Subscription struct {
	mu      sync.Mutex
	opts    WatchOptions
	now     func() time.Time
	started time.Time
	latest  museum.Coordinate
	hasFix  bool
	lastErr error
	closed  bool

	stop     func()
	stopOnce sync.Once
}

func (s *Subscription) onSample(c museum.Coordinate) {
	if c.Timestamp.IsZero() {
		c.Timestamp = s.now()
	}
	if err := c.Validate(); err != nil {
		s.onError(err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	// A fix older than the watch itself came from the device cache.
	if s.opts.MaximumAge == 0 && c.Timestamp.Before(s.started) {
		return
	}
	if s.hasFix && c.Timestamp.Before(s.latest.Timestamp) {
		return
	}
	s.latest = c
	s.hasFix = true
	s.lastErr = nil
}

func (s *Subscription) onError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lastErr = err
}

// Latest returns the freshest sample, or an error wrapping
// ErrPositionUnavailable when there is none or it has gone stale.
func (s *Subscription) Latest() (museum.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return museum.Coordinate{}, fmt.Errorf("%w: subscription closed", ErrPositionUnavailable)
	}
	if s.lastErr != nil {
		return museum.Coordinate{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, s.lastErr)
	}
	if !s.hasFix {
		return museum.Coordinate{}, fmt.Errorf("%w: no fix yet", ErrPositionUnavailable)
	}
	if s.opts.Timeout > 0 && s.now().Sub(s.latest.Timestamp) > s.opts.Timeout {
		return museum.Coordinate{}, fmt.Errorf("%w: last fix older than %s", ErrPositionUnavailable, s.opts.Timeout)
	}
	return s.latest, nil
}

// Close stops the device watch. Safe to call any number of times.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}
