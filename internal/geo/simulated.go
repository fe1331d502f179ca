package geo

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/five82/docent/internal/museum"
)

// Simulated is a Device that wanders around an origin, for desktops without
// a positioning fix.
type Simulated struct {
	Origin   museum.Coordinate
	Interval time.Duration
	// Step is the largest per-sample move in degrees.
	Step float64
}

// NewSimulated returns a simulated device sampling once per second.
func NewSimulated(origin museum.Coordinate) *Simulated {
	return &Simulated{Origin: origin, Interval: time.Second, Step: 0.00005}
}

// Watch implements Device.
func (d *Simulated) Watch(opts WatchOptions, onSample func(museum.Coordinate), _ func(error)) (func(), error) {
	interval := d.Interval
	if interval <= 0 {
		interval = time.Second
	}
	accuracy := 25.0
	if opts.HighAccuracy {
		accuracy = 5
	}

	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pos := d.Origin
		for {
			pos = Perturb(pos, d.Step)
			pos.Accuracy = accuracy
			pos.Timestamp = time.Now()
			onSample(pos)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }, nil
}

// Perturb moves c by a random offset of at most step degrees on each axis,
// clamped to valid bounds.
func Perturb(c museum.Coordinate, step float64) museum.Coordinate {
	c.Lat = clamp(c.Lat+(rand.Float64()*2-1)*step, -90, 90)
	c.Lng = clamp(c.Lng+(rand.Float64()*2-1)*step, -180, 180)
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
