// Package session wires the per-user components over one storage backend and
// owns their teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/docent/internal/cache"
	"github.com/five82/docent/internal/geo"
	"github.com/five82/docent/internal/metrics"
	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/mutator"
	"github.com/five82/docent/internal/pending"
	"github.com/five82/docent/internal/route"
	"github.com/five82/docent/internal/storage"
	"github.com/five82/docent/internal/syncer"
	"github.com/five82/docent/internal/tracker"
)

// Remote is everything a session needs from the museum service.
type Remote interface {
	mutator.Remote
	route.Remote
	syncer.Remote
	tracker.Pusher
	FetchFavourites(ctx context.Context, userID string) ([]museum.FavouriteRecord, error)
	FetchRatings(ctx context.Context, userID string) ([]museum.RatingRecord, error)
}

var _ Remote = (*museum.Client)(nil)

var (
	// ErrNoUser is returned when a session is opened without a user ID.
	ErrNoUser = errors.New("session requires a user id")
	// ErrClosed is returned by operations on a closed or logged-out session.
	ErrClosed = errors.New("session closed")
)

// Options configure a Session.
type Options struct {
	Logger        *log.Logger
	Metrics       *metrics.Recorder
	Geolocation   *geo.Source // nil tracks with simulated positions
	TrackInterval time.Duration
	Origin        museum.Coordinate
}

// Session holds one signed-in visitor's state.
type Session struct {
	UserID  string
	Cache   *cache.Store
	Queue   *pending.Queue
	Mutator *mutator.Mutator
	Tracker *tracker.Tracker
	Route   *route.Controller
	Syncer  *syncer.Syncer

	remote Remote
	logger *log.Logger

	// ctx scopes background work such as the tracker loop to the session.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// New opens the user's cache and queue from kv and builds the session's
// components. The caller keeps ownership of kv.
func New(userID string, kv storage.Store, remote Remote, opts Options) (*Session, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Session{UserID: userID, remote: remote, logger: logger}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.Cache = cache.Open(kv, userID, logger)
	s.Queue = pending.Open(kv, userID, pending.Options{Logger: logger, Metrics: opts.Metrics})
	s.Mutator = mutator.New(userID, s.Cache, s.Queue, remote, mutator.Options{Logger: logger, Metrics: opts.Metrics})
	s.Tracker = tracker.New(userID, remote, tracker.Options{
		Interval: opts.TrackInterval,
		Source:   opts.Geolocation,
		Origin:   opts.Origin,
		Logger:   logger,
		Metrics:  opts.Metrics,
	})
	s.Route = route.NewController(userID, remote, route.Options{
		Logger:  logger,
		Metrics: opts.Metrics,
		OnEnd:   func(route.State) { s.Tracker.Stop() },
	})
	s.Syncer = syncer.New(userID, s.Queue, remote, logger, opts.Metrics)
	return s, nil
}

// Hydrate replaces the cached favourites and ratings with the server's view.
// It does nothing while operations are pending or in flight, and discards the
// fetched snapshot when a mutation started during the fetch, since either
// means the cache holds changes the snapshot may not include. It reports
// whether the cache was replaced.
func (s *Session) Hydrate(ctx context.Context) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	gen := s.Mutator.Generation()
	if s.Queue.Outstanding() > 0 {
		return false, nil
	}

	var (
		favs    []museum.FavouriteRecord
		ratings []museum.RatingRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		favs, err = s.remote.FetchFavourites(gctx, s.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		ratings, err = s.remote.FetchRatings(gctx, s.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("hydrate cache: %w", err)
	}

	return s.Mutator.Hydrate(gen, favs, ratings), nil
}

// Sync replays the pending queue. When the server rejected anything the
// cache is rehydrated so the optimistic changes it held are undone.
func (s *Session) Sync(ctx context.Context) (syncer.Report, error) {
	rep, err := s.Syncer.Sync(ctx)
	if err != nil {
		return rep, err
	}
	if len(rep.Rejected) > 0 {
		if _, herr := s.Hydrate(ctx); herr != nil {
			s.logger.Printf("session: refresh after rejected sync failed: %v", herr)
		}
	}
	return rep, nil
}

// StartRoute navigates to an exhibit and arms the tracker. If the server
// cannot create a route a fallback route is used instead; the returned state
// carries Fallback and the cause in LastError.
func (s *Session) StartRoute(ctx context.Context, exhibitID, title string) (route.State, error) {
	if err := s.checkOpen(); err != nil {
		return route.State{}, err
	}

	st, err := s.Route.Start(ctx, exhibitID, title, s.Tracker.Last())
	if err != nil {
		if errors.Is(err, route.ErrRouteReplaced) {
			return route.State{}, err
		}
		s.logger.Printf("session: route to %s unavailable, using fallback: %v", exhibitID, err)
		fb, ferr := s.Route.UseFallback()
		if ferr != nil {
			return st, err
		}
		st = fb
	}
	s.Tracker.Start(s.ctx)
	return st, nil
}

// StartTracking arms the tracker without a route, for example to let the
// service follow the visitor while browsing.
func (s *Session) StartTracking() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.Tracker.Start(s.ctx)
	return nil
}

// StopTracking disarms the tracker. Any active route stays in place.
func (s *Session) StopTracking() {
	s.Tracker.Stop()
}

// CancelRoute ends navigation. Tracking stops and the route is cleared even
// when the server cannot be told.
func (s *Session) CancelRoute(ctx context.Context) error {
	err := s.Route.Cancel(ctx)
	s.Tracker.Stop()
	return err
}

// Logout tears down tracking and navigation and deletes the user's cached
// data and pending operations.
func (s *Session) Logout() {
	s.shutdown()
	s.Cache.Clear()
	s.Queue.Clear()
}

// Close stops background work. Cached data and pending operations stay on
// disk for the next session.
func (s *Session) Close() {
	s.shutdown()
}

func (s *Session) shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	// Waits out a running mutation so nothing is enqueued behind Logout's
	// Clear.
	s.Mutator.Close()
	s.Syncer.Close()
	s.Tracker.Stop()
	s.Route.Clear()
	s.cancel()
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
