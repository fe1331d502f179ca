package mutator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/five82/docent/internal/cache"
	"github.com/five82/docent/internal/metrics"
	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/pending"
)

// Remote is the subset of the museum API the mutator drives.
type Remote interface {
	AddFavourite(ctx context.Context, userID, exhibitID string) error
	RemoveFavourite(ctx context.Context, userID, exhibitID string) error
	RateExhibit(ctx context.Context, userID, exhibitID string, rating int) error
}

var _ Remote = (*museum.Client)(nil)

// ErrClosed is returned for mutations attempted after Close. Nothing was
// applied.
var ErrClosed = errors.New("mutator closed")

// Outcome describes how a mutation was reconciled.
type Outcome int

const (
	// Committed: the server confirmed the change.
	Committed Outcome = iota
	// Queued: the change is applied locally and waits in the pending queue.
	Queued
	// RolledBack: the server rejected the change and local state was restored.
	RolledBack
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Queued:
		return "queued"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Options configure a Mutator.
type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// Mutator applies favourite and rating changes optimistically. Mutations are
// serialized, so remote calls reach the server in the order they were applied
// locally.
type Mutator struct {
	mu      sync.Mutex
	userID  string
	cache   *cache.Store
	queue   *pending.Queue
	remote  Remote
	logger  *log.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	// gen counts mutations started, so a server snapshot fetched before one
	// of them is not installed over it.
	gen    uint64
	closed bool
}

// New builds a Mutator for one user's session.
func New(userID string, store *cache.Store, queue *pending.Queue, remote Remote, opts Options) *Mutator {
	m := &Mutator{
		userID:  userID,
		cache:   store,
		queue:   queue,
		remote:  remote,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// ToggleFavourite flips the favourite state of rec's exhibit. It reports the
// new local state; an error means the server rejected the change and the
// previous state was restored.
func (m *Mutator) ToggleFavourite(ctx context.Context, rec museum.FavouriteRecord) (bool, Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	on := !m.cache.IsFavourite(rec.ExhibitID)
	if m.closed {
		return !on, RolledBack, ErrClosed
	}
	outcome, err := m.setFavouriteLocked(ctx, rec, on)
	if err != nil {
		return !on, outcome, err
	}
	return on, outcome, nil
}

// SetFavourite drives rec's exhibit to the requested favourite state. It is a
// no-op when the cache already agrees.
func (m *Mutator) SetFavourite(ctx context.Context, rec museum.FavouriteRecord, on bool) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return RolledBack, ErrClosed
	}
	if m.cache.IsFavourite(rec.ExhibitID) == on {
		return Committed, nil
	}
	return m.setFavouriteLocked(ctx, rec, on)
}

func (m *Mutator) setFavouriteLocked(ctx context.Context, rec museum.FavouriteRecord, on bool) (Outcome, error) {
	m.gen++
	previous := m.cache.Favourites.Get()

	kind := pending.RemoveFavourite
	if on {
		kind = pending.AddFavourite
		m.cache.Favourites.Upsert(rec)
	} else {
		m.cache.Favourites.Remove(rec.ExhibitID)
	}

	payload := museum.OperationPayload{ExhibitID: rec.ExhibitID, Title: rec.Title, Subtitle: rec.Subtitle}
	return m.reconcile(ctx, kind, payload, func(ctx context.Context) error {
		if on {
			return m.remote.AddFavourite(ctx, m.userID, rec.ExhibitID)
		}
		return m.remote.RemoveFavourite(ctx, m.userID, rec.ExhibitID)
	}, func() {
		m.cache.Favourites.Replace(previous)
	})
}

// RateExhibit records rating (1..5) for an exhibit. The latest rating for an
// exhibit replaces any earlier one.
func (m *Mutator) RateExhibit(ctx context.Context, exhibitID, title string, rating int) (Outcome, error) {
	if err := museum.ValidateRating(rating); err != nil {
		return RolledBack, fmt.Errorf("rate exhibit %s: %w: %v", exhibitID, museum.ErrValidation, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return RolledBack, ErrClosed
	}
	m.gen++

	previous := m.cache.Ratings.Get()
	m.cache.Ratings.Upsert(museum.RatingRecord{
		ExhibitID: exhibitID,
		Rating:    rating,
		Title:     title,
		CreatedAt: m.now(),
	})

	payload := museum.OperationPayload{ExhibitID: exhibitID, Title: title, Rating: rating}
	return m.reconcile(ctx, pending.RateExhibit, payload, func(ctx context.Context) error {
		return m.remote.RateExhibit(ctx, m.userID, exhibitID, rating)
	}, func() {
		m.cache.Ratings.Replace(previous)
	})
}

// reconcile runs the remote half of a mutation whose local half is already
// applied.
func (m *Mutator) reconcile(ctx context.Context, kind pending.Kind, payload museum.OperationPayload, call func(context.Context) error, rollback func()) (Outcome, error) {
	// Earlier operations on this exhibit are still queued or in flight:
	// calling the server now would let their later replay overwrite this
	// newer change.
	if m.queue.HasPendingFor(payload.ExhibitID) {
		m.queue.Enqueue(kind, payload)
		m.record(kind, Queued)
		return Queued, nil
	}

	err := call(ctx)
	switch {
	case err == nil:
		m.record(kind, Committed)
		return Committed, nil
	case museum.IsConnectivity(err):
		m.queue.Enqueue(kind, payload)
		m.logger.Printf("mutator: %s %s queued while offline: %v", kind, payload.ExhibitID, err)
		m.record(kind, Queued)
		return Queued, nil
	default:
		rollback()
		m.record(kind, RolledBack)
		return RolledBack, fmt.Errorf("%s %s: %w", kind, payload.ExhibitID, err)
	}
}

// Generation identifies the latest mutation started. Pass it to Hydrate.
func (m *Mutator) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Hydrate installs the server's favourites and ratings, fetched when
// Generation returned gen. It does nothing, and reports false, when a
// mutation started since then or any operation is still outstanding.
func (m *Mutator) Hydrate(gen uint64, favourites []museum.FavouriteRecord, ratings []museum.RatingRecord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.gen != gen || m.queue.Outstanding() > 0 {
		return false
	}
	m.cache.Favourites.Replace(favourites)
	m.cache.Ratings.Replace(ratings)
	return true
}

// Close waits for a running mutation to finish and refuses later ones.
func (m *Mutator) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *Mutator) record(kind pending.Kind, outcome Outcome) {
	m.metrics.Mutation(string(kind), outcome.String())
}
