package route

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/five82/docent/internal/metrics"
	"github.com/five82/docent/internal/museum"
)

// Remote is the subset of the museum API the controller drives.
type Remote interface {
	CreateRoute(ctx context.Context, req museum.CreateRouteRequest) (museum.RoutePlan, error)
	UpdateRouteStops(ctx context.Context, routeID string, add, remove []string) ([]museum.Stop, error)
	RecalculateRoute(ctx context.Context, routeID string) (museum.RoutePlan, error)
	DeleteRoute(ctx context.Context, routeID string) error
}

var _ Remote = (*museum.Client)(nil)

var (
	// ErrNoRoute is returned when an operation needs a live route.
	ErrNoRoute = errors.New("no active route")
	// ErrRouteReplaced is returned when the route was cancelled or superseded
	// while a remote call was in flight; the call's result was discarded.
	ErrRouteReplaced = errors.New("route replaced while request was in flight")
)

// Options configure a Controller.
type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Recorder
	// OnEnd runs after a route is cancelled or cleared, outside the lock.
	OnEnd func(State)
}

// Controller owns the session's single route.
type Controller struct {
	userID  string
	remote  Remote
	logger  *log.Logger
	metrics *metrics.Recorder
	onEnd   func(State)

	mu    sync.Mutex
	state State
	has   bool
	// gen changes whenever the live route is replaced or dropped, so results
	// of calls issued for an older route can be recognised and discarded.
	gen uint64
	// orphaned holds generations cancelled while their create call was in
	// flight; a route the server creates for one of them is deleted.
	orphaned map[uint64]bool
}

// NewController builds a controller with no route.
func NewController(userID string, remote Remote, opts Options) *Controller {
	c := &Controller{
		userID:   userID,
		remote:   remote,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		onEnd:    opts.OnEnd,
		orphaned: make(map[uint64]bool),
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// Current returns a copy of the live route state.
func (c *Controller) Current() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.has {
		return State{}, false
	}
	return c.state.Clone(), true
}

// Plan selects a new destination. Any existing route is superseded locally;
// the server is not told, since only one route per session exists.
func (c *Controller) Plan(destinationID, destinationTitle string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.has {
		old, err := Transition(c.state, SupersededByNew{})
		if err == nil {
			c.metrics.RouteTransition(old.Status.String())
			c.logger.Printf("route: %s superseded by new route to %s", describe(old), destinationID)
		}
	}
	next, err := Transition(State{Status: Cancelled}, Planned{DestinationID: destinationID, DestinationTitle: destinationTitle})
	if err != nil {
		return State{}, err
	}
	c.gen++
	c.has = true
	c.setLocked(next)
	return next.Clone(), nil
}

// Create asks the server for a route to the planned destination. On failure
// the route returns to Planning and the error is returned; callers usually
// follow up with UseFallback.
func (c *Controller) Create(ctx context.Context, start museum.Coordinate) (State, error) {
	c.mu.Lock()
	if !c.has {
		c.mu.Unlock()
		return State{}, ErrNoRoute
	}
	next, err := Transition(c.state, CreateRequested{})
	if err != nil {
		c.mu.Unlock()
		return State{}, err
	}
	c.setLocked(next)
	gen := c.gen
	req := museum.CreateRouteRequest{
		UserID:        c.userID,
		DestinationID: next.DestinationID,
		StartLat:      start.Lat,
		StartLng:      start.Lng,
	}
	c.mu.Unlock()

	plan, callErr := c.remote.CreateRoute(ctx, req)

	c.mu.Lock()
	if c.gen != gen || !c.has {
		orphan := c.orphaned[gen]
		delete(c.orphaned, gen)
		c.mu.Unlock()
		if callErr == nil {
			c.discard(ctx, plan.RouteID, orphan)
		}
		return State{}, ErrRouteReplaced
	}
	defer c.mu.Unlock()
	if callErr != nil {
		failed, err := Transition(c.state, CreateFailed{Err: callErr})
		if err != nil {
			return State{}, err
		}
		c.setLocked(failed)
		return failed.Clone(), fmt.Errorf("create route: %w", callErr)
	}
	created, err := Transition(c.state, Created{Plan: plan})
	if err != nil {
		failed, _ := Transition(c.state, CreateFailed{Err: err})
		c.setLocked(failed)
		return failed.Clone(), fmt.Errorf("create route: %w", err)
	}
	c.setLocked(created)
	return created.Clone(), nil
}

// Start plans and creates a route in one step.
func (c *Controller) Start(ctx context.Context, destinationID, destinationTitle string, start museum.Coordinate) (State, error) {
	if _, err := c.Plan(destinationID, destinationTitle); err != nil {
		return State{}, err
	}
	return c.Create(ctx, start)
}

// UseFallback activates a locally built direct route for the planned
// destination after the server failed to provide one.
func (c *Controller) UseFallback() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.has {
		return State{}, ErrNoRoute
	}
	var cause error
	if c.state.LastError != "" {
		cause = errors.New(c.state.LastError)
	}
	fb := Fallback(c.state.DestinationID, c.state.DestinationTitle, cause)
	next, err := Transition(c.state, FallbackUsed{Route: fb})
	if err != nil {
		return State{}, err
	}
	c.setLocked(next)
	return next.Clone(), nil
}

// AddStops adds intermediate exhibits to the active route.
func (c *Controller) AddStops(ctx context.Context, exhibitIDs ...string) (State, error) {
	return c.updateStops(ctx, exhibitIDs, nil)
}

// RemoveStops drops intermediate exhibits from the active route.
func (c *Controller) RemoveStops(ctx context.Context, exhibitIDs ...string) (State, error) {
	return c.updateStops(ctx, nil, exhibitIDs)
}

// updateStops is deliberately not optimistic: the stop list changes only
// once the server has accepted it.
func (c *Controller) updateStops(ctx context.Context, add, remove []string) (State, error) {
	c.mu.Lock()
	if !c.has {
		c.mu.Unlock()
		return State{}, ErrNoRoute
	}
	if c.state.Status != Active || c.state.Fallback {
		err := fmt.Errorf("%w: update stops while %s", ErrInvalidTransition, describe(c.state))
		c.mu.Unlock()
		return State{}, err
	}
	routeID, gen := c.state.RouteID, c.gen
	c.mu.Unlock()

	stops, callErr := c.remote.UpdateRouteStops(ctx, routeID, add, remove)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || !c.has || c.state.RouteID != routeID {
		return State{}, ErrRouteReplaced
	}
	if callErr != nil {
		return c.state.Clone(), fmt.Errorf("update route stops: %w", callErr)
	}
	next, err := Transition(c.state, StopsUpdated{Stops: stops})
	if err != nil {
		return c.state.Clone(), err
	}
	c.setLocked(next)
	return next.Clone(), nil
}

// Recalculate recomputes the active route, keeping its route ID. On failure
// the previous route stays active and the error is returned.
func (c *Controller) Recalculate(ctx context.Context) (State, error) {
	c.mu.Lock()
	if !c.has {
		c.mu.Unlock()
		return State{}, ErrNoRoute
	}
	next, err := Transition(c.state, RecalculateRequested{})
	if err != nil {
		c.mu.Unlock()
		return State{}, err
	}
	c.setLocked(next)
	routeID, gen := next.RouteID, c.gen
	c.mu.Unlock()

	plan, callErr := c.remote.RecalculateRoute(ctx, routeID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || !c.has {
		return State{}, ErrRouteReplaced
	}
	if callErr != nil {
		failed, err := Transition(c.state, RecalculateFailed{Err: callErr})
		if err != nil {
			return State{}, err
		}
		c.setLocked(failed)
		return failed.Clone(), fmt.Errorf("recalculate route: %w", callErr)
	}
	done, err := Transition(c.state, Recalculated{Plan: plan})
	if err != nil {
		return State{}, err
	}
	c.setLocked(done)
	return done.Clone(), nil
}

// Cancel ends the route. Local state is cleared before the best-effort
// remote delete, so the visitor is never left navigating; the returned error
// only reports that the server could not be told.
func (c *Controller) Cancel(ctx context.Context) error {
	ended, ok := c.drop(CancelRequested{}, true)
	if !ok {
		return nil
	}
	if ended.RouteID == "" || ended.Fallback {
		return nil
	}
	if err := c.remote.DeleteRoute(ctx, ended.RouteID); err != nil {
		c.logger.Printf("route: delete %s failed, route cleared locally: %v", ended.RouteID, err)
		return fmt.Errorf("delete route %s: %w", ended.RouteID, err)
	}
	return nil
}

// Clear discards the route locally without contacting the server. Used on
// session teardown.
func (c *Controller) Clear() {
	c.drop(CancelRequested{}, false)
}

// drop ends the live route. With orphan set, a create call still in flight
// for it has its result deleted from the server when it arrives.
func (c *Controller) drop(e Event, orphan bool) (State, bool) {
	c.mu.Lock()
	if !c.has {
		c.mu.Unlock()
		return State{}, false
	}
	if orphan && c.state.Status == Creating {
		c.orphaned[c.gen] = true
	}
	ended, err := Transition(c.state, e)
	if err != nil {
		ended = c.state.Clone()
		ended.Status = Cancelled
	}
	c.metrics.RouteTransition(ended.Status.String())
	c.state = State{}
	c.has = false
	c.gen++
	onEnd := c.onEnd
	c.mu.Unlock()

	if onEnd != nil {
		onEnd(ended)
	}
	return ended, true
}

// discard handles a route the server created after its plan was replaced.
// A superseded plan's route is left alone, like any superseded route; a
// cancelled one is deleted.
func (c *Controller) discard(ctx context.Context, routeID string, cancelled bool) {
	if !cancelled {
		c.logger.Printf("route: discarding route %s created for a replaced plan", routeID)
		return
	}
	if err := c.remote.DeleteRoute(ctx, routeID); err != nil {
		c.logger.Printf("route: delete %s created after cancel failed: %v", routeID, err)
		return
	}
	c.logger.Printf("route: deleted %s created after cancel", routeID)
}

func (c *Controller) setLocked(s State) {
	c.state = s
	c.metrics.RouteTransition(s.Status.String())
}

func describe(s State) string {
	if s.RouteID != "" {
		return fmt.Sprintf("route %s (%s)", s.RouteID, s.Status)
	}
	return fmt.Sprintf("route to %s (%s)", s.DestinationID, s.Status)
}
