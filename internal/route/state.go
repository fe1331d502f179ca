package route

import (
	"errors"
	"fmt"

	"github.com/five82/docent/internal/museum"
)

// Status is the lifecycle position of a route.
type Status int

const (
	Planning Status = iota
	Creating
	Active
	Recalculating
	Cancelled
	Superseded
)

var statusNames = [...]string{"Planning", "Creating", "Active", "Recalculating", "Cancelled", "SupersededByNewRoute"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether the route has ended.
func (s Status) Terminal() bool {
	return s == Cancelled || s == Superseded
}

// Live reports whether the route owns the session's navigation.
func (s Status) Live() bool {
	return s == Creating || s == Active || s == Recalculating
}

// State is one route as the client sees it.
type State struct {
	RouteID          string
	Status           Status
	DestinationID    string
	DestinationTitle string
	Instructions     []string
	Distance         float64 // metres
	EstimatedTime    int     // seconds
	ArrivalTime      string
	Stops            []museum.Stop
	// Fallback marks a locally synthesized route used when the server could
	// not produce one.
	Fallback  bool
	LastError string
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.Instructions = append([]string(nil), s.Instructions...)
	s.Stops = append([]museum.Stop(nil), s.Stops...)
	return s
}

func (s State) withPlan(p museum.RoutePlan) State {
	s.Instructions = append([]string(nil), p.Instructions...)
	s.Distance = p.Distance
	s.EstimatedTime = p.EstimatedTime
	s.ArrivalTime = p.ArrivalTime
	s.Stops = append([]museum.Stop(nil), p.Stops...)
	s.LastError = ""
	return s
}

// ErrInvalidTransition is returned for events the current status does not accept.
var ErrInvalidTransition = errors.New("invalid route transition")

// Event drives Transition.
type Event interface {
	eventName() string
}

type (
	// Planned picks a destination.
	Planned struct{ DestinationID, DestinationTitle string }
	// CreateRequested marks the remote create call as issued.
	CreateRequested struct{}
	// Created delivers the server's route.
	Created struct{ Plan museum.RoutePlan }
	// CreateFailed reports a failed create call.
	CreateFailed struct{ Err error }
	// FallbackUsed activates a locally built route after a failure.
	FallbackUsed struct{ Route State }
	// RecalculateRequested marks a recalculation as issued.
	RecalculateRequested struct{}
	// Recalculated delivers the recomputed route.
	Recalculated struct{ Plan museum.RoutePlan }
	// RecalculateFailed reports a failed recalculation.
	RecalculateFailed struct{ Err error }
	// StopsUpdated delivers the server's stop list after an update.
	StopsUpdated struct{ Stops []museum.Stop }
	// CancelRequested ends the route at the visitor's request.
	CancelRequested struct{}
	// SupersededByNew ends the route because another one started.
	SupersededByNew struct{}
)

func (Planned) eventName() string              { return "Planned" }
func (CreateRequested) eventName() string      { return "CreateRequested" }
func (Created) eventName() string              { return "Created" }
func (CreateFailed) eventName() string         { return "CreateFailed" }
func (FallbackUsed) eventName() string         { return "FallbackUsed" }
func (RecalculateRequested) eventName() string { return "RecalculateRequested" }
func (Recalculated) eventName() string         { return "Recalculated" }
func (RecalculateFailed) eventName() string    { return "RecalculateFailed" }
func (StopsUpdated) eventName() string         { return "StopsUpdated" }
func (CancelRequested) eventName() string      { return "CancelRequested" }
func (SupersededByNew) eventName() string      { return "SupersededByNew" }

// Transition computes the state after e. It never mutates s.
func Transition(s State, e Event) (State, error) {
	invalid := func() (State, error) {
		return s, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, e.eventName(), s.Status)
	}

	switch ev := e.(type) {
	case Planned:
		if s.Status.Live() {
			return invalid()
		}
		return State{Status: Planning, DestinationID: ev.DestinationID, DestinationTitle: ev.DestinationTitle}, nil

	case CreateRequested:
		if s.Status != Planning || s.DestinationID == "" {
			return invalid()
		}
		next := s.Clone()
		next.Status = Creating
		next.LastError = ""
		return next, nil

	case Created:
		if s.Status != Creating {
			return invalid()
		}
		if ev.Plan.RouteID == "" {
			return s, fmt.Errorf("%w: server returned a route without an id", ErrInvalidTransition)
		}
		next := s.withPlan(ev.Plan)
		next.RouteID = ev.Plan.RouteID
		next.Status = Active
		next.Fallback = false
		return next, nil

	case CreateFailed:
		if s.Status != Creating {
			return invalid()
		}
		next := s.Clone()
		next.Status = Planning
		next.LastError = errorText(ev.Err)
		return next, nil

	case FallbackUsed:
		if s.Status != Planning {
			return invalid()
		}
		next := ev.Route.Clone()
		next.Status = Active
		next.Fallback = true
		next.RouteID = ""
		if next.LastError == "" {
			next.LastError = s.LastError
		}
		return next, nil

	case RecalculateRequested:
		if s.Status != Active || s.Fallback || s.RouteID == "" {
			return invalid()
		}
		next := s.Clone()
		next.Status = Recalculating
		return next, nil

	case Recalculated:
		if s.Status != Recalculating {
			return invalid()
		}
		next := s.withPlan(ev.Plan)
		next.Status = Active
		return next, nil

	case RecalculateFailed:
		if s.Status != Recalculating {
			return invalid()
		}
		next := s.Clone()
		next.Status = Active
		next.LastError = errorText(ev.Err)
		return next, nil

	case StopsUpdated:
		if s.Status != Active || s.Fallback {
			return invalid()
		}
		next := s.Clone()
		next.Stops = append([]museum.Stop(nil), ev.Stops...)
		return next, nil

	case CancelRequested:
		if s.Status.Terminal() {
			return invalid()
		}
		next := s.Clone()
		next.Status = Cancelled
		return next, nil

	case SupersededByNew:
		if s.Status.Terminal() {
			return invalid()
		}
		next := s.Clone()
		next.Status = Superseded
		return next, nil
	}
	return invalid()
}

// Fallback builds a clearly marked route straight to the destination, for use
// when the server cannot compute one.
func Fallback(destinationID, destinationTitle string, cause error) State {
	title := destinationTitle
	if title == "" {
		title = "exhibit " + destinationID
	}
	return State{
		Status:           Active,
		DestinationID:    destinationID,
		DestinationTitle: destinationTitle,
		Instructions: []string{
			"Route guidance unavailable, showing a direct route.",
			"Head towards " + title + ".",
		},
		Fallback:  true,
		LastError: errorText(cause),
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
