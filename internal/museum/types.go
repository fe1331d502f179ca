package museum

import (
	"fmt"
	"time"
)

// Exhibit is a catalogue entry as served by /api/exhibits.
type Exhibit struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle,omitempty"`
	Category string  `json:"category,omitempty"`
	Period   string  `json:"period,omitempty"`
	Floor    int     `json:"floor"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// ExhibitListResponse mirrors /api/exhibits.
type ExhibitListResponse struct {
	Items []Exhibit `json:"items"`
}

// FavouriteRecord is one favourited exhibit. Unique by ExhibitID.
type FavouriteRecord struct {
	ExhibitID string `json:"exhibitId"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
}

// Key implements cache.Record.
func (f FavouriteRecord) Key() string { return f.ExhibitID }

// RatingRecord is the visitor's rating of one exhibit. Unique by ExhibitID.
type RatingRecord struct {
	ExhibitID string    `json:"exhibitId"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key implements cache.Record.
func (r RatingRecord) Key() string { return r.ExhibitID }

// MinRating and MaxRating bound a valid rating.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidateRating reports whether rating is within 1..5.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("rating %d out of range %d..%d", rating, MinRating, MaxRating)
	}
	return nil
}

// Stop is an intermediate exhibit on a route.
type Stop struct {
	ExhibitID string `json:"exhibitId"`
	Title     string `json:"title,omitempty"`
}

// RoutePlan is the server's answer to create and recalculate calls.
type RoutePlan struct {
	RouteID       string   `json:"routeId"`
	Instructions  []string `json:"instructions"`
	Distance      float64  `json:"distance"`
	EstimatedTime int      `json:"estimatedTime"`
	ArrivalTime   string   `json:"arrivalTime,omitempty"`
	Stops         []Stop   `json:"stops"`
}

// CreateRouteRequest is the body of POST /api/routes.
type CreateRouteRequest struct {
	UserID        string  `json:"userId"`
	DestinationID string  `json:"destinationId"`
	StartLat      float64 `json:"startLat"`
	StartLng      float64 `json:"startLng"`
}

// UpdateStopsRequest is the body of PATCH /api/routes/{id}/stops.
type UpdateStopsRequest struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// StopListResponse mirrors the stop-update response.
type StopListResponse struct {
	Stops []Stop `json:"stops"`
}

// Coordinate is a single position sample.
type Coordinate struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks latitude and longitude bounds.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", c.Lng)
	}
	return nil
}

// IsZero reports whether no position has been recorded.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0 && c.Timestamp.IsZero()
}

// CoordinateUpdate is the body of PUT /api/users/{id}/coordinates.
type CoordinateUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RateRequest is the body of POST /api/exhibits/{id}/ratings.
type RateRequest struct {
	UserID string `json:"userId"`
	Rating int    `json:"rating"`
}

// OperationPayload carries the arguments of a queued mutation.
type OperationPayload struct {
	ExhibitID string `json:"exhibitId"`
	Title     string `json:"title,omitempty"`
	Subtitle  string `json:"subtitle,omitempty"`
	Rating    int    `json:"rating,omitempty"`
}

// SyncOperation is a queued mutation in wire form.
type SyncOperation struct {
	ID             string           `json:"id"`
	Kind           string           `json:"kind"`
	Payload        OperationPayload `json:"payload"`
	LocalTimestamp time.Time        `json:"localTimestamp"`
}

// SyncRequest is the body of POST /api/sync.
type SyncRequest struct {
	UserID     string          `json:"userId"`
	Operations []SyncOperation `json:"operations"`
}

// Sync result statuses.
const (
	SyncApplied  = "applied"
	SyncRejected = "rejected"
)

// SyncResult reports the server outcome for one operation.
type SyncResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SyncResponse mirrors the /api/sync response.
type SyncResponse struct {
	Results []SyncResult `json:"results"`
}

// errorBody is the JSON error envelope returned with 4xx/5xx responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
