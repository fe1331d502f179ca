package museum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the museum HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIURL    = "http://127.0.0.1:8787"
	defaultUserAgent = "docent/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 4096
)

// NewClient builds a Client for the given base URL or host:port.
func NewClient(apiURL string) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// FetchExhibits retrieves the exhibit catalogue.
func (c *Client) FetchExhibits(ctx context.Context) ([]Exhibit, error) {
	var payload ExhibitListResponse
	if err := c.do(ctx, "fetch exhibits", http.MethodGet, "/api/exhibits", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// FetchFavourites retrieves the server's view of the user's favourites.
func (c *Client) FetchFavourites(ctx context.Context, userID string) ([]FavouriteRecord, error) {
	var payload []FavouriteRecord
	if err := c.do(ctx, "fetch favourites", http.MethodGet, userPath(userID, "favourites"), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchRatings retrieves the server's view of the user's ratings.
func (c *Client) FetchRatings(ctx context.Context, userID string) ([]RatingRecord, error) {
	var payload []RatingRecord
	if err := c.do(ctx, "fetch ratings", http.MethodGet, userPath(userID, "ratings"), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// AddFavourite marks an exhibit as a favourite.
func (c *Client) AddFavourite(ctx context.Context, userID, exhibitID string) error {
	path := userPath(userID, "favourites", exhibitID)
	return c.do(ctx, "add favourite", http.MethodPost, path, nil, nil)
}

// RemoveFavourite clears a favourite.
func (c *Client) RemoveFavourite(ctx context.Context, userID, exhibitID string) error {
	path := userPath(userID, "favourites", exhibitID)
	return c.do(ctx, "remove favourite", http.MethodDelete, path, nil, nil)
}

// RateExhibit records a 1..5 rating for an exhibit.
func (c *Client) RateExhibit(ctx context.Context, userID, exhibitID string, rating int) error {
	if err := ValidateRating(rating); err != nil {
		return &RejectionError{Op: "rate exhibit", Status: http.StatusBadRequest, Message: err.Error()}
	}
	path := "/api/exhibits/" + url.PathEscape(exhibitID) + "/ratings"
	return c.do(ctx, "rate exhibit", http.MethodPost, path, RateRequest{UserID: userID, Rating: rating}, nil)
}

// CreateRoute asks the server for a walking route to a destination.
func (c *Client) CreateRoute(ctx context.Context, req CreateRouteRequest) (RoutePlan, error) {
	var plan RoutePlan
	if err := c.do(ctx, "create route", http.MethodPost, "/api/routes", req, &plan); err != nil {
		return RoutePlan{}, err
	}
	return plan, nil
}

// UpdateRouteStops adds and removes intermediate stops, returning the new list.
func (c *Client) UpdateRouteStops(ctx context.Context, routeID string, add, remove []string) ([]Stop, error) {
	var payload StopListResponse
	path := "/api/routes/" + url.PathEscape(routeID) + "/stops"
	body := UpdateStopsRequest{Add: add, Remove: remove}
	if err := c.do(ctx, "update route stops", http.MethodPatch, path, body, &payload); err != nil {
		return nil, err
	}
	return payload.Stops, nil
}

// RecalculateRoute recomputes an existing route.
func (c *Client) RecalculateRoute(ctx context.Context, routeID string) (RoutePlan, error) {
	var plan RoutePlan
	path := "/api/routes/" + url.PathEscape(routeID) + "/recalculate"
	if err := c.do(ctx, "recalculate route", http.MethodPost, path, nil, &plan); err != nil {
		return RoutePlan{}, err
	}
	return plan, nil
}

// DeleteRoute drops a route server-side.
func (c *Client) DeleteRoute(ctx context.Context, routeID string) error {
	path := "/api/routes/" + url.PathEscape(routeID)
	return c.do(ctx, "delete route", http.MethodDelete, path, nil, nil)
}

// FetchCoordinates returns the last position the server holds for a user.
func (c *Client) FetchCoordinates(ctx context.Context, userID string) (Coordinate, error) {
	var coord Coordinate
	if err := c.do(ctx, "fetch coordinates", http.MethodGet, userPath(userID, "coordinates"), nil, &coord); err != nil {
		return Coordinate{}, err
	}
	return coord, nil
}

// UpdateCoordinates pushes the user's current position.
func (c *Client) UpdateCoordinates(ctx context.Context, userID string, lat, lng float64) error {
	body := CoordinateUpdate{Lat: lat, Lng: lng}
	return c.do(ctx, "update coordinates", http.MethodPut, userPath(userID, "coordinates"), body, nil)
}

// Sync forwards a batch of queued operations.
func (c *Client) Sync(ctx context.Context, req SyncRequest) (SyncResponse, error) {
	var payload SyncResponse
	if err := c.do(ctx, "sync", http.MethodPost, "/api/sync", req, &payload); err != nil {
		return SyncResponse{}, err
	}
	return payload, nil
}

func userPath(userID string, parts ...string) string {
	segments := []string{"/api/users", url.PathEscape(userID)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/")
}

func (c *Client) do(ctx context.Context, op, method, path string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("%s: client is nil", op)
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	// path arrives with its segments escaped; keep that encoding on the wire.
	ref := &url.URL{Path: path}
	if unescaped, err := url.PathUnescape(path); err == nil {
		ref = &url.URL{Path: unescaped, RawPath: path}
	}
	reqURL := c.baseURL.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &ConnectivityError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &RejectionError{Op: op, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
