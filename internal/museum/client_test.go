package museum

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultAPIURL {
		t.Fatalf("url = %q, want %q", u.String(), defaultAPIURL)
	}

	u, err = parseBaseURL("museum.local:9000/api?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "museum.local:9000" {
		t.Fatalf("url = %q, want http://museum.local:9000", u.String())
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_EndpointsAndBodies(t *testing.T) {
	t.Parallel()

	var gotRate RateRequest
	var gotCoord CoordinateUpdate
	var gotStops UpdateStopsRequest
	var gotSync SyncRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "GET /api/exhibits":
			_ = json.NewEncoder(w).Encode(ExhibitListResponse{Items: []Exhibit{{ID: "42", Title: "Sunflowers"}}})
		case "POST /api/users/u1/favourites/42", "DELETE /api/users/u1/favourites/42", "DELETE /api/routes/r1":
			w.WriteHeader(http.StatusNoContent)
		case "POST /api/exhibits/42/ratings":
			_ = json.NewDecoder(r.Body).Decode(&gotRate)
			w.WriteHeader(http.StatusCreated)
		case "POST /api/routes":
			_ = json.NewEncoder(w).Encode(RoutePlan{RouteID: "r1", Instructions: []string{"Go north"}, Distance: 120})
		case "PATCH /api/routes/r1/stops":
			_ = json.NewDecoder(r.Body).Decode(&gotStops)
			_ = json.NewEncoder(w).Encode(StopListResponse{Stops: []Stop{{ExhibitID: "7"}}})
		case "POST /api/routes/r1/recalculate":
			_ = json.NewEncoder(w).Encode(RoutePlan{RouteID: "r1", Distance: 80})
		case "PUT /api/users/u1/coordinates":
			_ = json.NewDecoder(r.Body).Decode(&gotCoord)
			w.WriteHeader(http.StatusNoContent)
		case "POST /api/sync":
			_ = json.NewDecoder(r.Body).Decode(&gotSync)
			_ = json.NewEncoder(w).Encode(SyncResponse{Results: []SyncResult{{ID: "op1", Status: SyncApplied}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	exhibits, err := c.FetchExhibits(ctx)
	if err != nil || len(exhibits) != 1 || exhibits[0].ID != "42" {
		t.Fatalf("FetchExhibits = %#v, %v; want one exhibit id=42", exhibits, err)
	}
	if err := c.AddFavourite(ctx, "u1", "42"); err != nil {
		t.Fatalf("AddFavourite returned error: %v", err)
	}
	if err := c.RemoveFavourite(ctx, "u1", "42"); err != nil {
		t.Fatalf("RemoveFavourite returned error: %v", err)
	}
	if err := c.RateExhibit(ctx, "u1", "42", 4); err != nil {
		t.Fatalf("RateExhibit returned error: %v", err)
	}
	if gotRate.Rating != 4 || gotRate.UserID != "u1" {
		t.Fatalf("rate body = %#v, want rating 4 for u1", gotRate)
	}

	plan, err := c.CreateRoute(ctx, CreateRouteRequest{UserID: "u1", DestinationID: "42"})
	if err != nil || plan.RouteID != "r1" {
		t.Fatalf("CreateRoute = %#v, %v; want route r1", plan, err)
	}
	stops, err := c.UpdateRouteStops(ctx, "r1", []string{"7"}, []string{"9"})
	if err != nil || len(stops) != 1 || stops[0].ExhibitID != "7" {
		t.Fatalf("UpdateRouteStops = %#v, %v", stops, err)
	}
	if len(gotStops.Add) != 1 || len(gotStops.Remove) != 1 {
		t.Fatalf("stops body = %#v, want one add and one remove", gotStops)
	}
	if plan, err = c.RecalculateRoute(ctx, "r1"); err != nil || plan.Distance != 80 {
		t.Fatalf("RecalculateRoute = %#v, %v", plan, err)
	}
	if err := c.DeleteRoute(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRoute returned error: %v", err)
	}
	if err := c.UpdateCoordinates(ctx, "u1", 51.5, -0.12); err != nil {
		t.Fatalf("UpdateCoordinates returned error: %v", err)
	}
	if gotCoord.Lat != 51.5 || gotCoord.Lng != -0.12 {
		t.Fatalf("coordinate body = %#v", gotCoord)
	}

	resp, err := c.Sync(ctx, SyncRequest{UserID: "u1", Operations: []SyncOperation{{ID: "op1", Kind: "AddFavourite"}}})
	if err != nil || len(resp.Results) != 1 || resp.Results[0].Status != SyncApplied {
		t.Fatalf("Sync = %#v, %v", resp, err)
	}
	if len(gotSync.Operations) != 1 || gotSync.Operations[0].ID != "op1" {
		t.Fatalf("sync body = %#v", gotSync)
	}
}

func TestClient_ClassifiesRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"validation", http.StatusUnprocessableEntity, ErrValidation},
		{"bad request", http.StatusBadRequest, ErrValidation},
		{"unauthorized", http.StatusUnauthorized, ErrAuthRequired},
		{"forbidden", http.StatusForbidden, ErrAuthRequired},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"server", http.StatusInternalServerError, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope","message":"exhibit is closed"}`))
			}))
			defer server.Close()

			c, err := NewClient(server.URL)
			if err != nil {
				t.Fatalf("NewClient returned error: %v", err)
			}
			err = c.AddFavourite(context.Background(), "u1", "42")
			if !IsRejection(err) || IsConnectivity(err) {
				t.Fatalf("error = %v, want rejection", err)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("errors.Is(%v, %v) = false", err, tt.want)
			}
			var re *RejectionError
			if !errors.As(err, &re) || re.Message != "exhibit is closed" || re.Status != tt.status {
				t.Fatalf("rejection = %#v, want status %d with server message", re, tt.status)
			}
		})
	}
}

func TestClient_UnreachableServerIsConnectivityFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c, err := NewClient(addr)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	err = c.AddFavourite(context.Background(), "u1", "42")
	if !IsConnectivity(err) {
		t.Fatalf("error = %v, want connectivity failure", err)
	}
	if IsRejection(err) {
		t.Fatalf("connectivity failure also classified as rejection: %v", err)
	}
}

func TestClient_RateExhibitValidatesLocally(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	err = c.RateExhibit(context.Background(), "u1", "42", 6)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("RateExhibit(6) error = %v, want validation rejection", err)
	}
}

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"origin", Coordinate{}, false},
		{"bounds", Coordinate{Lat: 90, Lng: -180}, false},
		{"lat too high", Coordinate{Lat: 90.1}, true},
		{"lng too low", Coordinate{Lng: -180.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.coord.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
