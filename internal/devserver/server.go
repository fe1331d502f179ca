// Package devserver is an in-memory museum service implementing the API the
// client speaks. It backs `docent devserver` and end-to-end tests.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/five82/docent/internal/museum"
)

// walkingSpeed in metres per second.
const walkingSpeed = 1.2

// Options configure a Server.
type Options struct {
	Exhibits []museum.Exhibit // nil serves SeedExhibits
	Logger   *log.Logger
	Now      func() time.Time
}

type routeRecord struct {
	userID      string
	destination museum.Exhibit
	start       museum.Coordinate
	stops       []museum.Stop
}

// Server holds all state in memory.
type Server struct {
	logger *log.Logger
	now    func() time.Time
	router *mux.Router

	mu         sync.Mutex
	exhibits   []museum.Exhibit
	byID       map[string]museum.Exhibit
	favourites map[string][]museum.FavouriteRecord
	ratings    map[string][]museum.RatingRecord
	coords     map[string]museum.Coordinate
	routes     map[string]*routeRecord
	applied    map[string]museum.SyncResult // sync results by operation ID
}

// New builds a Server.
func New(opts Options) *Server {
	s := &Server{
		logger:     opts.Logger,
		now:        opts.Now,
		exhibits:   opts.Exhibits,
		byID:       make(map[string]museum.Exhibit),
		favourites: make(map[string][]museum.FavouriteRecord),
		ratings:    make(map[string][]museum.RatingRecord),
		coords:     make(map[string]museum.Coordinate),
		routes:     make(map[string]*routeRecord),
		applied:    make(map[string]museum.SyncResult),
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.exhibits == nil {
		s.exhibits = SeedExhibits()
	}
	for _, e := range s.exhibits {
		s.byID[e.ID] = e
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Printf("devserver: listening on %s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("devserver: %w", err)
	}
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/exhibits", s.listExhibits).Methods(http.MethodGet)
	api.HandleFunc("/exhibits/{exhibit}/ratings", s.rateExhibit).Methods(http.MethodPost)
	api.HandleFunc("/users/{user}/favourites", s.listFavourites).Methods(http.MethodGet)
	api.HandleFunc("/users/{user}/favourites/{exhibit}", s.addFavourite).Methods(http.MethodPost)
	api.HandleFunc("/users/{user}/favourites/{exhibit}", s.removeFavourite).Methods(http.MethodDelete)
	api.HandleFunc("/users/{user}/ratings", s.listRatings).Methods(http.MethodGet)
	api.HandleFunc("/users/{user}/coordinates", s.getCoordinates).Methods(http.MethodGet)
	api.HandleFunc("/users/{user}/coordinates", s.putCoordinates).Methods(http.MethodPut)
	api.HandleFunc("/routes", s.createRoute).Methods(http.MethodPost)
	api.HandleFunc("/routes/{route}/stops", s.updateStops).Methods(http.MethodPatch)
	api.HandleFunc("/routes/{route}/recalculate", s.recalculateRoute).Methods(http.MethodPost)
	api.HandleFunc("/routes/{route}", s.deleteRoute).Methods(http.MethodDelete)
	api.HandleFunc("/sync", s.sync).Methods(http.MethodPost)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("devserver: %s %s %d", r.Method, r.URL.Path, rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) listExhibits(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	items := append([]museum.Exhibit(nil), s.exhibits...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, museum.ExhibitListResponse{Items: items})
}

func (s *Server) listFavourites(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	s.mu.Lock()
	items := append([]museum.FavouriteRecord{}, s.favourites[user]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) listRatings(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	s.mu.Lock()
	items := append([]museum.RatingRecord{}, s.ratings[user]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) addFavourite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	err := s.addFavouriteLocked(vars["user"], vars["exhibit"])
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeFavourite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	s.removeFavouriteLocked(vars["user"], vars["exhibit"])
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) rateExhibit(w http.ResponseWriter, r *http.Request) {
	var req museum.RateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, badRequest("userId is required"))
		return
	}
	s.mu.Lock()
	err := s.rateLocked(req.UserID, mux.Vars(r)["exhibit"], req.Rating)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getCoordinates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c, ok := s.coords[mux.Vars(r)["user"]]
	s.mu.Unlock()
	if !ok {
		writeError(w, notFound("no coordinates recorded"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) putCoordinates(w http.ResponseWriter, r *http.Request) {
	var req museum.CoordinateUpdate
	if !decode(w, r, &req) {
		return
	}
	c := museum.Coordinate{Lat: req.Lat, Lng: req.Lng, Timestamp: s.now()}
	if err := c.Validate(); err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	s.mu.Lock()
	s.coords[mux.Vars(r)["user"]] = c
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request) {
	var req museum.CreateRouteRequest
	if !decode(w, r, &req) {
		return
	}
	start := museum.Coordinate{Lat: req.StartLat, Lng: req.StartLng}
	if err := start.Validate(); err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dest, ok := s.byID[req.DestinationID]
	if !ok {
		writeError(w, notFound("unknown exhibit "+req.DestinationID))
		return
	}
	id := uuid.NewString()
	rec := &routeRecord{userID: req.UserID, destination: dest, start: start}
	s.routes[id] = rec
	writeJSON(w, http.StatusCreated, s.planLocked(id, rec, start))
}

func (s *Server) updateStops(w http.ResponseWriter, r *http.Request) {
	var req museum.UpdateStopsRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.routes[mux.Vars(r)["route"]]
	if !ok {
		writeError(w, notFound("unknown route"))
		return
	}
	for _, id := range req.Add {
		e, ok := s.byID[id]
		if !ok {
			writeError(w, notFound("unknown exhibit "+id))
			return
		}
		if !hasStop(rec.stops, id) {
			rec.stops = append(rec.stops, museum.Stop{ExhibitID: id, Title: e.Title})
		}
	}
	for _, id := range req.Remove {
		kept := rec.stops[:0]
		for _, st := range rec.stops {
			if st.ExhibitID != id {
				kept = append(kept, st)
			}
		}
		rec.stops = kept
	}
	writeJSON(w, http.StatusOK, museum.StopListResponse{Stops: append([]museum.Stop{}, rec.stops...)})
}

func (s *Server) recalculateRoute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["route"]
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.routes[id]
	if !ok {
		writeError(w, notFound("unknown route"))
		return
	}
	from := rec.start
	if c, ok := s.coords[rec.userID]; ok {
		from = c
	}
	writeJSON(w, http.StatusOK, s.planLocked(id, rec, from))
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["route"]
	s.mu.Lock()
	_, ok := s.routes[id]
	delete(s.routes, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, notFound("unknown route"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sync applies a batch in order. Replaying an operation ID returns its
// original result without applying it again.
func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	var req museum.SyncRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, badRequest("userId is required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	resp := museum.SyncResponse{Results: make([]museum.SyncResult, 0, len(req.Operations))}
	for _, op := range req.Operations {
		if prev, ok := s.applied[op.ID]; ok && op.ID != "" {
			resp.Results = append(resp.Results, prev)
			continue
		}
		res := museum.SyncResult{ID: op.ID, Status: museum.SyncApplied}
		if err := s.applyLocked(req.UserID, op); err != nil {
			res.Status = museum.SyncRejected
			res.Error = err.Error()
		}
		if op.ID != "" {
			s.applied[op.ID] = res
		}
		resp.Results = append(resp.Results, res)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) applyLocked(userID string, op museum.SyncOperation) error {
	switch op.Kind {
	case "AddFavourite":
		return s.addFavouriteLocked(userID, op.Payload.ExhibitID)
	case "RemoveFavourite":
		s.removeFavouriteLocked(userID, op.Payload.ExhibitID)
		return nil
	case "RateExhibit":
		return s.rateLocked(userID, op.Payload.ExhibitID, op.Payload.Rating)
	default:
		return badRequest("unknown operation kind " + op.Kind)
	}
}

func (s *Server) addFavouriteLocked(userID, exhibitID string) error {
	e, ok := s.byID[exhibitID]
	if !ok {
		return notFound("unknown exhibit " + exhibitID)
	}
	for _, f := range s.favourites[userID] {
		if f.ExhibitID == exhibitID {
			return nil
		}
	}
	s.favourites[userID] = append(s.favourites[userID], museum.FavouriteRecord{ExhibitID: e.ID, Title: e.Title, Subtitle: e.Subtitle})
	return nil
}

func (s *Server) removeFavouriteLocked(userID, exhibitID string) {
	favs := s.favourites[userID]
	kept := favs[:0]
	for _, f := range favs {
		if f.ExhibitID != exhibitID {
			kept = append(kept, f)
		}
	}
	s.favourites[userID] = kept
}

func (s *Server) rateLocked(userID, exhibitID string, rating int) error {
	e, ok := s.byID[exhibitID]
	if !ok {
		return notFound("unknown exhibit " + exhibitID)
	}
	if err := museum.ValidateRating(rating); err != nil {
		return badRequest(err.Error())
	}
	rec := museum.RatingRecord{ExhibitID: e.ID, Rating: rating, Title: e.Title, CreatedAt: s.now()}
	list := s.ratings[userID]
	for i := range list {
		if list[i].ExhibitID == exhibitID {
			list[i] = rec
			return nil
		}
	}
	s.ratings[userID] = append(list, rec)
	return nil
}

func (s *Server) planLocked(id string, rec *routeRecord, from museum.Coordinate) museum.RoutePlan {
	instructions := []string{fmt.Sprintf("Start at %.5f, %.5f", from.Lat, from.Lng)}
	distance := 0.0
	at := from
	for _, st := range rec.stops {
		e := s.byID[st.ExhibitID]
		next := museum.Coordinate{Lat: e.Lat, Lng: e.Lng}
		distance += metresBetween(at, next)
		instructions = append(instructions, fmt.Sprintf("Walk to %s on floor %d", e.Title, e.Floor))
		at = next
	}
	dest := museum.Coordinate{Lat: rec.destination.Lat, Lng: rec.destination.Lng}
	distance += metresBetween(at, dest)
	instructions = append(instructions, fmt.Sprintf("Arrive at %s on floor %d", rec.destination.Title, rec.destination.Floor))

	eta := int(math.Ceil(distance / walkingSpeed))
	return museum.RoutePlan{
		RouteID:       id,
		Instructions:  instructions,
		Distance:      math.Round(distance*10) / 10,
		EstimatedTime: eta,
		ArrivalTime:   s.now().Add(time.Duration(eta) * time.Second).Format("15:04"),
		Stops:         append([]museum.Stop{}, rec.stops...),
	}
}

func hasStop(stops []museum.Stop, id string) bool {
	for _, st := range stops {
		if st.ExhibitID == id {
			return true
		}
	}
	return false
}

// metresBetween is the haversine distance.
func metresBetween(a, b museum.Coordinate) float64 {
	const earthRadius = 6371000.0
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLng := (b.Lng - a.Lng) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{status: http.StatusBadRequest, msg: msg} }
func notFound(msg string) error   { return &httpError{status: http.StatusNotFound, msg: msg} }

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeError(w, badRequest("invalid JSON body: "+strings.TrimSpace(err.Error())))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var he *httpError
	if errors.As(err, &he) {
		status = he.status
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
