// Package metrics exposes docent's Prometheus collectors. A nil *Recorder is
// valid and records nothing, so components can be built without metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docent"

// Recorder bundles the collectors used across the client.
type Recorder struct {
	registry *prometheus.Registry

	mutations   *prometheus.CounterVec
	pending     prometheus.Gauge
	pushes      *prometheus.CounterVec
	skipped     prometheus.Counter
	transitions *prometheus.CounterVec
	syncOps     *prometheus.CounterVec
}

// New registers docent's collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Optimistic mutations by kind and reconciliation outcome.",
		}, []string{"kind", "outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_operations",
			Help:      "Operations waiting in the offline queue.",
		}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coordinate_pushes_total",
			Help:      "Coordinate pushes by source and result.",
		}, []string{"source", "result"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracker_ticks_skipped_total",
			Help:      "Tracker ticks dropped because a push was still in flight.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_transitions_total",
			Help:      "Route lifecycle transitions by target status.",
		}, []string{"status"}),
		syncOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_operations_total",
			Help:      "Replayed operations by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(r.mutations, r.pending, r.pushes, r.skipped, r.transitions, r.syncOps)
	return r
}

// Mutation counts one reconciled mutation.
func (r *Recorder) Mutation(kind, outcome string) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(kind, outcome).Inc()
}

// PendingDepth sets the offline queue depth.
func (r *Recorder) PendingDepth(n int) {
	if r == nil {
		return
	}
	r.pending.Set(float64(n))
}

// Push counts one coordinate push.
func (r *Recorder) Push(source, result string) {
	if r == nil {
		return
	}
	r.pushes.WithLabelValues(source, result).Inc()
}

// SkippedTick counts a tick dropped by the in-flight guard.
func (r *Recorder) SkippedTick() {
	if r == nil {
		return
	}
	r.skipped.Inc()
}

// RouteTransition counts a route entering status.
func (r *Recorder) RouteTransition(status string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(status).Inc()
}

// SyncResult counts n replayed operations with the given result.
func (r *Recorder) SyncResult(result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.syncOps.WithLabelValues(result).Add(float64(n))
}

// Gatherer exposes the underlying registry for tests and handlers.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

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
		return fmt.Errorf("serve metrics: %w", err)
	}
}
