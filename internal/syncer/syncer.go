// Package syncer replays the pending operation queue against the museum
// service's batch endpoint. Sync is manual: nothing here runs on a timer.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/five82/docent/internal/metrics"
	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/pending"
)

// Remote posts a batch to the sync endpoint.
type Remote interface {
	Sync(ctx context.Context, req museum.SyncRequest) (museum.SyncResponse, error)
}

var _ Remote = (*museum.Client)(nil)

// ErrClosed is returned by Sync after Close.
var ErrClosed = errors.New("syncer closed")

// Rejection is a queued operation the server refused. It is not retried.
type Rejection struct {
	Operation pending.Operation
	Reason    string
}

// Report summarises one Sync call.
type Report struct {
	Sent     int
	Applied  int
	Rejected []Rejection
	// Requeued counts operations put back because the server did not report
	// on them.
	Requeued int
}

// Syncer drains the queue and forwards it.
type Syncer struct {
	userID  string
	queue   *pending.Queue
	remote  Remote
	logger  *log.Logger
	metrics *metrics.Recorder

	// mu keeps two Sync calls from interleaving their drains.
	mu     sync.Mutex
	closed bool
}

// New builds a Syncer. A nil logger uses the standard logger.
func New(userID string, queue *pending.Queue, remote Remote, logger *log.Logger, rec *metrics.Recorder) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	return &Syncer{userID: userID, queue: queue, remote: remote, logger: logger, metrics: rec}
}

// Close waits for a running Sync and refuses later ones.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Sync sends every queued operation in one batch. An empty queue makes no
// call. When the service is unreachable, or answers with a body that cannot
// be read, the batch goes back to the front of the queue and the error is
// returned. Only an explicit server rejection drops operations.
func (s *Syncer) Sync(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Report{}, ErrClosed
	}

	batch := s.queue.Drain()
	if len(batch) == 0 {
		return Report{}, nil
	}
	rep := Report{Sent: len(batch)}

	req := museum.SyncRequest{UserID: s.userID, Operations: make([]museum.SyncOperation, 0, len(batch))}
	for _, op := range batch {
		req.Operations = append(req.Operations, op.Wire())
	}

	resp, err := s.remote.Sync(ctx, req)
	if err != nil {
		if !museum.IsRejection(err) {
			// The server may or may not have applied the batch; replay is
			// idempotent by operation ID.
			s.queue.Requeue(batch)
			s.metrics.SyncResult("requeued", len(batch))
			if !museum.IsConnectivity(err) && ctx.Err() == nil {
				s.logger.Printf("sync: unreadable response for %d operations, requeued: %v", len(batch), err)
			}
			return rep, fmt.Errorf("sync %d operations: %w", len(batch), err)
		}
		for _, op := range batch {
			rep.Rejected = append(rep.Rejected, Rejection{Operation: op, Reason: err.Error()})
		}
		s.queue.Ack(batch)
		s.logger.Printf("sync: server rejected batch of %d operations: %v", len(batch), err)
		s.metrics.SyncResult(museum.SyncRejected, len(batch))
		return rep, nil
	}

	results := make(map[string]museum.SyncResult, len(resp.Results))
	for _, r := range resp.Results {
		results[r.ID] = r
	}

	var missing, settled []pending.Operation
	for _, op := range batch {
		r, ok := results[op.ID]
		if !ok {
			missing = append(missing, op)
			continue
		}
		settled = append(settled, op)
		switch {
		case r.Status == museum.SyncApplied:
			rep.Applied++
		default:
			reason := r.Error
			if reason == "" {
				reason = r.Status
			}
			rep.Rejected = append(rep.Rejected, Rejection{Operation: op, Reason: reason})
			s.logger.Printf("sync: %s %s for exhibit %s rejected: %s", op.Kind, op.ID, op.Payload.ExhibitID, reason)
		}
	}
	s.queue.Ack(settled)
	if len(missing) > 0 {
		s.queue.Requeue(missing)
		rep.Requeued = len(missing)
		s.logger.Printf("sync: no result for %d operations, requeued", len(missing))
	}

	s.metrics.SyncResult(museum.SyncApplied, rep.Applied)
	s.metrics.SyncResult(museum.SyncRejected, len(rep.Rejected))
	s.metrics.SyncResult("requeued", rep.Requeued)
	return rep, nil
}
