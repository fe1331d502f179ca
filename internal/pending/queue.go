// Package pending implements the durable FIFO queue of mutations that could
// not be confirmed against the museum service.
package pending

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/docent/internal/metrics"
	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/storage"
)

// Kind identifies a queued mutation.
type Kind string

const (
	AddFavourite    Kind = "AddFavourite"
	RemoveFavourite Kind = "RemoveFavourite"
	RateExhibit     Kind = "RateExhibit"
)

// Operation is one queued mutation.
type Operation struct {
	ID             string                  `json:"id"`
	Kind           Kind                    `json:"kind"`
	Payload        museum.OperationPayload `json:"payload"`
	LocalTimestamp time.Time               `json:"localTimestamp"`
}

// Wire converts the operation to its sync-endpoint form.
func (op Operation) Wire() museum.SyncOperation {
	return museum.SyncOperation{
		ID:             op.ID,
		Kind:           string(op.Kind),
		Payload:        op.Payload,
		LocalTimestamp: op.LocalTimestamp,
	}
}

// Options configure a Queue.
type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time // defaults to time.Now
}

// Queue is an append-only list of operations persisted after every change.
// Order is insertion order and survives Drain/Requeue cycles.
//
// A drained batch stays in flight until it is acknowledged with Ack or put
// back with Requeue. In-flight operations are still persisted and still
// count for HasPendingFor, so a crash mid-sync or a newer mutation on the
// same exhibit cannot overtake them.
type Queue struct {
	mu       sync.Mutex
	ops      []Operation
	inflight []Operation
	kv       storage.Store
	key      string
	now      func() time.Time
	logger   *log.Logger
	metrics  *metrics.Recorder
}

// Open loads the user's queue from kv.
func Open(kv storage.Store, userID string, opts Options) *Queue {
	q := &Queue{
		kv:      kv,
		key:     storageKey(userID),
		now:     opts.Now,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if q.now == nil {
		q.now = time.Now
	}
	if q.logger == nil {
		q.logger = log.Default()
	}

	raw, ok, err := kv.Get(q.key)
	switch {
	case err != nil:
		q.logger.Printf("pending: load queue failed, starting empty: %v", err)
	case ok:
		if err := json.Unmarshal(raw, &q.ops); err != nil {
			q.logger.Printf("pending: decode queue failed, starting empty: %v", err)
			q.ops = nil
		}
	}
	q.metrics.PendingDepth(len(q.ops))
	return q
}

// Enqueue appends an operation stamped with the current time and a fresh ID.
func (q *Queue) Enqueue(kind Kind, payload museum.OperationPayload) Operation {
	op := Operation{
		ID:             uuid.NewString(),
		Kind:           kind,
		Payload:        payload,
		LocalTimestamp: q.now(),
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, op)
	q.persistLocked()
	return op
}

// Drain returns every queued operation in order and empties the queue in one
// step. Operations enqueued after Drain returns belong to the next batch. The
// batch is held in flight until Ack or Requeue.
func (q *Queue) Drain() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.ops
	q.ops = nil
	if len(batch) > 0 {
		q.inflight = append(q.inflight, batch...)
		q.persistLocked()
	}
	return batch
}

// Ack settles delivered operations: they leave the in-flight set for good.
func (q *Queue) Ack(ops []Operation) {
	if len(ops) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight = without(q.inflight, ops)
	q.persistLocked()
}

// Requeue puts an undelivered batch back ahead of anything queued since it
// was drained.
func (q *Queue) Requeue(batch []Operation) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight = without(q.inflight, batch)
	merged := make([]Operation, 0, len(batch)+len(q.ops))
	merged = append(merged, batch...)
	merged = append(merged, q.ops...)
	q.ops = merged
	q.persistLocked()
}

// HasPendingFor reports whether any queued or in-flight operation targets
// exhibitID.
func (q *Queue) HasPendingFor(exhibitID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, list := range [][]Operation{q.inflight, q.ops} {
		for _, op := range list {
			if op.Payload.ExhibitID == exhibitID {
				return true
			}
		}
	}
	return false
}

// Outstanding returns the number of operations not yet settled, queued or
// in flight.
func (q *Queue) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight) + len(q.ops)
}

// PeekAll returns a copy of the queued operations without removing them.
func (q *Queue) PeekAll() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 {
		return nil
	}
	dup := make([]Operation, len(q.ops))
	copy(dup, q.ops)
	return dup
}

// Len returns the number of queued operations, excluding any in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Clear drops every operation and deletes the durable key.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = nil
	q.inflight = nil
	if err := q.kv.Remove(q.key); err != nil {
		q.logger.Printf("pending: remove queue failed: %v", err)
	}
	q.metrics.PendingDepth(0)
}

// persistLocked stores in-flight operations ahead of queued ones, which is
// the order a reopened queue replays them in.
func (q *Queue) persistLocked() {
	q.metrics.PendingDepth(len(q.inflight) + len(q.ops))
	ops := make([]Operation, 0, len(q.inflight)+len(q.ops))
	ops = append(ops, q.inflight...)
	ops = append(ops, q.ops...)
	raw, err := json.Marshal(ops)
	if err != nil {
		q.logger.Printf("pending: encode queue failed: %v", err)
		return
	}
	if err := q.kv.Set(q.key, raw); err != nil {
		q.logger.Printf("pending: persist queue failed: %v", err)
	}
}

func without(list, drop []Operation) []Operation {
	ids := make(map[string]bool, len(drop))
	for _, op := range drop {
		ids[op.ID] = true
	}
	kept := list[:0:0]
	for _, op := range list {
		if !ids[op.ID] {
			kept = append(kept, op)
		}
	}
	return kept
}

func storageKey(userID string) string {
	if userID == "" {
		return "pending"
	}
	return "pending:" + userID
}
