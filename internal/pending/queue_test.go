package pending

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/storage"
)

func exhibit(id string) museum.OperationPayload {
	return museum.OperationPayload{ExhibitID: id}
}

func ids(ops []Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Payload.ExhibitID
	}
	return out
}

func TestQueue_FIFO(t *testing.T) {
	q := Open(storage.NewMemory(), "u1", Options{})
	q.Enqueue(AddFavourite, exhibit("A"))
	q.Enqueue(RemoveFavourite, exhibit("B"))
	q.Enqueue(RateExhibit, exhibit("C"))

	batch := q.Drain()
	q.Enqueue(AddFavourite, exhibit("D"))

	if got := fmt.Sprint(ids(batch)); got != "[A B C]" {
		t.Fatalf("first drain = %s, want [A B C]", got)
	}
	if got := fmt.Sprint(ids(q.Drain())); got != "[D]" {
		t.Fatalf("second drain = %s, want [D]", got)
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d after drains, want 0", q.Len())
	}
}

func TestQueue_EnqueueStampsTimeAndID(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	q := Open(storage.NewMemory(), "u1", Options{Now: func() time.Time { return fixed }})

	a := q.Enqueue(AddFavourite, exhibit("42"))
	b := q.Enqueue(AddFavourite, exhibit("42"))
	if !a.LocalTimestamp.Equal(fixed) {
		t.Fatalf("LocalTimestamp = %v, want %v", a.LocalTimestamp, fixed)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("IDs = %q, %q; want distinct non-empty", a.ID, b.ID)
	}
}

// blockingKV parks the first Set call issued after armed is set.
type blockingKV struct {
	*storage.Memory
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (b *blockingKV) Set(key string, value []byte) error {
	b.mu.Lock()
	block := b.armed
	b.armed = false
	b.mu.Unlock()
	if block {
		close(b.entered)
		<-b.release
	}
	return b.Memory.Set(key, value)
}

func TestQueue_EnqueueDuringDrainIsNeitherLostNorDuplicated(t *testing.T) {
	kv := &blockingKV{Memory: storage.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	q := Open(kv, "u1", Options{})
	q.Enqueue(AddFavourite, exhibit("A"))
	q.Enqueue(AddFavourite, exhibit("B"))
	q.Enqueue(AddFavourite, exhibit("C"))

	kv.mu.Lock()
	kv.armed = true
	kv.mu.Unlock()

	batchCh := make(chan []Operation)
	go func() { batchCh <- q.Drain() }()
	<-kv.entered

	enqueued := make(chan struct{})
	go func() {
		q.Enqueue(AddFavourite, exhibit("D"))
		close(enqueued)
	}()

	close(kv.release)
	batch := <-batchCh
	<-enqueued

	if got := fmt.Sprint(ids(batch)); got != "[A B C]" {
		t.Fatalf("drained batch = %s, want [A B C]", got)
	}
	if got := fmt.Sprint(ids(q.PeekAll())); got != "[D]" {
		t.Fatalf("queue after drain = %s, want [D]", got)
	}
}

func TestQueue_ConcurrentEnqueueAndDrain(t *testing.T) {
	q := Open(storage.NewMemory(), "u1", Options{})
	const writers, perWriter = 4, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				q.Enqueue(AddFavourite, exhibit(fmt.Sprintf("%d-%03d", w, i)))
			}
		}(w)
	}

	var delivered []Operation
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		delivered = append(delivered, q.Drain()...)
	}
	delivered = append(delivered, q.Drain()...)

	if len(delivered) != writers*perWriter {
		t.Fatalf("delivered %d operations, want %d", len(delivered), writers*perWriter)
	}
	seen := make(map[string]bool)
	last := make(map[byte]string)
	for _, op := range delivered {
		id := op.Payload.ExhibitID
		if seen[id] {
			t.Fatalf("operation %s delivered twice", id)
		}
		seen[id] = true
		if prev := last[id[0]]; prev != "" && prev > id {
			t.Fatalf("writer %c out of order: %s after %s", id[0], id, prev)
		}
		last[id[0]] = id
	}
}

func TestQueue_RequeuePutsBatchFirst(t *testing.T) {
	q := Open(storage.NewMemory(), "u1", Options{})
	q.Enqueue(AddFavourite, exhibit("A"))
	q.Enqueue(AddFavourite, exhibit("B"))
	batch := q.Drain()
	q.Enqueue(AddFavourite, exhibit("C"))

	q.Requeue(batch)

	if got := fmt.Sprint(ids(q.PeekAll())); got != "[A B C]" {
		t.Fatalf("queue after requeue = %s, want [A B C]", got)
	}
}

func TestQueue_PersistsAndClears(t *testing.T) {
	kv := storage.NewMemory()
	q := Open(kv, "u1", Options{})
	q.Enqueue(RateExhibit, museum.OperationPayload{ExhibitID: "42", Rating: 5})

	reopened := Open(kv, "u1", Options{})
	ops := reopened.PeekAll()
	if len(ops) != 1 || ops[0].Kind != RateExhibit || ops[0].Payload.Rating != 5 {
		t.Fatalf("reopened queue = %#v", ops)
	}

	reopened.Clear()
	if _, ok, _ := kv.Get("pending:u1"); ok {
		t.Fatal("durable key survived Clear")
	}
	if reopened.Len() != 0 {
		t.Fatalf("Len after Clear = %d", reopened.Len())
	}
}

func TestOperation_Wire(t *testing.T) {
	op := Operation{ID: "x", Kind: RemoveFavourite, Payload: exhibit("42"), LocalTimestamp: time.Unix(10, 0)}
	w := op.Wire()
	if w.ID != "x" || w.Kind != "RemoveFavourite" || w.Payload.ExhibitID != "42" || !w.LocalTimestamp.Equal(op.LocalTimestamp) {
		t.Fatalf("Wire = %#v", w)
	}
}

func TestQueue_InFlightUntilAcked(t *testing.T) {
	kv := storage.NewMemory()
	q := Open(kv, "u1", Options{})
	q.Enqueue(AddFavourite, exhibit("42"))
	q.Enqueue(RateExhibit, exhibit("7"))

	batch := q.Drain()
	if q.Len() != 0 || q.Outstanding() != 2 {
		t.Fatalf("Len = %d, Outstanding = %d; want 0, 2", q.Len(), q.Outstanding())
	}
	if !q.HasPendingFor("42") {
		t.Fatal("drained operation not reported pending while in flight")
	}

	// A crash before the batch settles replays it on the next start.
	if got := fmt.Sprint(ids(Open(kv, "u1", Options{}).PeekAll())); got != "[42 7]" {
		t.Fatalf("reopened queue = %s, want [42 7]", got)
	}

	q.Ack(batch[:1])
	if q.HasPendingFor("42") || !q.HasPendingFor("7") {
		t.Fatal("Ack settled the wrong operations")
	}
	q.Ack(batch[1:])
	if q.Outstanding() != 0 {
		t.Fatalf("Outstanding = %d after Ack, want 0", q.Outstanding())
	}
	if got := Open(kv, "u1", Options{}).Len(); got != 0 {
		t.Fatalf("reopened queue has %d ops after Ack, want 0", got)
	}
}

func TestQueue_ClearDropsInFlight(t *testing.T) {
	q := Open(storage.NewMemory(), "u1", Options{})
	q.Enqueue(AddFavourite, exhibit("42"))
	q.Drain()

	q.Clear()
	if q.Outstanding() != 0 || q.HasPendingFor("42") {
		t.Fatal("Clear kept the in-flight batch")
	}
}
