package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wiemBe/RoboMap/internal/monitoring"
	"github.com/wiemBe/RoboMap/nav/engine"
)

const (
	recordTimeout = 2 * time.Second

	// Pending entries before new ones are dropped
	recordBuffer = 256
)

// Recorder writes engine events to a Store, tagging them with the current
// trip id. Observe only queues the entry; Run performs the writes.
type Recorder struct {
	store   Store
	entries chan Entry
	dropped atomic.Int64

	mu   sync.Mutex
	trip string
}

// NewRecorder creates a recorder over store
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store:   store,
		entries: make(chan Entry, recordBuffer),
	}
}

// Observe queues ev for writing. It never blocks: when the queue is full
// the entry is dropped and counted.
func (r *Recorder) Observe(ev engine.Event) {
	r.mu.Lock()
	if ev.Signal == engine.SignalStarted {
		r.trip = uuid.NewString()
	}
	trip := r.trip
	if engine.IsTerminal(ev.Signal) {
		r.trip = ""
	}
	r.mu.Unlock()

	select {
	case r.entries <- FromEvent(ev, trip):
	default:
		if r.dropped.Add(1) == 1 {
			monitoring.Logf("journal: queue full, dropping entries")
		}
	}
}

// Run writes queued entries until ctx is done, then writes whatever is
// still queued and returns. Store failures are logged, never returned.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case entry := <-r.entries:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.entries:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.store.Record(ctx, entry); err != nil {
		monitoring.Logf("journal: %v", err)
	}
}

// Dropped returns the number of entries dropped on a full queue
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Trip returns the id of the trip in progress, if any
func (r *Recorder) Trip() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trip
}

// Store returns the underlying store
func (r *Recorder) Store() Store { return r.store }
