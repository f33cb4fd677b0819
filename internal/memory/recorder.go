package memory

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/sirenlabs/siren/go-pipeline/internal/metrics"
)

// #region recorder

// Recorder buffers record appends off the decode hot path. Record never
// blocks: a full buffer drops the record (counted) and a failing sink is a
// degraded mode, never a decoding failure. A single writer goroutine
// preserves per-session append order.
type Recorder struct {
	store   *Store
	ch      chan EmissionRecord
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards ch against send-after-close
	closed  bool
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRecorder starts a recorder over the given store. buffer <= 0 uses a
// default of 256 pending records.
func NewRecorder(store *Store, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		store: store,
		ch:    make(chan EmissionRecord, buffer),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for rec := range r.ch {
		if _, err := r.store.Append(rec); err != nil {
			r.failed.Add(1)
			metrics.Default().IncDegradation("sink_unavailable")
			log.Printf("[MEMORY] append failed (session=%s step=%d): %v: %v",
				rec.SessionID, rec.StepIndex, ErrSinkUnavailable, err)
		}
	}
}

// #endregion recorder

// #region record

// Record enqueues one emission record, fire-and-forget. Returns false when
// the record was dropped (closed recorder or full buffer).
func (r *Recorder) Record(rec EmissionRecord) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		metrics.Default().IncDegradation("record_dropped")
		return false
	}
	select {
	case r.ch <- rec:
		return true
	default:
		r.dropped.Add(1)
		metrics.Default().IncDegradation("record_dropped")
		log.Printf("[MEMORY] buffer full, dropped record (session=%s step=%d)", rec.SessionID, rec.StepIndex)
		return false
	}
}

// Dropped returns the number of records dropped due to backpressure.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Failed returns the number of records lost to sink failures.
func (r *Recorder) Failed() int64 { return r.failed.Load() }

// Close drains pending records and stops the writer.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	r.wg.Wait()
}

// #endregion record
