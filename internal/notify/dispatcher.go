package notify

import (
	"sync"
	"sync/atomic"

	"kiitcms/backend/internal/logger"
)

// Dispatcher is a bounded event queue. When the queue is full the event is
// dropped and logged; the emitting write has already succeeded.
type Dispatcher struct {
	events  chan Event
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(size int) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{events: make(chan Event, size)}
}

// Emit enqueues ev without blocking. It reports whether the event was queued.
func (d *Dispatcher) Emit(ev Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.events <- ev:
		return true
	default:
		n := d.dropped.Add(1)
		logger.Warn().
			Str("kind", string(ev.Kind)).
			Str("complaint_id", ev.ComplaintID).
			Str("recipient", ev.Recipient.String()).
			Int64("dropped_total", n).
			Msg("notification queue full, event dropped")
		return false
	}
}

// Events is the consumer side of the queue.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting events. The consumer drains what is queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
}
