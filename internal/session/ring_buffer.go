package session

import (
	"sync"
	"time"
)

// TraceKind distinguishes raw event kinds in the diagnostic trace.
type TraceKind string

const (
	TraceMove   TraceKind = "move"
	TraceClick  TraceKind = "click"
	TraceScroll TraceKind = "scroll"
)

// TraceEntry is one raw event retained for diagnostics.
type TraceEntry struct {
	Kind   TraceKind
	X, Y   int
	Detail string // button name for clicks
	At     time.Time
}

// RingBuffer is a fixed-capacity circular buffer of recent trace entries.
// It lets the status display show the tail of activity without holding the
// recorder lock or growing with the session.
type RingBuffer struct {
	mu       sync.RWMutex
	buf      []TraceEntry
	capacity int
	pos      int // next write position
	full     bool
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buf:      make([]TraceEntry, capacity),
		capacity: capacity,
	}
}

// Write adds an entry, overwriting the oldest once full.
func (rb *RingBuffer) Write(entry TraceEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.pos] = entry
	rb.pos = (rb.pos + 1) % rb.capacity
	if rb.pos == 0 {
		rb.full = true
	}
}

// ReadAll returns the retained entries in chronological order.
func (rb *RingBuffer) ReadAll() []TraceEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if !rb.full {
		result := make([]TraceEntry, rb.pos)
		copy(result, rb.buf[:rb.pos])
		return result
	}

	result := make([]TraceEntry, rb.capacity)
	copy(result, rb.buf[rb.pos:])
	copy(result[rb.capacity-rb.pos:], rb.buf[:rb.pos])
	return result
}
