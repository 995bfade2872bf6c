package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cursortrace/internal/grid"
	"cursortrace/internal/hook"
)

const defaultTraceCapacity = 256

// Options configures a Recorder. The zero value is usable: wall clock,
// default grid size, default trace capacity, default logger.
type Options struct {
	// Clock supplies timestamps. Defaults to time.Now.
	Clock func() time.Time
	// GridSize is the dwell-bucket edge length in pixels.
	GridSize int
	// TraceCapacity bounds the diagnostic ring buffer of recent raw events.
	TraceCapacity int
	// Logger receives lifecycle and teardown diagnostics.
	Logger *slog.Logger
}

// Recorder owns one bounded capture session: the event sequences, the
// dwell accumulator, and the statistics snapshot taken at stop. It is the
// single writer while recording; event handlers, Start, and Stop are
// serialized by one mutex so every per-event update applies atomically.
// A Recorder is not reused: discard it and create a new one for the next
// recording.
type Recorder struct {
	mu sync.RWMutex

	id       string
	state    State
	clock    func() time.Time
	bucketer grid.Bucketer
	logger   *slog.Logger
	source   hook.Source

	startTime time.Time
	movements []MovementSample
	clicks    []ClickEvent
	scrolls   []ScrollEvent
	dwell     DwellMap
	stats     Statistics

	hasPrev      bool
	prevX, prevY int
	lastMoveTime time.Time

	trace *RingBuffer
}

// NewRecorder creates an idle recorder.
func NewRecorder(opts Options) *Recorder {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	traceCap := opts.TraceCapacity
	if traceCap <= 0 {
		traceCap = defaultTraceCapacity
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		id:       uuid.New().String(),
		state:    StateIdle,
		clock:    clock,
		bucketer: grid.NewBucketer(opts.GridSize),
		logger:   logger,
		dwell:    make(DwellMap),
		trace:    NewRingBuffer(traceCap),
	}
}

// ID returns the session's unique identifier.
func (r *Recorder) ID() string {
	return r.id
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// IsRecording reports whether the session is currently ingesting events.
func (r *Recorder) IsRecording() bool {
	return r.State() == StateRecording
}

// Start transitions idle → recording: clears all sequences and the dwell
// map, latches the start time, then attaches the capture source. If the
// source cannot attach, the recorder rolls back to idle and returns the
// attach error (wrapping hook.ErrCaptureUnavailable).
func (r *Recorder) Start(source hook.Source) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return fmt.Errorf("cannot start session in state %q", r.state)
	}

	r.movements = nil
	r.clicks = nil
	r.scrolls = nil
	r.dwell = make(DwellMap)
	r.hasPrev = false
	r.lastMoveTime = time.Time{}
	r.stats = Statistics{}
	r.startTime = r.clock()
	r.state = StateRecording
	r.source = source
	r.mu.Unlock()

	if source != nil {
		if err := source.Attach(r); err != nil {
			r.mu.Lock()
			r.state = StateIdle
			r.source = nil
			r.mu.Unlock()
			return fmt.Errorf("attach capture source: %w", err)
		}
	}

	r.logger.Info("recording started", "session", r.id)
	return nil
}

// Stop transitions recording → stopped: detaches the capture source,
// freezes the sequences, and computes Statistics. Detach failures are
// logged, not fatal; the data already captured is still finalized.
// A second Stop is a no-op returning the same statistics.
func (r *Recorder) Stop() Statistics {
	r.mu.Lock()
	if r.state != StateRecording {
		stats := r.stats
		r.mu.Unlock()
		return stats
	}
	r.state = StateStopped
	source := r.source
	r.source = nil
	r.stats = Aggregate(r.movements, r.clicks, r.scrolls)
	stats := r.stats
	r.mu.Unlock()

	if source != nil {
		if err := source.Detach(); err != nil {
			r.logger.Warn("detach capture source", "session", r.id, "error", err)
		}
	}

	r.logger.Info("recording stopped", "session", r.id,
		"movements", stats.TotalMovements, "clicks", stats.TotalClicks)
	return stats
}

// HandleMove ingests a pointer movement. Outside the recording state it is
// a silent no-op, which absorbs late events delivered during listener
// teardown.
func (r *Recorder) HandleMove(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}

	// One clock read per notification: dwell, speed, and the stored
	// timestamp must agree on what "now" is.
	now := r.clock()

	speed := 0.0
	if r.hasPrev {
		elapsed := now.Sub(r.lastMoveTime).Seconds()
		cell := r.bucketer.Bucket(r.prevX, r.prevY)
		if elapsed > 0 {
			r.dwell[cell] += elapsed
			speed = distance(r.prevX, r.prevY, x, y) / elapsed
		}
	}

	r.movements = append(r.movements, MovementSample{
		X:         x,
		Y:         y,
		Timestamp: now.Sub(r.startTime).Seconds(),
		Speed:     speed,
	})
	r.prevX, r.prevY = x, y
	r.hasPrev = true
	r.lastMoveTime = now

	r.trace.Write(TraceEntry{Kind: TraceMove, X: x, Y: y, At: now})
}

// HandleClick records a button press or release verbatim.
func (r *Recorder) HandleClick(x, y int, button string, pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	now := r.clock()
	r.clicks = append(r.clicks, ClickEvent{
		X:         x,
		Y:         y,
		Button:    button,
		Pressed:   pressed,
		Timestamp: now.Sub(r.startTime).Seconds(),
	})
	r.trace.Write(TraceEntry{Kind: TraceClick, X: x, Y: y, Detail: button, At: now})
}

// HandleScroll records a scroll notification verbatim.
func (r *Recorder) HandleScroll(x, y int, dx, dy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	now := r.clock()
	r.scrolls = append(r.scrolls, ScrollEvent{
		X:         x,
		Y:         y,
		DX:        dx,
		DY:        dy,
		Timestamp: now.Sub(r.startTime).Seconds(),
	})
	r.trace.Write(TraceEntry{Kind: TraceScroll, X: x, Y: y, At: now})
}

// HandleCancel is the capture source's cancel signal; it stops the session.
func (r *Recorder) HandleCancel() {
	r.Stop()
}

// Movements returns a copy of the movement sequence.
func (r *Recorder) Movements() []MovementSample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MovementSample, len(r.movements))
	copy(out, r.movements)
	return out
}

// Clicks returns a copy of the click sequence.
func (r *Recorder) Clicks() []ClickEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClickEvent, len(r.clicks))
	copy(out, r.clicks)
	return out
}

// Scrolls returns a copy of the scroll sequence.
func (r *Recorder) Scrolls() []ScrollEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ScrollEvent, len(r.scrolls))
	copy(out, r.scrolls)
	return out
}

// Dwell returns a copy of the dwell map.
func (r *Recorder) Dwell() DwellMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dwell.Clone()
}

// Stats returns the statistics snapshot computed at stop. Before stop it
// is the zero record.
func (r *Recorder) Stats() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Trace returns the most recent raw events, oldest first.
func (r *Recorder) Trace() []TraceEntry {
	return r.trace.ReadAll()
}

// GridSize returns the dwell-bucket edge length the recorder was built with.
func (r *Recorder) GridSize() int {
	return r.bucketer.CellSize()
}

// Reconstruct builds a stopped recorder from externally loaded sequences.
// The sequences are adopted as-is (stored speeds are trusted, nothing is
// re-derived), the dwell map is taken over, and Statistics are aggregated
// from the adopted data. Nil slices become empty containers.
func Reconstruct(movements []MovementSample, clicks []ClickEvent, scrolls []ScrollEvent, dwell DwellMap, gridSize int) *Recorder {
	if dwell == nil {
		dwell = make(DwellMap)
	}
	r := NewRecorder(Options{GridSize: gridSize})
	r.movements = movements
	r.clicks = clicks
	r.scrolls = scrolls
	r.dwell = dwell
	r.state = StateStopped
	r.stats = Aggregate(movements, clicks, scrolls)
	return r
}
