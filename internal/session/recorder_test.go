package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cursortrace/internal/grid"
	"cursortrace/internal/hook"
)

// fakeClock is a manually advanced clock for deterministic timing.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRecorder(clock *fakeClock) *Recorder {
	return NewRecorder(Options{Clock: clock.Now, GridSize: 10})
}

// failingSource always refuses to attach.
type failingSource struct{}

func (failingSource) Attach(hook.Handler) error {
	return fmt.Errorf("no input backend: %w", hook.ErrCaptureUnavailable)
}
func (failingSource) Detach() error { return nil }

// flakySource attaches fine but fails to detach.
type flakySource struct{ attached bool }

func (s *flakySource) Attach(hook.Handler) error { s.attached = true; return nil }
func (s *flakySource) Detach() error             { return errors.New("teardown raced") }

func TestRecorderLifecycle(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)

	assert.Equal(t, StateIdle, rec.State())
	assert.False(t, rec.IsRecording())

	require.NoError(t, rec.Start(nil))
	assert.Equal(t, StateRecording, rec.State())
	assert.True(t, rec.IsRecording())

	rec.Stop()
	assert.Equal(t, StateStopped, rec.State())
	assert.False(t, rec.IsRecording())
}

func TestStartFailsWhenNotIdle(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)

	require.NoError(t, rec.Start(nil))
	assert.Error(t, rec.Start(nil))

	rec.Stop()
	assert.Error(t, rec.Start(nil), "stopped sessions are not reused")
}

func TestStartRollsBackOnAttachFailure(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)

	err := rec.Start(failingSource{})
	require.Error(t, err)
	assert.ErrorIs(t, err, hook.ErrCaptureUnavailable)
	assert.Equal(t, StateIdle, rec.State(), "failed start must roll back to idle")

	// The session is still usable after a rollback.
	require.NoError(t, rec.Start(nil))
}

func TestDetachFailureStillFinalizes(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	src := &flakySource{}

	require.NoError(t, rec.Start(src))
	rec.HandleMove(1, 2)

	stats := rec.Stop()
	assert.Equal(t, StateStopped, rec.State())
	assert.Equal(t, 1, stats.TotalMovements)
}

func TestScenarioThreeMoves(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	rec.HandleMove(0, 0)
	clock.Advance(time.Second)
	rec.HandleMove(10, 0)
	clock.Advance(time.Second)
	rec.HandleMove(10, 10)

	stats := rec.Stop()

	assert.Equal(t, 3, stats.TotalMovements)
	assert.InDelta(t, 20.0, stats.TotalDistance, 1e-9)
	assert.InDelta(t, 10.0, stats.AvgSpeed, 1e-9)
	assert.InDelta(t, 10.0, stats.MaxSpeed, 1e-9)
	assert.InDelta(t, 2.0, stats.TotalTime, 1e-9)

	moves := rec.Movements()
	require.Len(t, moves, 3)
	assert.Zero(t, moves[0].Speed)
	assert.InDelta(t, 10.0, moves[1].Speed, 1e-9)
	assert.InDelta(t, 10.0, moves[2].Speed, 1e-9)
	assert.InDelta(t, 0.0, moves[0].Timestamp, 1e-9)
	assert.InDelta(t, 1.0, moves[1].Timestamp, 1e-9)
	assert.InDelta(t, 2.0, moves[2].Timestamp, 1e-9)
}

func TestScenarioEmptySession(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	stats := rec.Stop()
	assert.Equal(t, Statistics{}, stats, "empty session yields the zero record")
}

func TestScenarioPressRelease(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	rec.HandleClick(5, 5, "left", true)
	clock.Advance(100 * time.Millisecond)
	rec.HandleClick(5, 5, "left", false)

	stats := rec.Stop()
	assert.Equal(t, 1, stats.TotalClicks, "click count is press-only")
	assert.Len(t, rec.Clicks(), 2, "press and release are both stored")
}

func TestScenarioDwellBucketing(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	rec.HandleMove(12, 17)
	clock.Advance(500 * time.Millisecond)
	rec.HandleMove(14, 19)
	rec.Stop()

	dwell := rec.Dwell()
	require.Len(t, dwell, 1)
	assert.InDelta(t, 0.5, dwell[grid.Cell{X: 10, Y: 10}], 1e-9)
}

func TestDwellAttributesPreviousCell(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	rec.HandleMove(5, 5) // previous position in cell (0,0)
	clock.Advance(2 * time.Second)
	rec.HandleMove(100, 100) // dwell goes to where the pointer *was*
	rec.Stop()

	dwell := rec.Dwell()
	require.Len(t, dwell, 1)
	assert.InDelta(t, 2.0, dwell[grid.Cell{X: 0, Y: 0}], 1e-9)
}

func TestDwellTotalMatchesTotalTime(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	deltas := []time.Duration{
		130 * time.Millisecond, 70 * time.Millisecond, 450 * time.Millisecond,
		10 * time.Millisecond, 900 * time.Millisecond, 333 * time.Millisecond,
	}
	rec.HandleMove(0, 0)
	x, y := 0, 0
	for i, d := range deltas {
		clock.Advance(d)
		x += 17 * (i + 1)
		y += 11
		rec.HandleMove(x, y)
	}
	stats := rec.Stop()

	assert.InDelta(t, stats.TotalTime, rec.Dwell().Total(), 1e-9,
		"dwell total must equal session time for a move-only session")
}

func TestZeroElapsedClampsSpeed(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	rec.HandleMove(0, 0)
	rec.HandleMove(100, 100) // clock did not advance

	moves := rec.Movements()
	require.Len(t, moves, 2)
	assert.Zero(t, moves[1].Speed, "zero elapsed time must not divide")
	assert.Empty(t, rec.Dwell(), "no dwell attribution without elapsed time")
}

func TestEventsIgnoredOutsideRecording(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)

	// Idle: nothing recorded.
	rec.HandleMove(1, 1)
	rec.HandleClick(1, 1, "left", true)
	rec.HandleScroll(1, 1, 0, 1)
	assert.Empty(t, rec.Movements())

	require.NoError(t, rec.Start(nil))
	rec.HandleMove(2, 2)
	rec.Stop()

	// Stopped: late events from listener teardown are silently dropped.
	rec.HandleMove(3, 3)
	rec.HandleClick(3, 3, "left", true)
	rec.HandleScroll(3, 3, 1, 0)

	assert.Len(t, rec.Movements(), 1)
	assert.Empty(t, rec.Clicks())
	assert.Empty(t, rec.Scrolls())
}

func TestStopIdempotent(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	rec.HandleMove(0, 0)
	clock.Advance(time.Second)
	rec.HandleMove(30, 40)

	first := rec.Stop()
	second := rec.Stop()
	assert.Equal(t, first, second)
	assert.Equal(t, first, rec.Stats())
}

func TestCancelSignalStops(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	rec.HandleMove(10, 10)
	rec.HandleCancel()

	assert.Equal(t, StateStopped, rec.State())
	assert.Equal(t, 1, rec.Stats().TotalMovements)
}

func TestScrollRecordedVerbatim(t *testing.T) {
	clock := newFakeClock()
	rec := newTestRecorder(clock)
	require.NoError(t, rec.Start(nil))

	clock.Advance(250 * time.Millisecond)
	rec.HandleScroll(40, 50, -1.5, 2.0)
	stats := rec.Stop()

	scrolls := rec.Scrolls()
	require.Len(t, scrolls, 1)
	assert.Equal(t, 40, scrolls[0].X)
	assert.Equal(t, 50, scrolls[0].Y)
	assert.InDelta(t, -1.5, scrolls[0].DX, 1e-9)
	assert.InDelta(t, 2.0, scrolls[0].DY, 1e-9)
	assert.InDelta(t, 0.25, scrolls[0].Timestamp, 1e-9)
	assert.Equal(t, 1, stats.ScrollEvents)
}

func TestScriptSourceDrivesRecorder(t *testing.T) {
	rec := NewRecorder(Options{GridSize: 10})
	src := &hook.ScriptSource{Steps: []hook.Step{
		{Kind: hook.StepMove, X: 10, Y: 10},
		{Kind: hook.StepMove, X: 20, Y: 20},
		{Kind: hook.StepClick, X: 20, Y: 20, Button: "left", Pressed: true},
		{Kind: hook.StepClick, X: 20, Y: 20, Button: "left", Pressed: false},
		{Kind: hook.StepScroll, X: 20, Y: 20, DY: 1},
		{Kind: hook.StepCancel},
	}}

	require.NoError(t, rec.Start(src))

	deadline := time.After(2 * time.Second)
	for rec.State() != StateStopped {
		select {
		case <-deadline:
			t.Fatal("script source never delivered the cancel signal")
		case <-time.After(time.Millisecond):
		}
	}

	stats := rec.Stats()
	assert.Equal(t, 2, stats.TotalMovements)
	assert.Equal(t, 1, stats.TotalClicks)
	assert.Equal(t, 1, stats.ScrollEvents)
}

func TestConcurrentHandlersAndStop(t *testing.T) {
	rec := NewRecorder(Options{GridSize: 10})
	require.NoError(t, rec.Start(nil))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				switch g {
				case 0:
					rec.HandleMove(i, i)
				case 1:
					rec.HandleClick(i, i, "left", i%2 == 0)
				case 2:
					rec.HandleScroll(i, i, 0, 1)
				case 3:
					rec.IsRecording()
				}
			}
		}(g)
	}
	wg.Wait()
	stats := rec.Stop()

	// The exact counts depend on scheduling before Stop; the invariant is
	// that the frozen sequences and the snapshot agree.
	assert.Equal(t, len(rec.Movements()), stats.TotalMovements)
	assert.Equal(t, len(rec.Scrolls()), stats.ScrollEvents)
	assert.Equal(t, rec.Stats(), stats)
}

func TestTraceBufferHoldsRecentEvents(t *testing.T) {
	clock := newFakeClock()
	rec := NewRecorder(Options{Clock: clock.Now, GridSize: 10, TraceCapacity: 4})
	require.NoError(t, rec.Start(nil))

	for i := 0; i < 10; i++ {
		rec.HandleMove(i, i)
	}
	rec.HandleClick(9, 9, "right", true)
	rec.Stop()

	trace := rec.Trace()
	require.Len(t, trace, 4)
	last := trace[len(trace)-1]
	assert.Equal(t, TraceClick, last.Kind)
	assert.Equal(t, "right", last.Detail)
}

func TestReconstructAdoptsSequences(t *testing.T) {
	movements := []MovementSample{
		{X: 0, Y: 0, Timestamp: 0, Speed: 0},
		{X: 10, Y: 0, Timestamp: 1, Speed: 42}, // stored speed is trusted as-is
	}
	dwell := DwellMap{grid.Cell{X: 0, Y: 0}: 1.0}

	rec := Reconstruct(movements, nil, nil, dwell, 10)

	assert.Equal(t, StateStopped, rec.State())
	assert.Equal(t, 2, rec.Stats().TotalMovements)
	assert.InDelta(t, 42.0, rec.Stats().MaxSpeed, 1e-9)
	assert.InDelta(t, 1.0, rec.Dwell().Total(), 1e-9)
	assert.Empty(t, rec.Clicks())
	assert.Empty(t, rec.Scrolls())

	// Reconstructed sessions accept no further events.
	rec.HandleMove(99, 99)
	assert.Equal(t, 2, len(rec.Movements()))
}
