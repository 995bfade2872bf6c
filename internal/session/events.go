// Package session implements the event-capture pipeline: the in-memory
// event model, the recording state machine that ingests pointer events and
// derives speed and hover dwell incrementally, and the aggregation of a
// finished session into an immutable statistics record.
package session

import (
	"cursortrace/internal/grid"
)

// State represents the lifecycle state of a capture session.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

// MovementSample is one recorded pointer position. Speed is the
// instantaneous speed in pixels/second relative to the previous sample,
// zero for the first sample of a session.
type MovementSample struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Timestamp float64 `json:"timestamp"` // seconds since session start
	Speed     float64 `json:"speed"`
}

// ClickEvent is one button press or release. Press and release are stored
// as separate entries distinguished by Pressed.
type ClickEvent struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Button    string  `json:"button"`
	Pressed   bool    `json:"pressed"`
	Timestamp float64 `json:"timestamp"`
}

// ScrollEvent is one scroll notification with its wheel deltas.
type ScrollEvent struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	DX        float64 `json:"dx"`
	DY        float64 `json:"dy"`
	Timestamp float64 `json:"timestamp"`
}

// DwellMap accumulates hover time per grid cell. The duration attributed
// to a cell is the total time the pointer's previous recorded position sat
// in that cell before moving to a new sample.
type DwellMap map[grid.Cell]float64

// Total returns the summed dwell duration across all cells.
func (d DwellMap) Total() float64 {
	var sum float64
	for _, v := range d {
		sum += v
	}
	return sum
}

// Clone returns an independent copy of the map.
func (d DwellMap) Clone() DwellMap {
	out := make(DwellMap, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
