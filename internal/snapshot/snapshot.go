// Package snapshot owns the persisted shape of a capture session: five
// independent JSON documents correlated by a shared token, plus the
// reconstruction of a stopped session from loaded documents. File I/O
// failures never corrupt in-memory state.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cursortrace/internal/grid"
	"cursortrace/internal/session"
)

// Error taxonomy for the persistence boundary.
var (
	// ErrPersistence marks a failed document read or write.
	ErrPersistence = errors.New("snapshot persistence error")
	// ErrMalformedSnapshot marks a document that failed shape validation.
	ErrMalformedSnapshot = errors.New("malformed snapshot document")
)

// HoverCell is the flattened form of one dwell-map entry.
type HoverCell struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Duration float64 `json:"duration"`
}

// Snapshot is the full persisted artifact set for one session.
type Snapshot struct {
	Token     string
	Movements []session.MovementSample
	Clicks    []session.ClickEvent
	Scrolls   []session.ScrollEvent
	Hover     []HoverCell
	Stats     session.Statistics
}

// NewToken produces the shared document token: the wall-clock second the
// session was saved, with a short unique suffix so two sessions saved
// within the same second never collide.
func NewToken(now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.New().String()[:8]
}

// FromRecorder freezes a stopped recorder into a Snapshot.
func FromRecorder(rec *session.Recorder, token string) (*Snapshot, error) {
	if rec.State() != session.StateStopped {
		return nil, fmt.Errorf("session %s is %s, not stopped", rec.ID(), rec.State())
	}
	return &Snapshot{
		Token:     token,
		Movements: rec.Movements(),
		Clicks:    rec.Clicks(),
		Scrolls:   rec.Scrolls(),
		Hover:     flattenDwell(rec.Dwell()),
		Stats:     rec.Stats(),
	}, nil
}

func flattenDwell(dwell session.DwellMap) []HoverCell {
	cells := make([]HoverCell, 0, len(dwell))
	for cell, duration := range dwell {
		cells = append(cells, HoverCell{X: cell.X, Y: cell.Y, Duration: duration})
	}
	return cells
}

// DwellMap rebuilds the grid-keyed dwell map from the flattened hover list.
// Duplicate cells accumulate.
func (s *Snapshot) DwellMap() session.DwellMap {
	dwell := make(session.DwellMap, len(s.Hover))
	for _, h := range s.Hover {
		dwell[grid.Cell{X: h.X, Y: h.Y}] += h.Duration
	}
	return dwell
}

// Reconstruct builds a stopped session from the snapshot. Sequences are
// adopted as-is (stored speeds are trusted); statistics are re-aggregated
// from the events rather than read back, so they are re-derivable from the
// persisted sequences alone.
func (s *Snapshot) Reconstruct(gridSize int) *session.Recorder {
	return session.Reconstruct(s.Movements, s.Clicks, s.Scrolls, s.DwellMap(), gridSize)
}

// Document filename helpers.
func movementsFile(token string) string { return "movements_" + token + ".json" }
func clicksFile(token string) string    { return "clicks_" + token + ".json" }
func scrollsFile(token string) string   { return "scrolls_" + token + ".json" }
func hoverFile(token string) string     { return "hover_" + token + ".json" }
func statsFile(token string) string     { return "stats_" + token + ".json" }

// Save writes the five documents into dir. A failure on one document does
// not prevent the others from being written; all failures are joined into
// a single error wrapping ErrPersistence.
func (s *Snapshot) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", ErrPersistence, err)
	}

	// Empty slices serialize as [] rather than null.
	docs := []struct {
		name string
		v    any
	}{
		{movementsFile(s.Token), orEmpty(s.Movements)},
		{clicksFile(s.Token), orEmpty(s.Clicks)},
		{scrollsFile(s.Token), orEmpty(s.Scrolls)},
		{hoverFile(s.Token), orEmpty(s.Hover)},
		{statsFile(s.Token), s.Stats},
	}

	var errs []error
	for _, doc := range docs {
		if err := writeDocument(filepath.Join(dir, doc.name), doc.v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %v", doc.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrPersistence, errors.Join(errs...))
	}
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads the document set for token from dir. The movements document
// is required; clicks, scrolls, and hover default to empty when absent.
// Every document present is schema-validated before decoding; a validation
// failure aborts the whole load with ErrMalformedSnapshot and leaves no
// partial result behind. Statistics are re-aggregated, not read back.
func Load(dir, token string) (*Snapshot, error) {
	snap := &Snapshot{Token: token}

	if err := readDocument(filepath.Join(dir, movementsFile(token)), movementsSchema, &snap.Movements); err != nil {
		return nil, err
	}

	if err := readOptional(filepath.Join(dir, clicksFile(token)), clicksSchema, &snap.Clicks); err != nil {
		return nil, err
	}
	if err := readOptional(filepath.Join(dir, scrollsFile(token)), scrollsSchema, &snap.Scrolls); err != nil {
		return nil, err
	}
	if err := readOptional(filepath.Join(dir, hoverFile(token)), hoverSchema, &snap.Hover); err != nil {
		return nil, err
	}

	snap.Stats = session.Aggregate(snap.Movements, snap.Clicks, snap.Scrolls)
	return snap, nil
}

func readDocument(path string, schema documentSchema, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrPersistence, filepath.Base(path), err)
	}
	if err := schema.validate(data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, filepath.Base(path), err)
	}
	return nil
}

func readOptional(path string, schema documentSchema, out any) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return readDocument(path, schema, out)
}
