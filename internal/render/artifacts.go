package render

import (
	"errors"
	"fmt"
	"path/filepath"

	"cursortrace/internal/snapshot"
)

// RenderAll writes every artifact for a snapshot into dir, named by the
// session token. It returns the paths that were written; artifacts whose
// data set is empty are skipped and reported in the joined error, which
// callers treat as non-fatal.
func (r Renderer) RenderAll(snap *snapshot.Snapshot, dir string) ([]string, error) {
	dwell := snap.DwellMap()

	artifacts := []struct {
		name   string
		render func(string) error
	}{
		{"movement_heatmap", func(p string) error { return r.MovementHeatmap(snap.Movements, p) }},
		{"click_map", func(p string) error { return r.ClickMap(snap.Clicks, p) }},
		{"speed_histogram", func(p string) error { return r.SpeedHistogram(snap.Movements, p) }},
		{"dwell_histogram", func(p string) error { return r.DwellHistogram(dwell, p) }},
		{"movement_path", func(p string) error { return r.PathPlot(snap.Movements, p) }},
		{"dashboard", func(p string) error { return r.Dashboard(snap, p) }},
	}

	var written []string
	var errs []error
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name+"_"+snap.Token+".png")
		if err := a.render(path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}
