package render

import (
	"fmt"
	"image"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"cursortrace/internal/snapshot"
)

const (
	dashPanelW = 440
	dashPanelH = 300
	dashMargin = 20
)

// Dashboard composes the individual artifacts and a statistics text panel
// into one image: heatmap, click map, and path plot on the left column,
// speed histogram, dwell histogram, and statistics on the right. Panels
// whose data is missing are left blank rather than failing the whole
// dashboard.
func (r Renderer) Dashboard(snap *snapshot.Snapshot, path string) error {
	if len(snap.Movements) == 0 {
		return fmt.Errorf("no movement data available")
	}

	width := dashMargin*3 + dashPanelW*2
	height := dashMargin*4 + dashPanelH*3
	canvas := newCanvas(width, height)

	type panel struct {
		build func() (*image.RGBA, error)
		col   int
		row   int
	}
	dwell := snap.DwellMap()
	panels := []panel{
		{func() (*image.RGBA, error) { return r.heatmapImage(snap.Movements) }, 0, 0},
		{func() (*image.RGBA, error) { return r.clickImage(snap.Clicks) }, 0, 1},
		{func() (*image.RGBA, error) { return r.pathImage(snap.Movements) }, 0, 2},
		{func() (*image.RGBA, error) { return r.speedImage(snap.Movements) }, 1, 0},
		{func() (*image.RGBA, error) { return r.dwellImage(dwell) }, 1, 1},
	}

	for _, p := range panels {
		img, err := p.build()
		if err != nil {
			continue // empty data set, leave the slot blank
		}
		placePanel(canvas, img, p.col, p.row)
	}

	drawStatsPanel(canvas, snap, dashMargin*2+dashPanelW, dashMargin*3+dashPanelH*2)

	return savePNG(path, canvas)
}

func placePanel(canvas *image.RGBA, img *image.RGBA, col, row int) {
	x0 := dashMargin + col*(dashPanelW+dashMargin)
	y0 := dashMargin + row*(dashPanelH+dashMargin)
	dst := image.Rect(x0, y0, x0+dashPanelW, y0+dashPanelH)
	xdraw.ApproxBiLinear.Scale(canvas, dst, img, img.Bounds(), xdraw.Src, nil)
}

func drawStatsPanel(canvas *image.RGBA, snap *snapshot.Snapshot, x0, y0 int) {
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
	}

	lines := strings.Split(strings.TrimRight(snap.Stats.Summary(), "\n"), "\n")
	lines = append(lines,
		"",
		fmt.Sprintf("Unique Hover Locations: %d", len(snap.Hover)),
		fmt.Sprintf("Session Token: %s", snap.Token),
	)
	lineHeight := basicfont.Face7x13.Metrics().Height.Ceil() + 4
	for i, line := range lines {
		drawer.Dot = fixed.P(x0+10, y0+20+i*lineHeight)
		drawer.DrawString(line)
	}
}
