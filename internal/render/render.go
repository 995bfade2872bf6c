// Package render turns a frozen capture session into PNG artifacts:
// movement heatmap, click map, speed and dwell histograms, path plot, and
// a composite dashboard. Rendering only ever consumes stopped, immutable
// session data; it never runs against an active recording.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"cursortrace/internal/session"
)

const (
	// heatBins is the histogram resolution of the movement heatmap,
	// independent of the dwell grid.
	heatBins = 50
	// histogramBins is the bar count of the speed and dwell histograms.
	histogramBins = 30
	// panelWidth is the rendered width of a single artifact.
	panelWidth = 700
)

var (
	background = color.RGBA{24, 24, 28, 255}
	axisColor  = color.RGBA{90, 90, 100, 255}
	pathColor  = color.RGBA{80, 140, 255, 255}
	startColor = color.RGBA{60, 200, 90, 255}
	endColor   = color.RGBA{230, 70, 70, 255}
	speedBar   = color.RGBA{90, 180, 90, 255}
	dwellBar   = color.RGBA{230, 160, 60, 255}
	clickColor = color.RGBA{220, 60, 60, 255}
	textColor  = color.RGBA{220, 220, 225, 255}
)

// Renderer produces artifacts for sessions captured on a screen of the
// given dimensions.
type Renderer struct {
	Width  int // screen width in pixels
	Height int // screen height in pixels
}

// New creates a renderer for the given screen dimensions.
func New(width, height int) Renderer {
	return Renderer{Width: width, Height: height}
}

// MovementHeatmap renders a smoothed 2D histogram of pointer positions.
func (r Renderer) MovementHeatmap(movements []session.MovementSample, path string) error {
	img, err := r.heatmapImage(movements)
	if err != nil {
		return err
	}
	return savePNG(path, img)
}

// ClickMap renders press-only click positions as filled markers.
func (r Renderer) ClickMap(clicks []session.ClickEvent, path string) error {
	img, err := r.clickImage(clicks)
	if err != nil {
		return err
	}
	return savePNG(path, img)
}

// SpeedHistogram renders the distribution of positive sample speeds.
func (r Renderer) SpeedHistogram(movements []session.MovementSample, path string) error {
	img, err := r.speedImage(movements)
	if err != nil {
		return err
	}
	return savePNG(path, img)
}

// DwellHistogram renders the distribution of per-cell dwell durations.
func (r Renderer) DwellHistogram(dwell session.DwellMap, path string) error {
	img, err := r.dwellImage(dwell)
	if err != nil {
		return err
	}
	return savePNG(path, img)
}

// PathPlot renders the movement path as a polyline with start and end
// markers, sampling long sessions down to at most 1000 points.
func (r Renderer) PathPlot(movements []session.MovementSample, path string) error {
	img, err := r.pathImage(movements)
	if err != nil {
		return err
	}
	return savePNG(path, img)
}

func (r Renderer) heatmapImage(movements []session.MovementSample) (*image.RGBA, error) {
	if len(movements) == 0 {
		return nil, fmt.Errorf("no movement data available")
	}

	bins := make([][]float64, heatBins)
	for i := range bins {
		bins[i] = make([]float64, heatBins)
	}
	for _, m := range movements {
		bx := clampIndex(m.X*heatBins/r.Width, heatBins)
		by := clampIndex(m.Y*heatBins/r.Height, heatBins)
		bins[by][bx]++
	}
	gaussianBlur(bins)

	return scaleTo(heatImage(bins), r.outWidth(), r.outHeight()), nil
}

func (r Renderer) clickImage(clicks []session.ClickEvent) (*image.RGBA, error) {
	img := newCanvas(r.outWidth(), r.outHeight())
	drawn := false
	for _, c := range clicks {
		if !c.Pressed {
			continue
		}
		drawn = true
		x := c.X * r.outWidth() / r.Width
		y := c.Y * r.outHeight() / r.Height
		fillCircle(img, x, y, 4, clickColor)
	}
	if !drawn {
		return nil, fmt.Errorf("no click data available")
	}
	return img, nil
}

func (r Renderer) speedImage(movements []session.MovementSample) (*image.RGBA, error) {
	var speeds []float64
	for _, m := range movements {
		if m.Speed > 0 {
			speeds = append(speeds, m.Speed)
		}
	}
	if len(speeds) == 0 {
		return nil, fmt.Errorf("no speed data available")
	}
	return histogram(speeds, r.outWidth(), r.outHeight(), speedBar), nil
}

func (r Renderer) dwellImage(dwell session.DwellMap) (*image.RGBA, error) {
	if len(dwell) == 0 {
		return nil, fmt.Errorf("no hover data available")
	}
	durations := make([]float64, 0, len(dwell))
	for _, d := range dwell {
		durations = append(durations, d)
	}
	return histogram(durations, r.outWidth(), r.outHeight(), dwellBar), nil
}

func (r Renderer) pathImage(movements []session.MovementSample) (*image.RGBA, error) {
	if len(movements) < 2 {
		return nil, fmt.Errorf("not enough movement data for a path plot")
	}

	step := 1
	if len(movements) > 1000 {
		step = len(movements) / 1000
	}
	img := newCanvas(r.outWidth(), r.outHeight())

	var sampled []session.MovementSample
	for i := 0; i < len(movements); i += step {
		sampled = append(sampled, movements[i])
	}

	for i := 1; i < len(sampled); i++ {
		x1 := sampled[i-1].X * r.outWidth() / r.Width
		y1 := sampled[i-1].Y * r.outHeight() / r.Height
		x2 := sampled[i].X * r.outWidth() / r.Width
		y2 := sampled[i].Y * r.outHeight() / r.Height
		drawLine(img, x1, y1, x2, y2, pathColor)
	}
	first, last := sampled[0], sampled[len(sampled)-1]
	fillCircle(img, first.X*r.outWidth()/r.Width, first.Y*r.outHeight()/r.Height, 5, startColor)
	fillCircle(img, last.X*r.outWidth()/r.Width, last.Y*r.outHeight()/r.Height, 5, endColor)

	return img, nil
}

// Artifact output keeps the screen aspect ratio at a fixed width.
func (r Renderer) outWidth() int { return panelWidth }

func (r Renderer) outHeight() int {
	return int(math.Round(panelWidth * float64(r.Height) / float64(r.Width)))
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// gaussianBlur applies a separable 5-tap gaussian (sigma ≈ 1) in place.
func gaussianBlur(bins [][]float64) {
	kernel := []float64{1, 4, 6, 4, 1}
	var ksum float64 = 16

	rows := len(bins)
	cols := len(bins[0])
	tmp := make([][]float64, rows)
	for i := range tmp {
		tmp[i] = make([]float64, cols)
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var acc float64
			for k := -2; k <= 2; k++ {
				acc += kernel[k+2] * bins[y][clampIndex(x+k, cols)]
			}
			tmp[y][x] = acc / ksum
		}
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var acc float64
			for k := -2; k <= 2; k++ {
				acc += kernel[k+2] * tmp[clampIndex(y+k, rows)][x]
			}
			bins[y][x] = acc / ksum
		}
	}
}

// heatImage maps a 2D intensity grid through a "hot" colormap.
func heatImage(bins [][]float64) *image.RGBA {
	rows := len(bins)
	cols := len(bins[0])

	var max float64
	for y := range bins {
		for x := range bins[y] {
			if bins[y][x] > max {
				max = bins[y][x]
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := 0.0
			if max > 0 {
				v = bins[y][x] / max
			}
			img.SetRGBA(x, y, hotColor(v))
		}
	}
	return img
}

// hotColor maps [0,1] through black → red → yellow → white.
func hotColor(v float64) color.RGBA {
	v = math.Max(0, math.Min(1, v))
	switch {
	case v < 1.0/3:
		return color.RGBA{uint8(v * 3 * 255), 0, 0, 255}
	case v < 2.0/3:
		return color.RGBA{255, uint8((v - 1.0/3) * 3 * 255), 0, 255}
	default:
		return color.RGBA{255, 255, uint8((v - 2.0/3) * 3 * 255), 255}
	}
}

func scaleTo(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func newCanvas(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, background)
		}
	}
	return img
}

func histogram(values []float64, width, height int, c color.RGBA) *image.RGBA {
	img := newCanvas(width, height)

	var max float64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}

	counts := make([]int, histogramBins)
	peak := 0
	for _, v := range values {
		b := clampIndex(int(v/max*float64(histogramBins)), histogramBins)
		counts[b]++
		if counts[b] > peak {
			peak = counts[b]
		}
	}

	margin := 20
	plotW := width - 2*margin
	plotH := height - 2*margin
	barW := plotW / histogramBins
	for i, n := range counts {
		if n == 0 {
			continue
		}
		barH := n * plotH / peak
		x0 := margin + i*barW
		for x := x0; x < x0+barW-1; x++ {
			for y := height - margin - barH; y < height-margin; y++ {
				img.SetRGBA(x, y, c)
			}
		}
	}

	// Axes.
	for x := margin; x < width-margin; x++ {
		img.SetRGBA(x, height-margin, axisColor)
	}
	for y := margin; y < height-margin; y++ {
		img.SetRGBA(margin, y, axisColor)
	}
	return img
}

func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy
	for {
		if image.Pt(x1, y1).In(img.Bounds()) {
			img.SetRGBA(x1, y1, c)
		}
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius && image.Pt(cx+x, cy+y).In(img.Bounds()) {
				img.SetRGBA(cx+x, cy+y, c)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func savePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
