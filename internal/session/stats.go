package session

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// Statistics is the immutable summary of a finished session. It is
// computed once at stop (or rebuilt after a load) and never mutated
// afterward.
type Statistics struct {
	TotalTime      float64 `json:"total_time"`     // seconds
	TotalDistance  float64 `json:"total_distance"` // pixels
	AvgSpeed       float64 `json:"avg_speed"`      // pixels/second
	MaxSpeed       float64 `json:"max_speed"`      // pixels/second
	TotalClicks    int     `json:"total_clicks"`   // press-only count
	TotalMovements int     `json:"total_movements"`
	ScrollEvents   int     `json:"scroll_events"`
}

// Aggregate derives Statistics from frozen event sequences. It is pure and
// never fails: empty input yields the zero record.
func Aggregate(movements []MovementSample, clicks []ClickEvent, scrolls []ScrollEvent) Statistics {
	stats := Statistics{
		TotalMovements: len(movements),
		ScrollEvents:   len(scrolls),
	}

	if len(movements) > 0 {
		stats.TotalTime = movements[len(movements)-1].Timestamp
	}

	for i := 1; i < len(movements); i++ {
		stats.TotalDistance += distance(
			movements[i-1].X, movements[i-1].Y,
			movements[i].X, movements[i].Y)
	}

	// Only strictly positive speeds enter the mean and max; the first
	// sample and clamped zero-delta samples carry speed 0.
	var speedSum float64
	var speedCount int
	for _, m := range movements {
		if m.Speed > 0 {
			speedSum += m.Speed
			speedCount++
			if m.Speed > stats.MaxSpeed {
				stats.MaxSpeed = m.Speed
			}
		}
	}
	if speedCount > 0 {
		stats.AvgSpeed = speedSum / float64(speedCount)
	}

	for _, c := range clicks {
		if c.Pressed {
			stats.TotalClicks++
		}
	}

	return stats
}

// Summary renders the statistics as the human-readable block shown by the
// report command.
func (s Statistics) Summary() string {
	var b strings.Builder
	b.WriteString("Session Statistics:\n\n")
	fmt.Fprintf(&b, "Total Time:      %.1f seconds\n", s.TotalTime)
	fmt.Fprintf(&b, "Total Distance:  %s pixels\n", humanize.Comma(int64(math.Round(s.TotalDistance))))
	fmt.Fprintf(&b, "Average Speed:   %.1f pixels/second\n", s.AvgSpeed)
	fmt.Fprintf(&b, "Max Speed:       %.1f pixels/second\n", s.MaxSpeed)
	fmt.Fprintf(&b, "Total Clicks:    %s\n", humanize.Comma(int64(s.TotalClicks)))
	fmt.Fprintf(&b, "Mouse Movements: %s\n", humanize.Comma(int64(s.TotalMovements)))
	fmt.Fprintf(&b, "Scroll Events:   %s\n", humanize.Comma(int64(s.ScrollEvents)))
	return b.String()
}

func distance(x1, y1, x2, y2 int) float64 {
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	return math.Sqrt(dx*dx + dy*dy)
}
