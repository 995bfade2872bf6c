package hook

import (
	"math/rand"
	"sync"
	"time"
)

// StepKind tags one scripted pointer action.
type StepKind string

const (
	StepMove   StepKind = "move"
	StepClick  StepKind = "click"
	StepScroll StepKind = "scroll"
	StepCancel StepKind = "cancel"
)

// Step is a single scripted pointer action, optionally delayed relative to
// the previous one.
type Step struct {
	Kind    StepKind
	X, Y    int
	Button  string
	Pressed bool
	DX, DY  float64
	Delay   time.Duration
}

// ScriptSource replays a fixed sequence of steps to its handler on a
// dedicated goroutine, standing in for an OS input hook in tests, demos,
// and snapshot replay.
type ScriptSource struct {
	Steps []Step

	mu       sync.Mutex
	attached bool
	stop     chan struct{}
}

// Attach starts delivering the scripted steps. Delivery stops after the
// last step or when Detach is called, whichever comes first.
func (s *ScriptSource) Attach(h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return ErrCaptureUnavailable
	}
	s.attached = true
	s.stop = make(chan struct{})

	go s.deliver(h, s.stop)
	return nil
}

// Detach stops delivery. It does not wait for the delivery goroutine, so
// it is safe to call from inside a handler callback (a cancel step that
// stops the session, for instance); at most one in-flight event may still
// arrive after Detach returns.
func (s *ScriptSource) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return nil
	}
	s.attached = false
	close(s.stop)
	return nil
}

func (s *ScriptSource) deliver(h Handler, stop chan struct{}) {
	for _, step := range s.Steps {
		if step.Delay > 0 {
			select {
			case <-stop:
				return
			case <-time.After(step.Delay):
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}

		switch step.Kind {
		case StepMove:
			h.HandleMove(step.X, step.Y)
		case StepClick:
			h.HandleClick(step.X, step.Y, step.Button, step.Pressed)
		case StepScroll:
			h.HandleScroll(step.X, step.Y, step.DX, step.DY)
		case StepCancel:
			h.HandleCancel()
		}
	}
}

// Wander generates a synthetic pointer session: a bounded random walk with
// occasional clicks and scrolls. Used by the demo record mode when no real
// input hook is wired in.
func Wander(n, width, height int, interval time.Duration, seed int64) []Step {
	rng := rand.New(rand.NewSource(seed))
	steps := make([]Step, 0, n)
	x, y := width/2, height/2
	for i := 0; i < n; i++ {
		x = clamp(x+rng.Intn(61)-30, 0, width-1)
		y = clamp(y+rng.Intn(61)-30, 0, height-1)
		steps = append(steps, Step{Kind: StepMove, X: x, Y: y, Delay: interval})

		switch rng.Intn(20) {
		case 0:
			steps = append(steps,
				Step{Kind: StepClick, X: x, Y: y, Button: "left", Pressed: true},
				Step{Kind: StepClick, X: x, Y: y, Button: "left", Pressed: false, Delay: interval / 2})
		case 1:
			steps = append(steps, Step{Kind: StepScroll, X: x, Y: y, DY: float64(rng.Intn(5) - 2)})
		}
	}
	return steps
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
