// Package hook defines the contract between the capture pipeline and the
// pointer-event source that feeds it. A source is typically an OS-level
// input hook running on its own thread; this package only fixes the
// callback surface and provides deterministic in-process sources used by
// tests and the replay path.
package hook

import "errors"

// ErrCaptureUnavailable is returned by Attach when the source cannot start
// delivering events (missing OS permissions, no input backend, and so on).
var ErrCaptureUnavailable = errors.New("capture source unavailable")

// Handler receives pointer notifications from a source. Implementations
// must tolerate calls after Detach; late events are expected during
// listener teardown.
type Handler interface {
	// HandleMove is called for every pointer movement.
	HandleMove(x, y int)
	// HandleClick is called for both button press and release.
	HandleClick(x, y int, button string, pressed bool)
	// HandleScroll is called with the scroll deltas at the pointer position.
	HandleScroll(x, y int, dx, dy float64)
	// HandleCancel is called when the user hits the source's cancel key.
	HandleCancel()
}

// Source delivers pointer events to a Handler.
type Source interface {
	// Attach starts event delivery. It returns an error wrapping
	// ErrCaptureUnavailable when listeners cannot be installed.
	Attach(h Handler) error
	// Detach stops event delivery. Events already in flight may still
	// arrive after Detach returns.
	Detach() error
}
