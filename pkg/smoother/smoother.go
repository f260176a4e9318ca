// Package smoother damps frame-to-frame jitter in hit-test positions by averaging
// a bounded window of recent positions. The displayed position lags a real change
// by up to one window of frames.
package smoother

import (
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/geom"
	"focustrack/pkg/ring"
)

const (
	// TrackerWindow is the history length used by the plane tracker.
	TrackerWindow = 20
	// FocusSquareWindow is the shorter history of the focus-square variant.
	FocusSquareWindow = 10
)

// Smoother keeps the last N accepted positions.
type Smoother struct {
	history *ring.Buffer[r3.Vec]
}

// New creates a Smoother averaging over window positions.
func New(window int) *Smoother {
	return &Smoother{history: ring.New[r3.Vec](window)}
}

// Push records a position, evicting the oldest beyond the window.
func (s *Smoother) Push(p r3.Vec) {
	s.history.Push(p)
}

// Average returns the mean of the retained positions. ok is false when nothing
// has been pushed since creation or the last Reset.
func (s *Smoother) Average() (avg r3.Vec, ok bool) {
	return geom.Mean(s.history.Slice())
}

// Len returns the number of retained positions.
func (s *Smoother) Len() int {
	return s.history.Len()
}

// Window returns the history capacity.
func (s *Smoother) Window() int {
	return s.history.Cap()
}

// Positions returns the retained positions, oldest first.
func (s *Smoother) Positions() []r3.Vec {
	return s.history.Slice()
}

// Reset drops the history.
func (s *Smoother) Reset() {
	s.history.Clear()
}
