package alignment

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"focustrack/pkg/geom"
	"focustrack/pkg/model"
)

// DefaultTransitionDuration is how long an orientation change is animated.
const DefaultTransitionDuration = 500 * time.Millisecond

// Transition is an orientation animation requested from the host. The host's
// animation engine calls Complete when it has finished; the stabilizer notices on
// its next update. Complete may be called from any goroutine, more than once.
type Transition struct {
	From      quat.Number
	To        quat.Number
	Alignment model.Alignment
	Duration  time.Duration

	done chan struct{}
	once sync.Once
}

// NewTransition creates a pending transition.
func NewTransition(from, to quat.Number, al model.Alignment, d time.Duration) *Transition {
	return &Transition{
		From:      from,
		To:        to,
		Alignment: al,
		Duration:  d,
		done:      make(chan struct{}),
	}
}

// Complete marks the animation finished.
func (t *Transition) Complete() {
	t.once.Do(func() { close(t.done) })
}

// Done is closed once Complete has been called.
func (t *Transition) Done() <-chan struct{} {
	return t.done
}

// Completed reports whether Complete has been called.
func (t *Transition) Completed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// At returns the eased orientation after elapsed time.
func (t *Transition) At(elapsed time.Duration) quat.Number {
	if t.Duration <= 0 {
		return t.To
	}
	progress := float64(elapsed) / float64(t.Duration)
	return geom.Slerp(t.From, t.To, geom.EaseInOut(progress))
}
