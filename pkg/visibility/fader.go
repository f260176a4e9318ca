// Package visibility fades the focus marker in and out.
package visibility

import (
	"sync"
	"time"
)

// DefaultFadeDuration is the length of a show or hide fade.
const DefaultFadeDuration = 500 * time.Millisecond

// Direction of a fade.
type Direction string

const (
	FadeIn  Direction = "in"
	FadeOut Direction = "out"
)

// Fade is an opacity animation requested from the host. The host calls Complete
// when it finishes.
type Fade struct {
	Direction Direction
	Duration  time.Duration

	done chan struct{}
	once sync.Once
}

// Complete marks the fade finished. Safe to call more than once and from any goroutine.
func (f *Fade) Complete() {
	f.once.Do(func() { close(f.done) })
}

// Done is closed once the fade completes.
func (f *Fade) Done() <-chan struct{} {
	return f.done
}

// Completed reports whether the fade finished.
func (f *Fade) Completed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Opacity is the target opacity of the fade.
func (f *Fade) Opacity() float64 {
	if f.Direction == FadeIn {
		return 1
	}
	return 0
}

// Fader tracks the marker's visibility. Requesting a fade in a direction that
// already has one in flight is a no-op.
type Fader struct {
	duration time.Duration
	visible  bool
	inFlight map[Direction]*Fade
}

// NewFader creates a hidden Fader.
func NewFader(d time.Duration) *Fader {
	if d <= 0 {
		d = DefaultFadeDuration
	}
	return &Fader{
		duration: d,
		inFlight: make(map[Direction]*Fade, 2),
	}
}

// Show starts a fade-in. It returns nil if one is already running.
func (f *Fader) Show() *Fade {
	return f.start(FadeIn)
}

// Hide starts a fade-out. It returns nil if one is already running.
func (f *Fader) Hide() *Fade {
	return f.start(FadeOut)
}

func (f *Fader) start(dir Direction) *Fade {
	if cur, ok := f.inFlight[dir]; ok && !cur.Completed() {
		return nil
	}
	fade := &Fade{Direction: dir, Duration: f.duration, done: make(chan struct{})}
	f.inFlight[dir] = fade
	f.visible = dir == FadeIn
	return fade
}

// Visible reports the visibility the marker is fading (or has faded) to.
// Visible markers are drawn on top of scene geometry.
func (f *Fader) Visible() bool {
	return f.visible
}
