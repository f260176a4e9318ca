package tracker

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/alignment"
	"focustrack/pkg/model"
	"focustrack/pkg/visibility"
)

// Sink receives what the host renders.
type Sink interface {
	// Publish delivers the marker pose for this frame.
	Publish(p model.Pose)
	// Animate asks the host to animate an orientation change and call
	// Complete on the transition when done.
	Animate(t *alignment.Transition)
	// Fade asks the host to fade the marker and call Complete when done.
	Fade(f *visibility.Fade)
}

// Listener receives tracker events. Callbacks run on the tick goroutine and
// must not block.
type Listener interface {
	OnInitialized()
	OnSurfaceConfirmed(id uuid.UUID, hit r3.Vec, cam *model.CameraPose)
	OnSurfaceNotConfirmed(hit r3.Vec, cam *model.CameraPose)
}

// AlignmentListener is an optional Listener extension notified when the
// committed alignment changes.
type AlignmentListener interface {
	OnAlignmentCommitted(a model.Alignment, hit r3.Vec)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Initialized         func()
	SurfaceConfirmed    func(id uuid.UUID, hit r3.Vec, cam *model.CameraPose)
	SurfaceNotConfirmed func(hit r3.Vec, cam *model.CameraPose)
	AlignmentCommitted  func(a model.Alignment, hit r3.Vec)
}

func (f ListenerFuncs) OnInitialized() {
	if f.Initialized != nil {
		f.Initialized()
	}
}

func (f ListenerFuncs) OnSurfaceConfirmed(id uuid.UUID, hit r3.Vec, cam *model.CameraPose) {
	if f.SurfaceConfirmed != nil {
		f.SurfaceConfirmed(id, hit, cam)
	}
}

func (f ListenerFuncs) OnSurfaceNotConfirmed(hit r3.Vec, cam *model.CameraPose) {
	if f.SurfaceNotConfirmed != nil {
		f.SurfaceNotConfirmed(hit, cam)
	}
}

func (f ListenerFuncs) OnAlignmentCommitted(a model.Alignment, hit r3.Vec) {
	if f.AlignmentCommitted != nil {
		f.AlignmentCommitted(a, hit)
	}
}

// MultiListener fans events out to every listener in order.
type MultiListener []Listener

func (m MultiListener) OnInitialized() {
	for _, l := range m {
		l.OnInitialized()
	}
}

func (m MultiListener) OnSurfaceConfirmed(id uuid.UUID, hit r3.Vec, cam *model.CameraPose) {
	for _, l := range m {
		l.OnSurfaceConfirmed(id, hit, cam)
	}
}

func (m MultiListener) OnSurfaceNotConfirmed(hit r3.Vec, cam *model.CameraPose) {
	for _, l := range m {
		l.OnSurfaceNotConfirmed(hit, cam)
	}
}

func (m MultiListener) OnAlignmentCommitted(a model.Alignment, hit r3.Vec) {
	for _, l := range m {
		if al, ok := l.(AlignmentListener); ok {
			al.OnAlignmentCommitted(a, hit)
		}
	}
}

type nopListener struct{}

func (nopListener) OnInitialized() {}
func (nopListener) OnSurfaceConfirmed(uuid.UUID, r3.Vec, *model.CameraPose) {}
func (nopListener) OnSurfaceNotConfirmed(r3.Vec, *model.CameraPose) {}
