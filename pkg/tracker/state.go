package tracker

import (
	"github.com/google/uuid"

	"focustrack/pkg/model"
)

// Kind discriminates the tracker state.
type Kind int

const (
	// StateNone is the zero state before the first tick.
	StateNone Kind = iota
	// StateUninitialized: no usable camera or candidate; the marker floats in
	// front of the camera.
	StateUninitialized
	// StateTracking: a candidate was selected this frame.
	StateTracking
)

func (k Kind) String() string {
	switch k {
	case StateUninitialized:
		return "uninitialized"
	case StateTracking:
		return "tracking"
	}
	return "none"
}

// State is the tracker state with its payload. Candidate and Camera are only
// meaningful while Tracking.
type State struct {
	Kind      Kind
	Candidate model.Candidate
	Camera    *model.CameraPose
}

// Uninitialized returns the payload-free uninitialized state.
func Uninitialized() State {
	return State{Kind: StateUninitialized}
}

// Tracking returns a tracking state for hit seen from cam.
func Tracking(hit model.Candidate, cam *model.CameraPose) State {
	return State{Kind: StateTracking, Candidate: hit, Camera: cam}
}

// Equal is structural equality, payload included. Cameras compare by value.
func (s State) Equal(o State) bool {
	if s.Kind != o.Kind {
		return false
	}
	if s.Kind != StateTracking {
		return true
	}
	if s.Candidate != o.Candidate {
		return false
	}
	switch {
	case s.Camera == nil && o.Camera == nil:
		return true
	case s.Camera == nil || o.Camera == nil:
		return false
	}
	return *s.Camera == *o.Camera
}

// EffectKind names a side effect of a state change.
type EffectKind int

const (
	EffectReparent EffectKind = iota
	EffectReset
	EffectBillboard
	EffectEmitInitialized
	EffectEmitConfirmed
	EffectEmitNotConfirmed
	EffectRecordSurface
	EffectUpdateTransform
)

var effectNames = [...]string{
	EffectReparent:         "reparent",
	EffectReset:            "reset",
	EffectBillboard:        "billboard",
	EffectEmitInitialized:  "emit_initialized",
	EffectEmitConfirmed:    "emit_confirmed",
	EffectEmitNotConfirmed: "emit_not_confirmed",
	EffectRecordSurface:    "record_surface",
	EffectUpdateTransform:  "update_transform",
}

func (k EffectKind) String() string {
	if int(k) < len(effectNames) {
		return effectNames[k]
	}
	return "unknown"
}

// Effect is one step the driver executes after a transition. Only the fields
// relevant to Kind are set.
type Effect struct {
	Kind      EffectKind
	Parent    model.Parent
	SurfaceID uuid.UUID
	Hit       model.Candidate
	Camera    *model.CameraPose
	Style     model.Style
	// Flash is set when the surface has not been visited before.
	Flash bool
}

// Transition computes the effects of moving from old to next. It has no side
// effects. Equal states produce no effects and old is returned unchanged.
func Transition(old, next State, visited map[uuid.UUID]struct{}) (State, []Effect) {
	if old.Equal(next) {
		return old, nil
	}

	switch next.Kind {
	case StateUninitialized:
		return next, []Effect{
			{Kind: EffectReparent, Parent: model.ParentCamera},
			{Kind: EffectReset},
			{Kind: EffectBillboard},
			{Kind: EffectEmitInitialized},
		}

	case StateTracking:
		hit := next.Candidate
		var effects []Effect
		style := model.StyleOpen
		flash := false
		if hit.Confirmed() {
			_, seen := visited[hit.SurfaceID]
			flash = !seen
			style = model.StyleClosed
			effects = append(effects,
				Effect{Kind: EffectEmitConfirmed, SurfaceID: hit.SurfaceID, Hit: hit, Camera: next.Camera},
				Effect{Kind: EffectRecordSurface, SurfaceID: hit.SurfaceID},
			)
		} else {
			effects = append(effects, Effect{Kind: EffectEmitNotConfirmed, Hit: hit, Camera: next.Camera})
		}
		effects = append(effects,
			Effect{Kind: EffectReparent, Parent: model.ParentWorld},
			Effect{Kind: EffectUpdateTransform, Hit: hit, Camera: next.Camera, Style: style, Flash: flash},
		)
		return next, effects
	}

	// StateNone is only ever the initial state.
	return old, nil
}
