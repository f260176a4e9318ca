// Package sensor defines what the tracker consumes from the AR session: a camera
// pose with a tracking-quality flag and ranked hit-test candidates.
package sensor

import (
	"github.com/google/uuid"

	"focustrack/pkg/model"
)

// Source supplies per-frame sensor data. Calls must not block.
type Source interface {
	// Camera returns the current camera pose. ok is false when the session has
	// not produced a frame yet.
	Camera() (pose model.CameraPose, ok bool)
	// HitTest returns candidates for a screen point, nearest first.
	HitTest(point model.ScreenPoint) []model.Candidate
	// ViewportCenter is the screen point the tracker aims at.
	ViewportCenter() model.ScreenPoint
}

// AnchorObserver is notified as the session adds, refines and drops surfaces.
type AnchorObserver interface {
	SurfaceAdded(s model.Surface)
	SurfaceUpdated(s model.Surface)
	SurfaceRemoved(id uuid.UUID)
}

// Nominal reports whether hit tests should be trusted for this camera pose.
func Nominal(pose model.CameraPose) bool {
	return pose.Quality == model.QualityNormal
}
