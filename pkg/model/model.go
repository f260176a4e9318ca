package model

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Alignment is the orientation class of a detected surface.
type Alignment string

const (
	AlignmentNone       Alignment = ""
	AlignmentHorizontal Alignment = "horizontal"
	AlignmentVertical   Alignment = "vertical"
)

// String returns a printable name; the empty alignment prints as "none".
func (a Alignment) String() string {
	if a == AlignmentNone {
		return "none"
	}
	return string(a)
}

// AlignmentSet is the set of alignments a selection may return.
type AlignmentSet struct {
	Horizontal bool `yaml:"horizontal" json:"horizontal"`
	Vertical   bool `yaml:"vertical" json:"vertical"`
}

// AllAlignments allows both horizontal and vertical surfaces.
var AllAlignments = AlignmentSet{Horizontal: true, Vertical: true}

// Contains reports whether a is allowed.
func (s AlignmentSet) Contains(a Alignment) bool {
	switch a {
	case AlignmentHorizontal:
		return s.Horizontal
	case AlignmentVertical:
		return s.Vertical
	}
	return false
}

// TrackingQuality is the camera tracking state reported by the sensor.
type TrackingQuality string

const (
	QualityNotAvailable TrackingQuality = "not_available"
	QualityLimited      TrackingQuality = "limited"
	QualityNormal       TrackingQuality = "normal"
)

// Euler holds the camera's Euler angles in radians.
type Euler struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// CameraPose is a per-frame snapshot of the camera. Comparable by value.
type CameraPose struct {
	Position    r3.Vec          `json:"position"`
	Orientation quat.Number     `json:"orientation"`
	Euler       Euler           `json:"euler"`
	Quality     TrackingQuality `json:"quality"`
}

// Transform is a rigid world-space transform.
type Transform struct {
	Position    r3.Vec      `json:"position"`
	Orientation quat.Number `json:"orientation"`
}

// HitKind discriminates how a candidate was produced.
type HitKind string

const (
	// HitExistingPlaneGeometry hit a confirmed surface within its detected extent.
	HitExistingPlaneGeometry HitKind = "existing_plane_geometry"
	// HitExistingPlane hit a confirmed surface extended indefinitely.
	HitExistingPlane       HitKind = "existing_plane"
	HitEstimatedHorizontal HitKind = "estimated_horizontal"
	HitEstimatedVertical   HitKind = "estimated_vertical"
)

// Candidate is a single surface-detection result for a screen point.
type Candidate struct {
	Kind      HitKind   `json:"kind"`
	SurfaceID uuid.UUID `json:"surface_id"`
	Alignment Alignment `json:"alignment"`
	Transform Transform `json:"transform"`
	// Distance from the camera along the hit ray.
	Distance float64 `json:"distance"`
}

// Confirmed reports whether the candidate refers to a surface with a stable identity.
func (c Candidate) Confirmed() bool {
	if c.SurfaceID == uuid.Nil {
		return false
	}
	return c.Kind == HitExistingPlaneGeometry || c.Kind == HitExistingPlane
}

// Position is the world-space hit position.
func (c Candidate) Position() r3.Vec {
	return c.Transform.Position
}

// ScreenPoint is a point in viewport coordinates.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
