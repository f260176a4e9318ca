package alignment

import (
	"math"

	"focustrack/pkg/geom"
	"focustrack/pkg/model"
)

// Camera tilt bands. Below tiltLow the camera's own Euler yaw is used; above
// tiltHigh the heading projected from the camera basis; in between a blend.
var (
	tiltLow  = math.Pi / 2 * 0.65
	tiltHigh = math.Pi / 2 * 0.75
)

// quarterTurn is the marker's rotational symmetry.
const quarterTurn = math.Pi / 2

// TargetYaw returns the yaw the marker should face for the given camera pose.
func TargetYaw(cam model.CameraPose) float64 {
	tilt := math.Abs(cam.Euler.Pitch)
	yaw := HeadingYaw(cam)

	switch {
	case tilt < tiltLow:
		return cam.Euler.Yaw
	case tilt < tiltHigh:
		w := math.Abs((tilt - tiltLow) / (tiltHigh - tiltLow))
		raw := NormalizeAngle(cam.Euler.Yaw, yaw)
		return raw*(1-w) + yaw*w
	default:
		return yaw
	}
}

// HeadingYaw is atan2(right.x, up.x) of the camera rotation, which stays
// meaningful when the camera looks straight down and Euler yaw degenerates.
func HeadingYaw(cam model.CameraPose) float64 {
	right := geom.Right(cam.Orientation)
	up := geom.Up(cam.Orientation)
	return math.Atan2(right.X, up.X)
}

// NormalizeAngle shifts angle by whole quarter turns until it lies within an
// eighth turn of ref. The marker looks the same after a quarter turn, so the
// shifted angle is visually equivalent and blends toward ref without spinning.
func NormalizeAngle(angle, ref float64) float64 {
	d := angle - ref
	if math.Abs(d) <= quarterTurn/2 {
		return angle
	}
	steps := math.Ceil((math.Abs(d) - quarterTurn/2) / quarterTurn)
	return angle - math.Copysign(steps*quarterTurn, d)
}
