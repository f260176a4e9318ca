// Package geom provides the small amount of 3D math the tracker needs on top of
// gonum's r3 vectors and quaternions.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the unit quaternion representing no rotation.
var Identity = quat.Number{Real: 1}

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
)

// AxisAngle returns the unit quaternion rotating by angle radians about axis.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	n := r3.Norm(axis)
	if n == 0 {
		return Identity
	}
	u := r3.Scale(1/n, axis)
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Imag: u.X * s, Jmag: u.Y * s, Kmag: u.Z * s}
}

// YawRotation returns the rotation of angle radians about the world up axis.
func YawRotation(angle float64) quat.Number {
	return AxisAngle(axisY, angle)
}

// FromEuler builds an orientation from pitch (X), yaw (Y) and roll (Z) angles,
// applied roll first, then pitch, then yaw.
func FromEuler(pitch, yaw, roll float64) quat.Number {
	qx := AxisAngle(axisX, pitch)
	qy := YawRotation(yaw)
	qz := AxisAngle(r3.Vec{Z: 1}, roll)
	return Normalize(quat.Mul(quat.Mul(qy, qx), qz))
}

// Normalize scales q to unit length. The zero quaternion maps to Identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Right is the first column of the rotation matrix of q.
func Right(q quat.Number) r3.Vec {
	return Rotate(q, axisX)
}

// Up is the second column of the rotation matrix of q.
func Up(q quat.Number) r3.Vec {
	return Rotate(q, axisY)
}

// Dot returns the 4D dot product of two quaternions.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// SameRotation reports whether a and b describe the same rotation within tol.
// q and -q are the same rotation.
func SameRotation(a, b quat.Number, tol float64) bool {
	return 1-math.Abs(Dot(Normalize(a), Normalize(b))) <= tol
}

// Slerp interpolates along the shortest arc from a to b. t is clamped to [0, 1].
func Slerp(a, b quat.Number, t float64) quat.Number {
	t = clamp01(t)
	a, b = Normalize(a), Normalize(b)

	d := Dot(a, b)
	if d < 0 {
		b = quat.Scale(-1, b)
		d = -d
	}

	// Nearly parallel: lerp is accurate and avoids dividing by sin(~0).
	if d > 0.9995 {
		return Normalize(quat.Add(a, quat.Scale(t, quat.Sub(b, a))))
	}

	theta := math.Acos(d)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sinTheta
	wb := math.Sin(t*theta) / sinTheta
	return quat.Add(quat.Scale(wa, a), quat.Scale(wb, b))
}

// EaseInOut is the symmetric ease-in/ease-out timing curve used for transitions.
func EaseInOut(t float64) float64 {
	t = clamp01(t)
	return t * t * (3 - 2*t)
}

// Distance is the euclidean distance between a and b.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Mean returns the arithmetic mean of vs. ok is false for an empty slice.
func Mean(vs []r3.Vec) (mean r3.Vec, ok bool) {
	if len(vs) == 0 {
		return r3.Vec{}, false
	}
	for _, v := range vs {
		mean = r3.Add(mean, v)
	}
	return r3.Scale(1/float64(len(vs)), mean), true
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}
