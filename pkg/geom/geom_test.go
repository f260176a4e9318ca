package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

func vecNear(a, b r3.Vec) bool {
	return Distance(a, b) < 1e-9
}

func TestYawRotation_RotatesAboutUp(t *testing.T) {
	q := YawRotation(math.Pi / 2)
	got := Rotate(q, r3.Vec{X: 1})
	want := r3.Vec{Z: -1}
	if !vecNear(got, want) {
		t.Errorf("Rotate(yaw 90°, +X) = %v, want %v", got, want)
	}
}

func TestFromEuler_Columns(t *testing.T) {
	tests := []struct {
		name      string
		pitch     float64
		yaw       float64
		wantRight r3.Vec
		wantUp    r3.Vec
	}{
		{
			name:      "Identity",
			wantRight: r3.Vec{X: 1},
			wantUp:    r3.Vec{Y: 1},
		},
		{
			name:      "LookingStraightDown",
			pitch:     -math.Pi / 2,
			wantRight: r3.Vec{X: 1},
			wantUp:    r3.Vec{Z: -1},
		},
		{
			name:      "YawOnly",
			yaw:       math.Pi / 2,
			wantRight: r3.Vec{Z: -1},
			wantUp:    r3.Vec{Y: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := FromEuler(tt.pitch, tt.yaw, 0)
			if got := Right(q); !vecNear(got, tt.wantRight) {
				t.Errorf("Right = %v, want %v", got, tt.wantRight)
			}
			if got := Up(q); !vecNear(got, tt.wantUp) {
				t.Errorf("Up = %v, want %v", got, tt.wantUp)
			}
		})
	}
}

func TestSlerp(t *testing.T) {
	a := YawRotation(0)
	b := YawRotation(math.Pi / 2)

	if got := Slerp(a, b, 0); !SameRotation(got, a, eps) {
		t.Errorf("Slerp(t=0) = %v, want %v", got, a)
	}
	if got := Slerp(a, b, 1); !SameRotation(got, b, eps) {
		t.Errorf("Slerp(t=1) = %v, want %v", got, b)
	}
	if got, want := Slerp(a, b, 0.5), YawRotation(math.Pi/4); !SameRotation(got, want, eps) {
		t.Errorf("Slerp(t=0.5) = %v, want %v", got, want)
	}

	// Takes the short way round when b is expressed in the opposite hemisphere.
	neg := YawRotation(math.Pi / 2)
	neg.Real, neg.Jmag = -neg.Real, -neg.Jmag
	if got, want := Slerp(a, neg, 0.5), YawRotation(math.Pi/4); !SameRotation(got, want, eps) {
		t.Errorf("Slerp(short arc) = %v, want %v", got, want)
	}
}

func TestEaseInOut(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{2, 1},
	}
	for _, tt := range tests {
		if got := EaseInOut(tt.in); math.Abs(got-tt.want) > eps {
			t.Errorf("EaseInOut(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if EaseInOut(0.25) >= 0.25 {
		t.Error("EaseInOut should start slower than linear")
	}
}

func TestMean(t *testing.T) {
	if _, ok := Mean(nil); ok {
		t.Fatal("Mean(nil) should report ok=false")
	}
	got, ok := Mean([]r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 3, Y: 4, Z: 5}, {X: 5, Y: 0, Z: -2}})
	if !ok {
		t.Fatal("Mean returned ok=false for non-empty input")
	}
	if want := (r3.Vec{X: 3, Y: 2, Z: 2}); !vecNear(got, want) {
		t.Errorf("Mean = %v, want %v", got, want)
	}
}
