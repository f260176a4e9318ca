package alignment

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/geom"
	"focustrack/pkg/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func camera(pitch, yaw float64) model.CameraPose {
	return model.CameraPose{
		Orientation: geom.FromEuler(pitch, yaw, 0),
		Euler:       model.Euler{Pitch: pitch, Yaw: yaw},
		Quality:     model.QualityNormal,
	}
}

var (
	estH = model.Candidate{Kind: model.HitEstimatedHorizontal, Transform: model.Transform{Orientation: geom.Identity}}
	estV = model.Candidate{
		Kind:      model.HitEstimatedVertical,
		Transform: model.Transform{Orientation: geom.FromEuler(math.Pi/2, 0.3, 0)},
	}
	confirmedH = model.Candidate{
		Kind:      model.HitExistingPlaneGeometry,
		SurfaceID: uuid.MustParse("0f6c2f1e-7a8b-4d2c-8a51-2d1f0e9b7c11"),
		Alignment: model.AlignmentHorizontal,
		Transform: model.Transform{Orientation: geom.Identity},
	}
	confirmedV = model.Candidate{
		Kind:      model.HitExistingPlaneGeometry,
		SurfaceID: uuid.MustParse("0f6c2f1e-7a8b-4d2c-8a51-2d1f0e9b7c12"),
		Alignment: model.AlignmentVertical,
		Transform: model.Transform{Orientation: geom.FromEuler(math.Pi/2, -0.4, 0)},
	}
)

func TestHysteresis_HorizontalCommitsOnSixteenth(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	cam := camera(-0.3, 0.2)

	commits := 0
	for i := 1; i <= 16; i++ {
		d := s.Update(estH, &cam)
		if d.Committed {
			commits++
			assert.Equal(t, 16, i, "commit must happen on the 16th observation")
			assert.NotNil(t, d.Transition, "an alignment change is animated")
		}
	}

	assert.Equal(t, 1, commits)
	assert.Equal(t, model.AlignmentHorizontal, s.Committed())
	assert.Equal(t, StateChanging, s.State())
	assert.Empty(t, s.History(), "history is cleared on commit")
}

func TestHysteresis_TenHorizontalLeavesUnchanged(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	cam := camera(-0.3, 0.2)

	for i := 0; i < 10; i++ {
		d := s.Update(estH, &cam)
		assert.False(t, d.Updated)
		assert.False(t, d.Committed)
	}

	assert.Equal(t, model.AlignmentNone, s.Committed())
	assert.Equal(t, StateNotDetermined, s.State())
	assert.Len(t, s.History(), 10)
}

func TestHysteresis_VerticalNeedsEleven(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	cam := camera(-0.1, 0)

	for i := 1; i <= 10; i++ {
		d := s.Update(estV, &cam)
		require.False(t, d.Committed, "observation %d", i)
	}

	d := s.Update(estV, &cam)
	require.True(t, d.Committed)
	assert.Equal(t, model.AlignmentVertical, d.Alignment)
	assert.True(t, geom.SameRotation(d.Orientation, estV.Transform.Orientation, 1e-12),
		"vertical target comes from the hit orientation")
	require.NotNil(t, d.Transition)
}

func TestHysteresis_FlipsOnlyOnceWhileFeedingMore(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	cam := camera(-0.3, 0.2)

	commits := 0
	for i := 1; i <= 40; i++ {
		d := s.Update(estH, &cam)
		if d.Transition != nil {
			d.Transition.Complete()
		}
		if d.Committed {
			commits++
		}
	}
	assert.Equal(t, 1, commits)
}

func TestConfirmedBypassesVote(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	cam := camera(-0.3, 0.2)

	d := s.Update(confirmedH, &cam)
	require.True(t, d.Committed)
	require.NotNil(t, d.Transition)
	assert.Equal(t, model.AlignmentHorizontal, s.Committed())
	assert.True(t, geom.SameRotation(d.Orientation, geom.YawRotation(0.2), 1e-12))
}

func TestChangingDropsFramesUntilComplete(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	cam := camera(-0.3, 0.2)

	first := s.Update(confirmedH, &cam)
	require.NotNil(t, first.Transition)

	other := camera(-0.3, 0.9)
	for i := 0; i < 5; i++ {
		d := s.Update(confirmedH, &other)
		assert.True(t, d.Dropped)
		assert.False(t, d.Updated)
	}

	first.Transition.Complete()
	first.Transition.Complete() // idempotent

	d := s.Update(confirmedH, &other)
	assert.False(t, d.Dropped)
	assert.True(t, d.Updated)
	assert.Nil(t, d.Transition, "same alignment snaps without animation")
	assert.Equal(t, StateAligned, s.State())
	assert.True(t, geom.SameRotation(d.Orientation, geom.YawRotation(0.9), 1e-12))
}

func TestVerticalAlwaysAnimates(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	cam := camera(-0.1, 0)

	d := s.Update(confirmedV, &cam)
	require.NotNil(t, d.Transition)
	d.Transition.Complete()

	d = s.Update(confirmedV, &cam)
	assert.False(t, d.Committed, "alignment unchanged")
	assert.NotNil(t, d.Transition, "vertical target is still animated")
	assert.Equal(t, StateChanging, s.State())
}

func TestNoCameraNoUpdate(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	d := s.Update(confirmedH, nil)

	assert.False(t, d.Updated)
	assert.Equal(t, model.AlignmentNone, s.Committed())
	assert.Empty(t, s.History())
}

func TestReset(t *testing.T) {
	s := New(DefaultConfig(), quietLogger())
	cam := camera(-0.3, 0.2)
	s.Update(confirmedH, &cam)
	s.Update(estH, &cam)

	s.Reset()
	assert.Equal(t, model.AlignmentNone, s.Committed())
	assert.Equal(t, StateNotDetermined, s.State())
	assert.Empty(t, s.History())

	// Not stuck in Changing after a reset.
	d := s.Update(confirmedH, &cam)
	assert.True(t, d.Updated)
}

func TestObservedAlignment(t *testing.T) {
	tests := []struct {
		name string
		c    model.Candidate
		want model.Alignment
	}{
		{"Confirmed", confirmedV, model.AlignmentVertical},
		{"EstimatedHorizontal", estH, model.AlignmentHorizontal},
		{"EstimatedVertical", estV, model.AlignmentVertical},
		{"Unknown", model.Candidate{Kind: model.HitExistingPlane}, model.AlignmentNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObservedAlignment(tt.c))
		})
	}
}

func TestTargetYaw_Bands(t *testing.T) {
	t.Run("LowTiltUsesEulerYaw", func(t *testing.T) {
		cam := camera(-0.3, 0.4)
		assert.InDelta(t, 0.4, TargetYaw(cam), 1e-12)
	})

	t.Run("HighTiltUsesHeading", func(t *testing.T) {
		cam := camera(-1.4, 0)
		assert.InDelta(t, HeadingYaw(cam), TargetYaw(cam), 1e-12)
		assert.InDelta(t, math.Pi/2, TargetYaw(cam), 1e-9)
	})

	t.Run("MidTiltBlends", func(t *testing.T) {
		pitch := -(tiltLow + tiltHigh) / 2
		cam := camera(pitch, 0.1)
		heading := HeadingYaw(cam)
		want := 0.5*NormalizeAngle(0.1, heading) + 0.5*heading

		got := TargetYaw(cam)
		assert.InDelta(t, want, got, 1e-9)
		assert.LessOrEqual(t, math.Abs(got-heading), math.Pi/4, "blend must not swing past the symmetry band")
	})

	t.Run("BandEdgesInclusiveLow", func(t *testing.T) {
		cam := camera(-tiltLow, 0.1)
		heading := HeadingYaw(cam)
		assert.InDelta(t, NormalizeAngle(0.1, heading), TargetYaw(cam), 1e-9)

		cam = camera(-tiltHigh, 0.1)
		assert.InDelta(t, HeadingYaw(cam), TargetYaw(cam), 1e-12)
	})
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name       string
		angle, ref float64
		want       float64
	}{
		{"AlreadyClose", 0.1, 0, 0.1},
		{"BoundaryStays", math.Pi / 4, 0, math.Pi / 4},
		{"QuarterAbove", math.Pi / 2, 0, 0},
		{"QuarterBelow", -math.Pi / 2, 0, 0},
		{"TwoSteps", 3*math.Pi/4 + 0.1, 0, -math.Pi/4 + 0.1},
		{"FullTurn", 2*math.Pi + 0.1, 0, 0.1},
		{"RefAhead", 0.1, math.Pi, 0.1 + math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAngle(tt.angle, tt.ref)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.LessOrEqual(t, math.Abs(got-tt.ref), math.Pi/4+1e-12)
		})
	}
}

func TestScaleForDistance(t *testing.T) {
	assert.InDelta(t, 0.5, ScaleForDistance(0.35), 1e-12)
	assert.InDelta(t, 1.0, ScaleForDistance(0.7), 1e-12)
	assert.InDelta(t, 1.25, ScaleForDistance(1.7), 1e-12)

	// Both regimes meet at the pivot.
	assert.InDelta(t, ScaleForDistance(0.7), ScaleForDistance(0.7-1e-9), 1e-8)

	// Monotonic
	prev := 0.0
	for d := 0.05; d < 3; d += 0.05 {
		s := ScaleForDistance(d)
		assert.Greater(t, s, prev)
		prev = s
	}
}

func TestScale(t *testing.T) {
	assert.Equal(t, 1.0, Scale(r3.Vec{Z: -5}, nil))

	cam := camera(0, 0)
	cam.Position = r3.Vec{Y: 1}
	assert.InDelta(t, 0.5, Scale(r3.Vec{Y: 1, Z: -0.35}, &cam), 1e-12)
}

func TestTransition_At(t *testing.T) {
	from := geom.YawRotation(0)
	to := geom.YawRotation(math.Pi / 2)
	tr := NewTransition(from, to, model.AlignmentHorizontal, DefaultTransitionDuration)

	assert.True(t, geom.SameRotation(tr.At(0), from, 1e-12))
	assert.True(t, geom.SameRotation(tr.At(DefaultTransitionDuration/2), geom.YawRotation(math.Pi/4), 1e-9))
	assert.True(t, geom.SameRotation(tr.At(2*DefaultTransitionDuration), to, 1e-12))

	assert.False(t, tr.Completed())
	tr.Complete()
	assert.True(t, tr.Completed())
	select {
	case <-tr.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}
