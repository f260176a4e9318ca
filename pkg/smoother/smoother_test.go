package smoother

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSmoother_EmptyAverage(t *testing.T) {
	s := New(TrackerWindow)
	_, ok := s.Average()
	assert.False(t, ok, "average of an empty history must not be computed")
}

func TestSmoother_ThreeValueMean(t *testing.T) {
	s := New(TrackerWindow)
	s.Push(r3.Vec{X: 0, Y: 0, Z: -1})
	s.Push(r3.Vec{X: 0.3, Y: 0.03, Z: -1.2})
	s.Push(r3.Vec{X: -0.6, Y: 0.06, Z: -0.8})

	avg, ok := s.Average()
	require.True(t, ok)
	assert.InDelta(t, -0.1, avg.X, 1e-12)
	assert.InDelta(t, 0.03, avg.Y, 1e-12)
	assert.InDelta(t, -1.0, avg.Z, 1e-12)
}

func TestSmoother_KeepsMostRecentWindow(t *testing.T) {
	s := New(TrackerWindow)
	for i := 1; i <= 25; i++ {
		s.Push(r3.Vec{X: float64(i)})
	}

	require.Equal(t, 20, s.Len())
	got := s.Positions()
	assert.Equal(t, 6.0, got[0].X)
	assert.Equal(t, 25.0, got[19].X)

	// mean of 6..25
	avg, ok := s.Average()
	require.True(t, ok)
	assert.InDelta(t, 15.5, avg.X, 1e-12)
}

func TestSmoother_FocusSquareWindow(t *testing.T) {
	s := New(FocusSquareWindow)
	for i := 1; i <= 12; i++ {
		s.Push(r3.Vec{Y: float64(i)})
	}
	assert.Equal(t, 10, s.Len())
	assert.Equal(t, 10, s.Window())

	avg, _ := s.Average()
	assert.InDelta(t, 7.5, avg.Y, 1e-12) // mean of 3..12
}

func TestSmoother_Reset(t *testing.T) {
	s := New(TrackerWindow)
	s.Push(r3.Vec{X: 1})
	s.Reset()

	_, ok := s.Average()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
