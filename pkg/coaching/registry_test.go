package coaching

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focustrack/pkg/model"
)

func newTestRegistry() *Registry {
	r := NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return r
}

func TestRegistryLifecycle(t *testing.T) {
	r := newTestRegistry()
	floor := model.Surface{ID: uuid.New(), Alignment: model.AlignmentHorizontal, Extent: [2]float64{1, 1}}
	wall := model.Surface{ID: uuid.New(), Alignment: model.AlignmentVertical}

	r.SurfaceAdded(floor)
	r.SurfaceAdded(wall)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, r.Count(model.AlignmentHorizontal))

	floor.Extent = [2]float64{2, 3}
	r.SurfaceUpdated(floor)
	e, ok := r.Get(floor.ID)
	require.True(t, ok)
	assert.Equal(t, [2]float64{2, 3}, e.Extent)
	assert.Equal(t, 1, e.Updates)
	assert.True(t, e.UpdatedAt.After(e.FirstSeen))

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, floor.ID, snap[0].ID, "ordered by first sighting")

	r.SurfaceRemoved(floor.ID)
	_, ok = r.Get(floor.ID)
	assert.False(t, ok)
	r.SurfaceRemoved(floor.ID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryUpdateUnknown(t *testing.T) {
	r := newTestRegistry()
	s := model.Surface{ID: uuid.New(), Alignment: model.AlignmentVertical}
	r.SurfaceUpdated(s)
	e, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, 0, e.Updates)
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				s := model.Surface{ID: uuid.New(), Alignment: model.AlignmentHorizontal}
				r.SurfaceAdded(s)
				_ = r.Snapshot()
				r.SurfaceRemoved(s.ID)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
