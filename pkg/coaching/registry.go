// Package coaching keeps the set of surfaces the sensor session has detected, so
// hosts can draw a coaching grid and report what the tracker may confirm.
package coaching

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"focustrack/pkg/model"
	"focustrack/pkg/sensor"
)

// Entry is a registered surface with its bookkeeping.
type Entry struct {
	model.Surface
	FirstSeen time.Time `json:"first_seen"`
	UpdatedAt time.Time `json:"updated_at"`
	Updates   int       `json:"updates"`
}

// Registry is a thread-safe map of detected surfaces keyed by identity.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	logger  *slog.Logger
	now     func() time.Time
}

var _ sensor.AnchorObserver = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[uuid.UUID]*Entry),
		logger:  logger.With("component", "coaching"),
		now:     time.Now,
	}
}

// SurfaceAdded registers a new surface. Re-adding a known id replaces its geometry.
func (r *Registry) SurfaceAdded(s model.Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if e, ok := r.entries[s.ID]; ok {
		e.Surface = s
		e.UpdatedAt = now
		return
	}
	r.entries[s.ID] = &Entry{Surface: s, FirstSeen: now, UpdatedAt: now}
	r.logger.Debug("Surface added", "id", s.ID, "alignment", s.Alignment.String())
}

// SurfaceUpdated refines a known surface; unknown ids are registered.
func (r *Registry) SurfaceUpdated(s model.Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e, ok := r.entries[s.ID]
	if !ok {
		r.entries[s.ID] = &Entry{Surface: s, FirstSeen: now, UpdatedAt: now}
		return
	}
	e.Surface = s
	e.UpdatedAt = now
	e.Updates++
}

// SurfaceRemoved drops a surface.
func (r *Registry) SurfaceRemoved(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		delete(r.entries, id)
		r.logger.Debug("Surface removed", "id", id)
	}
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id uuid.UUID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of registered surfaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns all entries ordered by first sighting.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

// Count returns the number of surfaces with the given alignment.
func (r *Registry) Count(a model.Alignment) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.Alignment == a {
			n++
		}
	}
	return n
}
