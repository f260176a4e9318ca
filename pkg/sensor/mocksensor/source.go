// Package mocksensor provides a scripted sensor.Source that replays frames from a
// YAML scenario or a procedurally generated session.
package mocksensor

import (
	"log/slog"
	"sync"

	"focustrack/pkg/model"
	"focustrack/pkg/sensor"
)

// AnchorOp is a surface lifecycle change carried by a frame.
type AnchorOp string

const (
	AnchorAdd    AnchorOp = "add"
	AnchorUpdate AnchorOp = "update"
	AnchorRemove AnchorOp = "remove"
)

// AnchorEvent is applied to the anchor observer when its frame becomes current.
type AnchorEvent struct {
	Op      AnchorOp
	Surface model.Surface
}

// Frame is one scripted sensor frame. A nil Camera means no frame yet.
type Frame struct {
	Camera  *model.CameraPose
	Hits    []model.Candidate
	Anchors []AnchorEvent
}

// Config holds replay settings for the mock source.
type Config struct {
	Viewport Viewport
	// Loop restarts from the first frame after the last one.
	Loop   bool
	Logger *slog.Logger
}

// Source implements sensor.Source over a fixed list of frames.
type Source struct {
	mu       sync.Mutex
	frames   []Frame
	idx      int
	loops    int
	config   Config
	observer sensor.AnchorObserver
	logger   *slog.Logger

	lastPoint model.ScreenPoint
}

var _ sensor.Source = (*Source)(nil)

// NewSource creates a source positioned before the first frame.
func NewSource(frames []Frame, cfg Config) *Source {
	if cfg.Viewport.Width == 0 || cfg.Viewport.Height == 0 {
		cfg.Viewport = Viewport{Width: 390, Height: 844}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		frames: frames,
		idx:    -1,
		config: cfg,
		logger: logger.With("component", "mocksensor"),
	}
}

// FromScenario builds a source from a parsed scenario.
func FromScenario(sc *Scenario, logger *slog.Logger) (*Source, error) {
	frames, err := sc.Build()
	if err != nil {
		return nil, err
	}
	return NewSource(frames, Config{Viewport: sc.Viewport, Loop: sc.Loop, Logger: logger}), nil
}

// SetAnchorObserver registers the receiver of surface lifecycle events.
func (s *Source) SetAnchorObserver(o sensor.AnchorObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Advance moves to the next frame and applies its anchor events. It returns
// false once the script is exhausted; the last frame stays current.
func (s *Source) Advance() bool {
	s.mu.Lock()
	if len(s.frames) == 0 {
		s.mu.Unlock()
		return false
	}
	next := s.idx + 1
	if next >= len(s.frames) {
		if !s.config.Loop {
			s.mu.Unlock()
			return false
		}
		next = 0
		s.loops++
		s.logger.Debug("Scenario restarted", "loops", s.loops)
	}
	s.idx = next
	events := s.frames[next].Anchors
	obs := s.observer
	s.mu.Unlock()

	// Observers run outside the lock so they may call back into the source.
	if obs != nil {
		for _, ev := range events {
			switch ev.Op {
			case AnchorAdd:
				obs.SurfaceAdded(ev.Surface)
			case AnchorUpdate:
				obs.SurfaceUpdated(ev.Surface)
			case AnchorRemove:
				obs.SurfaceRemoved(ev.Surface.ID)
			}
		}
	}
	return true
}

// Camera implements sensor.Source.
func (s *Source) Camera() (model.CameraPose, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.current()
	if f == nil || f.Camera == nil {
		return model.CameraPose{}, false
	}
	return *f.Camera, true
}

// HitTest implements sensor.Source. Scripted hits are returned for any point.
func (s *Source) HitTest(point model.ScreenPoint) []model.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPoint = point
	f := s.current()
	if f == nil || len(f.Hits) == 0 {
		return nil
	}
	out := make([]model.Candidate, len(f.Hits))
	copy(out, f.Hits)
	return out
}

// ViewportCenter implements sensor.Source.
func (s *Source) ViewportCenter() model.ScreenPoint {
	return s.config.Viewport.Center()
}

// Index is the current frame index, -1 before the first Advance.
func (s *Source) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

// Len is the number of frames in the script.
func (s *Source) Len() int {
	return len(s.frames)
}

// LastHitPoint is the point passed to the most recent HitTest.
func (s *Source) LastHitPoint() model.ScreenPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoint
}

func (s *Source) current() *Frame {
	if s.idx < 0 || s.idx >= len(s.frames) {
		return nil
	}
	return &s.frames[s.idx]
}
