// Package tracker drives the focus marker. Each tick it reads the sensor, picks a
// candidate at the viewport center, runs the pure state transition and executes
// the resulting effects: events to the listener and poses to the sink.
package tracker

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/alignment"
	"focustrack/pkg/geom"
	"focustrack/pkg/logging"
	"focustrack/pkg/model"
	"focustrack/pkg/sensor"
	"focustrack/pkg/smoother"
	"focustrack/pkg/surface"
	"focustrack/pkg/visibility"
)

// DefaultBillboardDistance is how far in front of the camera the marker floats
// while uninitialized.
const DefaultBillboardDistance = 0.8

// Config holds tracker settings.
type Config struct {
	// PositionWindow is the size of the position history averaged each frame.
	PositionWindow    int
	Select            surface.Options
	Alignment         alignment.Config
	BillboardDistance float64
	FadeDuration      time.Duration
}

// DefaultConfig is the plane tracker variant.
func DefaultConfig() Config {
	return Config{
		PositionWindow:    smoother.TrackerWindow,
		Select:            surface.DefaultOptions(),
		Alignment:         alignment.DefaultConfig(),
		BillboardDistance: DefaultBillboardDistance,
		FadeDuration:      visibility.DefaultFadeDuration,
	}
}

// FocusSquareConfig is the focus square variant: a shorter position history.
func FocusSquareConfig() Config {
	cfg := DefaultConfig()
	cfg.PositionWindow = smoother.FocusSquareWindow
	return cfg
}

// Tracker owns all per-marker state. Tick and the other mutating methods must be
// called from a single goroutine; Stats may be read from anywhere.
type Tracker struct {
	cfg      Config
	src      sensor.Source
	sink     Sink
	listener Listener
	logger   *slog.Logger

	state      State
	parent     model.Parent
	pose       model.Pose
	published  bool
	positions  *smoother.Smoother
	stabilizer *alignment.Stabilizer
	fader      *visibility.Fader
	visited    map[uuid.UUID]struct{}

	stats Stats
}

// New creates a tracker reading from src and publishing to sink.
func New(src sensor.Source, sink Sink, cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PositionWindow <= 0 {
		cfg.PositionWindow = smoother.TrackerWindow
	}
	if cfg.BillboardDistance <= 0 {
		cfg.BillboardDistance = DefaultBillboardDistance
	}
	def := alignment.DefaultConfig()
	if cfg.Alignment.HorizontalVotes <= 0 {
		cfg.Alignment.HorizontalVotes = def.HorizontalVotes
	}
	if cfg.Alignment.VerticalVotes <= 0 {
		cfg.Alignment.VerticalVotes = def.VerticalVotes
	}
	if cfg.Alignment.TransitionDuration <= 0 {
		cfg.Alignment.TransitionDuration = def.TransitionDuration
	}
	logger = logger.With("component", "tracker")
	return &Tracker{
		cfg:        cfg,
		src:        src,
		sink:       sink,
		listener:   nopListener{},
		logger:     logger,
		pose:       billboardPose(cfg.BillboardDistance),
		positions:  smoother.New(cfg.PositionWindow),
		stabilizer: alignment.New(cfg.Alignment, logger),
		fader:      visibility.NewFader(cfg.FadeDuration),
		visited:    make(map[uuid.UUID]struct{}),
	}
}

// SetListener replaces the event listener. Nil disables events.
func (t *Tracker) SetListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	t.listener = l
}

// SetSelectOptions replaces the candidate selection policy from the next tick on.
func (t *Tracker) SetSelectOptions(opts surface.Options) {
	t.cfg.Select = opts
}

// SelectOptions returns the selection policy in use.
func (t *Tracker) SelectOptions() surface.Options {
	return t.cfg.Select
}

// Tick processes one frame.
func (t *Tracker) Tick() {
	t.stats.inc(&t.stats.Ticks)
	t.apply(t.observe())
}

// observe builds the candidate next state from the sensor.
func (t *Tracker) observe() State {
	cam, ok := t.src.Camera()
	if !ok || !sensor.Nominal(cam) {
		return Uninitialized()
	}
	hit, ok := surface.SelectAt(t.src, t.src.ViewportCenter(), t.cfg.Select)
	if !ok {
		logging.Trace(t.logger, "No candidate at viewport center")
		return Uninitialized()
	}
	logging.Trace(t.logger, "Candidate selected", "kind", hit.Kind, "alignment", hit.Alignment, "distance", hit.Distance)
	return Tracking(hit, &cam)
}

func (t *Tracker) apply(next State) {
	prev := t.state.Kind
	state, effects := Transition(t.state, next, t.visited)
	t.state = state
	if len(effects) == 0 {
		t.stats.inc(&t.stats.NoOps)
		return
	}
	t.stats.inc(&t.stats.Transitions)
	if prev != state.Kind {
		t.logger.Debug("State changed", "from", prev, "to", state.Kind)
	}
	// The first placement fades the marker in. Afterwards only the billboard
	// shows it, so a host Hide holds while tracking.
	if prev == StateNone {
		t.show()
	}
	for _, e := range effects {
		t.execute(e)
	}
}

func (t *Tracker) execute(e Effect) {
	switch e.Kind {
	case EffectReparent:
		t.parent = e.Parent

	case EffectReset:
		t.positions.Reset()
		t.stabilizer.Reset()

	case EffectBillboard:
		t.pose = billboardPose(t.cfg.BillboardDistance)
		t.show()
		t.publish()

	case EffectEmitInitialized:
		t.stats.inc(&t.stats.Initialized)
		t.listener.OnInitialized()

	case EffectEmitConfirmed:
		t.stats.inc(&t.stats.Confirmed)
		t.listener.OnSurfaceConfirmed(e.SurfaceID, e.Hit.Position(), e.Camera)

	case EffectEmitNotConfirmed:
		t.stats.inc(&t.stats.NotConfirmed)
		t.listener.OnSurfaceNotConfirmed(e.Hit.Position(), e.Camera)

	case EffectRecordSurface:
		if _, ok := t.visited[e.SurfaceID]; !ok {
			t.logger.Info("Surface visited", "id", e.SurfaceID)
		}
		t.visited[e.SurfaceID] = struct{}{}

	case EffectUpdateTransform:
		t.updateTransform(e)
	}
}

func (t *Tracker) updateTransform(e Effect) {
	t.positions.Push(e.Hit.Position())
	avg, ok := t.positions.Average()
	if !ok {
		return
	}

	d := t.stabilizer.Update(e.Hit, e.Camera)
	if d.Dropped {
		t.stats.inc(&t.stats.DroppedAlignments)
	}
	if d.Committed {
		t.stats.inc(&t.stats.AlignmentCommits)
		if al, ok := t.listener.(AlignmentListener); ok {
			al.OnAlignmentCommitted(d.Alignment, e.Hit.Position())
		}
	}

	t.pose.Position = avg
	t.pose.Scale = alignment.Scale(avg, e.Camera)
	t.pose.Parent = t.parent
	t.pose.Style = e.Style
	t.pose.Flash = e.Flash
	if d.Updated {
		t.pose.Orientation = d.Orientation
	}
	if d.Transition != nil {
		t.stats.inc(&t.stats.Animations)
		t.sink.Animate(d.Transition)
	}
	t.publish()
}

func (t *Tracker) publish() {
	t.pose.OnTop = t.fader.Visible()
	t.published = true
	t.sink.Publish(t.pose)
}

func (t *Tracker) show() {
	if f := t.fader.Show(); f != nil {
		t.stats.inc(&t.stats.Fades)
		t.sink.Fade(f)
	}
}

// Hide fades the marker out. Repeated calls while a fade-out runs do nothing.
func (t *Tracker) Hide() {
	if f := t.fader.Hide(); f != nil {
		t.stats.inc(&t.stats.Fades)
		t.sink.Fade(f)
		if t.published {
			t.publish()
		}
	}
}

// Show fades the marker in. Repeated calls while a fade-in runs do nothing.
func (t *Tracker) Show() {
	if f := t.fader.Show(); f != nil {
		t.stats.inc(&t.stats.Fades)
		t.sink.Fade(f)
		if t.published {
			t.publish()
		}
	}
}

// Visible reports whether the marker is shown or fading in.
func (t *Tracker) Visible() bool {
	return t.fader.Visible()
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// LastPosition is the latest hit position; absent unless tracking.
func (t *Tracker) LastPosition() (r3.Vec, bool) {
	if t.state.Kind != StateTracking {
		return r3.Vec{}, false
	}
	return t.state.Candidate.Position(), true
}

// CommittedAlignment returns the alignment the marker is currently oriented to.
func (t *Tracker) CommittedAlignment() model.Alignment {
	return t.stabilizer.Committed()
}

// AlignmentState returns the stabilizer state.
func (t *Tracker) AlignmentState() alignment.State {
	return t.stabilizer.State()
}

// VisitedSurfaces returns the confirmed surfaces seen so far, sorted.
func (t *Tracker) VisitedSurfaces() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(t.visited))
	for id := range t.visited {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Visited reports whether the surface has been confirmed before.
func (t *Tracker) Visited(id uuid.UUID) bool {
	_, ok := t.visited[id]
	return ok
}

// Pose returns the last published pose.
func (t *Tracker) Pose() model.Pose {
	return t.pose
}

// Stats returns a snapshot of the counters. Safe for concurrent use.
func (t *Tracker) Stats() Stats {
	return t.stats.Snapshot()
}

// billboardPose is the pose in camera space: straight ahead, facing the camera.
func billboardPose(distance float64) model.Pose {
	return model.Pose{
		Position:    r3.Vec{Z: -distance},
		Orientation: geom.AxisAngle(r3.Vec{X: 1}, math.Pi/2),
		Scale:       1,
		Parent:      model.ParentCamera,
		Style:       model.StyleOpen,
	}
}
