// Package alignment decides how the marker is oriented. It computes a target yaw
// from the camera, keeps a vote history of observed surface alignments, and only
// commits to a new alignment once enough recent frames agree.
package alignment

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"focustrack/pkg/geom"
	"focustrack/pkg/model"
	"focustrack/pkg/ring"
)

// HistoryWindow is the number of recent alignment observations kept for voting.
const HistoryWindow = 20

// State of the stabilizer.
type State int

const (
	StateNotDetermined State = iota
	StateChanging
	StateAligned
)

func (s State) String() string {
	switch s {
	case StateChanging:
		return "changing"
	case StateAligned:
		return "aligned"
	}
	return "not_determined"
}

// Config holds the voting thresholds and animation timing.
type Config struct {
	// HorizontalVotes: commit horizontal when more than this many of the
	// history entries are horizontal.
	HorizontalVotes int
	// VerticalVotes: commit vertical when more than this many are vertical.
	VerticalVotes      int
	TransitionDuration time.Duration
}

// DefaultConfig returns the production thresholds. The asymmetry between
// horizontal and vertical is intentional.
func DefaultConfig() Config {
	return Config{
		HorizontalVotes:    15,
		VerticalVotes:      10,
		TransitionDuration: DefaultTransitionDuration,
	}
}

// Decision is the outcome of one Update.
type Decision struct {
	// Updated is true when the orientation was set this frame.
	Updated     bool
	Orientation quat.Number
	// Alignment is the committed alignment after the update.
	Alignment model.Alignment
	// Committed is true when the committed alignment changed this frame.
	Committed bool
	// Transition is non-nil when the change must be animated.
	Transition *Transition
	// Dropped is true when the frame arrived during an in-flight transition.
	Dropped bool
}

// Stabilizer owns the alignment history and committed alignment of one tracker.
// It must only be used from the tracker's tick context.
type Stabilizer struct {
	cfg         Config
	logger      *slog.Logger
	history     *ring.Buffer[model.Alignment]
	committed   model.Alignment
	state       State
	orientation quat.Number
	pending     *Transition
}

// New creates a Stabilizer. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Stabilizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TransitionDuration <= 0 {
		cfg.TransitionDuration = DefaultTransitionDuration
	}
	return &Stabilizer{
		cfg:         cfg,
		logger:      logger,
		history:     ring.New[model.Alignment](HistoryWindow),
		orientation: geom.Identity,
	}
}

// ObservedAlignment is the alignment a candidate votes for: the surface's own
// alignment when confirmed, otherwise derived from the estimate kind.
func ObservedAlignment(c model.Candidate) model.Alignment {
	if c.Confirmed() {
		return c.Alignment
	}
	switch c.Kind {
	case model.HitEstimatedHorizontal:
		return model.AlignmentHorizontal
	case model.HitEstimatedVertical:
		return model.AlignmentVertical
	}
	return model.AlignmentNone
}

// Update evaluates one accepted detection. With no camera pose there is no target
// yaw and nothing changes.
func (s *Stabilizer) Update(hit model.Candidate, cam *model.CameraPose) Decision {
	s.poll()

	d := Decision{Orientation: s.orientation, Alignment: s.committed}
	if cam == nil {
		return d
	}
	if s.state == StateChanging {
		d.Dropped = true
		return d
	}

	target := geom.YawRotation(TargetYaw(*cam))

	observed := ObservedAlignment(hit)
	if observed != model.AlignmentNone {
		s.history.Push(observed)
	}

	if !s.gate(observed, hit) {
		return d
	}

	animate := false
	if observed != s.committed {
		s.logger.Debug("Alignment committed", "from", s.committed, "to", observed, "confirmed", hit.Confirmed())
		s.committed = observed
		s.history.Clear()
		animate = true
		d.Committed = true
	}

	// A vertical surface's own transform already encodes its normal.
	if observed == model.AlignmentVertical {
		target = geom.Normalize(hit.Transform.Orientation)
		animate = true
	}

	d.Updated = true
	d.Alignment = s.committed
	d.Orientation = target

	if animate {
		t := NewTransition(s.orientation, target, s.committed, s.cfg.TransitionDuration)
		s.pending = t
		s.state = StateChanging
		d.Transition = t
	} else {
		s.state = StateAligned
	}
	s.orientation = target
	return d
}

// gate is the hysteresis check. Confirmed surfaces bypass the vote.
func (s *Stabilizer) gate(observed model.Alignment, hit model.Candidate) bool {
	if hit.Confirmed() {
		return true
	}
	switch observed {
	case model.AlignmentHorizontal:
		return s.votes(model.AlignmentHorizontal) > s.cfg.HorizontalVotes
	case model.AlignmentVertical:
		return s.votes(model.AlignmentVertical) > s.cfg.VerticalVotes
	}
	return false
}

func (s *Stabilizer) votes(a model.Alignment) int {
	return s.history.Count(func(v model.Alignment) bool { return v == a })
}

// poll flips Changing to Aligned once the pending transition has completed.
func (s *Stabilizer) poll() {
	if s.pending == nil || !s.pending.Completed() {
		return
	}
	s.logger.Debug("Alignment transition finished", "alignment", s.pending.Alignment)
	s.pending = nil
	if s.state == StateChanging {
		s.state = StateAligned
	}
}

// State returns the current stabilizer state.
func (s *Stabilizer) State() State {
	s.poll()
	return s.state
}

// Committed returns the committed alignment.
func (s *Stabilizer) Committed() model.Alignment {
	return s.committed
}

// Orientation returns the latest target orientation.
func (s *Stabilizer) Orientation() quat.Number {
	return s.orientation
}

// History returns the alignment votes, oldest first.
func (s *Stabilizer) History() []model.Alignment {
	return s.history.Slice()
}

// Reset forgets the committed alignment, the vote history and any pending
// transition. The orientation is kept.
func (s *Stabilizer) Reset() {
	s.history.Clear()
	s.committed = model.AlignmentNone
	s.state = StateNotDetermined
	s.pending = nil
}
