package main

import (
	"context"
	"log/slog"
	"time"

	"focustrack/internal/api"
	"focustrack/pkg/alignment"
	"focustrack/pkg/config"
	"focustrack/pkg/model"
	"focustrack/pkg/sensor"
	"focustrack/pkg/session"
	"focustrack/pkg/surface"
	"focustrack/pkg/tracker"
)

// overridePoll is how often runtime overrides are read from the state store.
const overridePoll = time.Second

type frameSource interface {
	sensor.Source
	Advance() bool
}

type frameLoop struct {
	src      frameSource
	tracker  *tracker.Tracker
	provider config.Provider
	status   *api.StatusHandler
	session  *session.Manager
	interval time.Duration
	max      int

	frame  int
	hidden bool
}

// run advances the sensor and ticks the tracker once per interval until the
// context ends, the script runs out or max frames were processed.
func (l *frameLoop) run(ctx context.Context) error {
	interval := l.interval
	if interval <= 0 {
		interval = time.Second / 60
	}
	pollEvery := int(overridePoll / interval)
	if pollEvery < 1 {
		pollEvery = 1
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !l.step(ctx, pollEvery) {
			slog.Info("Frame loop finished", "frames", l.frame)
			return nil
		}
	}
}

// step processes one frame. It returns false when the loop should stop.
func (l *frameLoop) step(ctx context.Context, pollEvery int) bool {
	if !l.src.Advance() {
		return false
	}
	if l.frame%pollEvery == 0 {
		l.applyOverrides(ctx)
	}
	l.tracker.Tick()
	// The billboard shows the marker whenever tracking is lost; a hidden
	// override wins over that.
	if l.hidden && l.tracker.Visible() {
		l.tracker.Hide()
	}
	l.frame++
	l.report()
	return l.max <= 0 || l.frame < l.max
}

func (l *frameLoop) applyOverrides(ctx context.Context) {
	if hidden := l.provider.MarkerHidden(ctx); hidden != l.hidden {
		l.hidden = hidden
		if hidden {
			slog.Info("Hiding marker")
			l.tracker.Hide()
		} else {
			slog.Info("Showing marker")
			l.tracker.Show()
		}
	}
	l.tracker.SetSelectOptions(selectOptions(l.provider.Selection(ctx)))
}

func (l *frameLoop) report() {
	if l.status == nil {
		return
	}
	st := &api.Status{
		Frame:          l.frame,
		State:          l.tracker.State().Kind.String(),
		Pose:           l.tracker.Pose(),
		Committed:      l.tracker.CommittedAlignment(),
		AlignmentState: l.tracker.AlignmentState().String(),
		Visited:        l.tracker.VisitedSurfaces(),
		Hidden:         l.hidden,
	}
	if cam, ok := l.src.Camera(); ok {
		st.Camera = &cam
	}
	if pos, ok := l.tracker.LastPosition(); ok {
		st.LastPosition = &pos
	}
	if l.session != nil {
		st.Session = l.session.Session().ID
	}
	l.status.Update(st)
}

// selectOptions converts the configured selection policy.
func selectOptions(sel config.SelectionConfig) surface.Options {
	opts := surface.Options{
		AllowInfinitePlane: sel.AllowInfinitePlane,
		ReferenceHeight:    sel.ReferenceHeight,
		HeightTolerance:    sel.HeightTolerance.Meters(),
		VerticalFallback:   sel.VerticalFallback,
	}
	for _, a := range sel.Alignments {
		switch model.Alignment(a) {
		case model.AlignmentHorizontal:
			opts.Allowed.Horizontal = true
		case model.AlignmentVertical:
			opts.Allowed.Vertical = true
		}
	}
	if !opts.Allowed.Horizontal && !opts.Allowed.Vertical {
		opts.Allowed = model.AllAlignments
	}
	return opts
}

// trackerConfig builds the tracker settings for the configured variant.
func trackerConfig(cfg *config.Config, sel config.SelectionConfig) tracker.Config {
	tc := tracker.DefaultConfig()
	if cfg.Tracker.Variant == config.VariantFocusSquare {
		tc = tracker.FocusSquareConfig()
	}
	if cfg.Tracker.PositionWindow > 0 {
		tc.PositionWindow = cfg.Tracker.PositionWindow
	}
	if d := cfg.Tracker.BillboardDistance.Meters(); d > 0 {
		tc.BillboardDistance = d
	}
	if d := cfg.Tracker.FadeDuration.Std(); d > 0 {
		tc.FadeDuration = d
	}
	tc.Alignment = alignment.Config{
		HorizontalVotes:    cfg.Tracker.HorizontalVotes,
		VerticalVotes:      cfg.Tracker.VerticalVotes,
		TransitionDuration: cfg.Tracker.TransitionDuration.Std(),
	}
	if tc.Alignment.TransitionDuration <= 0 {
		tc.Alignment.TransitionDuration = alignment.DefaultTransitionDuration
	}
	tc.Select = selectOptions(sel)
	return tc
}
