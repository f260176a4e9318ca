// Package surface ranks the surface-detection candidates returned by a hit test
// and picks the single most relevant one.
package surface

import (
	"math"

	"focustrack/pkg/model"
)

// DefaultHeightTolerance is how far a horizontal infinite-plane hit may sit from
// the reference height and still be accepted.
const DefaultHeightTolerance = 0.05

// Options controls a selection.
type Options struct {
	// AllowInfinitePlane lets confirmed surfaces be extended beyond their detected extent.
	AllowInfinitePlane bool
	// ReferenceHeight, when set, restricts horizontal infinite-plane hits to
	// surfaces near this world Y (keeps a marker on the table rather than the floor).
	ReferenceHeight *float64
	Allowed         model.AlignmentSet
	// HeightTolerance defaults to DefaultHeightTolerance when zero.
	HeightTolerance float64
	// VerticalFallback lets a vertical-only selection fall back to an
	// estimated horizontal hit when no estimated vertical one exists.
	VerticalFallback bool
}

// DefaultOptions allows both alignments with no infinite-plane extension.
func DefaultOptions() Options {
	return Options{
		Allowed:         model.AllAlignments,
		HeightTolerance: DefaultHeightTolerance,
	}
}

// HitTester produces ranked candidates for a screen point.
type HitTester interface {
	HitTest(point model.ScreenPoint) []model.Candidate
}

// SelectAt hit-tests point and selects among the results.
func SelectAt(ht HitTester, point model.ScreenPoint, opts Options) (model.Candidate, bool) {
	return Select(ht.HitTest(point), opts)
}

// Select returns the most relevant candidate. Candidates are expected to be ranked
// nearest first; the first match of a rule wins. Select has no side effects.
func Select(candidates []model.Candidate, opts Options) (model.Candidate, bool) {
	// 1. A hit within a confirmed surface's extent.
	for _, c := range candidates {
		if c.Kind == model.HitExistingPlaneGeometry && c.Confirmed() && opts.Allowed.Contains(c.Alignment) {
			return c, true
		}
	}

	// 2. A confirmed surface extended indefinitely.
	if opts.AllowInfinitePlane {
		if c, ok := selectInfinite(candidates, opts); ok {
			return c, true
		}
	}

	// 3. Estimated surfaces.
	return selectEstimated(candidates, opts)
}

func selectInfinite(candidates []model.Candidate, opts Options) (model.Candidate, bool) {
	tol := opts.HeightTolerance
	if tol <= 0 {
		tol = DefaultHeightTolerance
	}

	for _, c := range candidates {
		if c.Kind != model.HitExistingPlane || !c.Confirmed() || !opts.Allowed.Contains(c.Alignment) {
			continue
		}
		if c.Alignment == model.AlignmentVertical {
			return c, true
		}
		if opts.ReferenceHeight == nil {
			return c, true
		}
		if math.Abs(c.Position().Y-*opts.ReferenceHeight) < tol {
			return c, true
		}
	}
	return model.Candidate{}, false
}

func selectEstimated(candidates []model.Candidate, opts Options) (model.Candidate, bool) {
	h, hOK := first(candidates, model.HitEstimatedHorizontal)
	v, vOK := first(candidates, model.HitEstimatedVertical)

	switch {
	case opts.Allowed.Horizontal && !opts.Allowed.Vertical:
		return h, hOK
	case !opts.Allowed.Horizontal && opts.Allowed.Vertical:
		if vOK {
			return v, true
		}
		if opts.VerticalFallback {
			return h, hOK
		}
		return model.Candidate{}, false
	case opts.Allowed.Horizontal && opts.Allowed.Vertical:
		if hOK && vOK {
			if h.Distance <= v.Distance {
				return h, true
			}
			return v, true
		}
		if hOK {
			return h, true
		}
		return v, vOK
	}
	return model.Candidate{}, false
}

func first(candidates []model.Candidate, kind model.HitKind) (model.Candidate, bool) {
	for _, c := range candidates {
		if c.Kind == kind {
			return c, true
		}
	}
	return model.Candidate{}, false
}
