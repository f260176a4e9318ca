package config

// Persistent state keys for runtime overrides.
const (
	KeyMarkerHidden       = "marker_hidden"
	KeyAllowInfinitePlane = "allow_infinite_plane"
	KeyReferenceHeight    = "reference_height"
	KeyHeightTolerance    = "height_tolerance"
	KeyVerticalFallback   = "vertical_fallback"
	KeyAlignments         = "alignments"
)
