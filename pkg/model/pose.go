package model

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Parent is the frame a published pose is expressed in.
type Parent string

const (
	ParentCamera Parent = "camera"
	ParentWorld  Parent = "world"
)

// Style is the visual style of the marker.
type Style string

const (
	// StyleOpen is shown while the surface is only estimated.
	StyleOpen Style = "open"
	// StyleClosed is shown on a confirmed surface.
	StyleClosed Style = "closed"
)

// Pose is what the tracker hands to the rendering sink each frame.
type Pose struct {
	Position    r3.Vec      `json:"position"`
	Orientation quat.Number `json:"orientation"`
	Scale       float64     `json:"scale"`
	Parent      Parent      `json:"parent"`
	Style       Style       `json:"style"`
	// Flash is set on the first frame a surface is confirmed.
	Flash bool `json:"flash"`
	// OnTop asks the renderer to draw the marker over scene geometry.
	OnTop bool `json:"on_top"`
}
