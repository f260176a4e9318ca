package model

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is a confirmed surface reported by the sensor session.
type Surface struct {
	ID        uuid.UUID `json:"id"`
	Alignment Alignment `json:"alignment"`
	Center    r3.Vec    `json:"center"`
	// Extent is the detected width and length of the surface.
	Extent [2]float64 `json:"extent"`
}
