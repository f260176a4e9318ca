package alignment

import (
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/geom"
	"focustrack/pkg/model"
)

// pivotDistance is where the two linear scale regimes meet at scale 1.
const pivotDistance = 0.7

// ScaleForDistance shrinks the marker linearly when closer than pivotDistance
// and grows it slowly beyond.
func ScaleForDistance(d float64) float64 {
	if d < pivotDistance {
		return d / pivotDistance
	}
	return 0.25*d + 0.825
}

// Scale returns the display scale for a marker at pos. Without a camera pose the
// scale is 1.
func Scale(pos r3.Vec, cam *model.CameraPose) float64 {
	if cam == nil {
		return 1.0
	}
	return ScaleForDistance(geom.Distance(pos, cam.Position))
}
