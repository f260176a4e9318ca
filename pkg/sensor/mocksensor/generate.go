package mocksensor

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/geom"
	"focustrack/pkg/model"
)

const (
	floorY = -1.4
	wallZ  = -2.0
	jitter = 0.01
)

// DefaultScenario generates a session that walks through every tracker path:
// initialization, an estimated floor, a confirmed floor, lost tracking, an
// estimated wall and a confirmed wall. The same seed yields the same frames.
func DefaultScenario(seed int64) []Frame {
	g := &generator{rng: rand.New(rand.NewSource(seed))}

	g.limited(10)
	g.floor(40, nil)

	floor := g.surface(model.AlignmentHorizontal, r3.Vec{Z: -1.2, Y: floorY}, [2]float64{2, 3})
	g.anchor(AnchorAdd, floor)
	g.floor(40, &floor)

	g.limited(10)
	g.wall(30, nil)

	wall := g.surface(model.AlignmentVertical, r3.Vec{Z: wallZ}, [2]float64{3, 2.5})
	g.anchor(AnchorAdd, wall)
	floor.Extent = [2]float64{3, 4}
	g.anchor(AnchorUpdate, floor)
	g.wall(30, &wall)

	return g.frames
}

type generator struct {
	rng     *rand.Rand
	frames  []Frame
	pending []AnchorEvent
	t       int
}

func (g *generator) surface(al model.Alignment, center r3.Vec, extent [2]float64) model.Surface {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		id = uuid.New()
	}
	return model.Surface{ID: id, Alignment: al, Center: center, Extent: extent}
}

func (g *generator) anchor(op AnchorOp, s model.Surface) {
	g.pending = append(g.pending, AnchorEvent{Op: op, Surface: s})
}

func (g *generator) push(f Frame) {
	f.Anchors = g.pending
	g.pending = nil
	g.frames = append(g.frames, f)
	g.t++
}

func (g *generator) camera(q model.TrackingQuality, pitch, yaw float64) *model.CameraPose {
	sway := float64(g.t) / 30
	pos := r3.Vec{X: 0.05 * math.Sin(sway), Y: 0.02 * math.Cos(sway*1.7)}
	return &model.CameraPose{
		Position:    pos,
		Orientation: geom.FromEuler(pitch, yaw, 0),
		Euler:       model.Euler{Pitch: pitch, Yaw: yaw},
		Quality:     q,
	}
}

func (g *generator) limited(n int) {
	for range n {
		g.push(Frame{Camera: g.camera(model.QualityLimited, -0.3, 0)})
	}
}

// floor aims the camera down at the floor plane.
func (g *generator) floor(n int, s *model.Surface) {
	for range n {
		yaw := 0.2 * math.Sin(float64(g.t)/20)
		cam := g.camera(model.QualityNormal, -0.6, yaw)
		f := Frame{Camera: cam}
		if p, d, ok := g.cast(cam, func(o, dir r3.Vec) float64 { return (floorY - o.Y) / dir.Y }); ok {
			est := model.Candidate{
				Kind:      model.HitEstimatedHorizontal,
				Alignment: model.AlignmentHorizontal,
				Transform: model.Transform{Position: p, Orientation: geom.Identity},
				Distance:  d,
			}
			if s != nil {
				hit := est
				hit.Kind = model.HitExistingPlaneGeometry
				hit.SurfaceID = s.ID
				f.Hits = append(f.Hits, hit)
			}
			f.Hits = append(f.Hits, est)
		}
		g.push(f)
	}
}

// wall aims the camera straight ahead at a wall facing +Z.
func (g *generator) wall(n int, s *model.Surface) {
	facing := geom.FromEuler(math.Pi/2, 0, 0)
	for range n {
		yaw := 0.15 * math.Sin(float64(g.t)/25)
		cam := g.camera(model.QualityNormal, 0, yaw)
		f := Frame{Camera: cam}
		if p, d, ok := g.cast(cam, func(o, dir r3.Vec) float64 { return (wallZ - o.Z) / dir.Z }); ok {
			est := model.Candidate{
				Kind:      model.HitEstimatedVertical,
				Alignment: model.AlignmentVertical,
				Transform: model.Transform{Position: p, Orientation: facing},
				Distance:  d,
			}
			if s != nil {
				hit := est
				hit.Kind = model.HitExistingPlaneGeometry
				hit.SurfaceID = s.ID
				f.Hits = append(f.Hits, hit)
			}
			f.Hits = append(f.Hits, est)
		}
		g.push(f)
	}
}

// cast intersects the camera's forward ray with a plane given as a ray
// parameter function and adds sensor noise.
func (g *generator) cast(cam *model.CameraPose, param func(o, dir r3.Vec) float64) (r3.Vec, float64, bool) {
	dir := geom.Rotate(cam.Orientation, r3.Vec{Z: -1})
	t := param(cam.Position, dir)
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return r3.Vec{}, 0, false
	}
	p := r3.Add(cam.Position, r3.Scale(t, dir))
	p.X += (g.rng.Float64()*2 - 1) * jitter
	p.Z += (g.rng.Float64()*2 - 1) * jitter
	return p, t, true
}
