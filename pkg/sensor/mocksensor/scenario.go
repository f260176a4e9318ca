package mocksensor

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"focustrack/pkg/geom"
	"focustrack/pkg/model"
)

// ErrScenarioEmpty is returned for a scenario without frames.
var ErrScenarioEmpty = errors.New("scenario has no frames")

// Scenario is the YAML form of a scripted sensor session.
type Scenario struct {
	Name     string      `yaml:"name"`
	Viewport Viewport    `yaml:"viewport"`
	Loop     bool        `yaml:"loop"`
	Frames   []FrameSpec `yaml:"frames"`
}

// Viewport is the screen size in points.
type Viewport struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Center of the viewport.
func (v Viewport) Center() model.ScreenPoint {
	return model.ScreenPoint{X: v.Width / 2, Y: v.Height / 2}
}

// FrameSpec describes one frame, optionally repeated.
type FrameSpec struct {
	Repeat  int          `yaml:"repeat,omitempty"`
	Camera  *CameraSpec  `yaml:"camera,omitempty"`
	Hits    []HitSpec    `yaml:"hits,omitempty"`
	Anchors []AnchorSpec `yaml:"anchors,omitempty"`
}

// CameraSpec is a camera pose in Euler form.
type CameraSpec struct {
	Position Vec3    `yaml:"position"`
	Pitch    float64 `yaml:"pitch"`
	Yaw      float64 `yaml:"yaw"`
	Roll     float64 `yaml:"roll"`
	Quality  string  `yaml:"quality,omitempty"` // normal (default), limited, not_available
}

// HitSpec is one hit-test candidate.
type HitSpec struct {
	Kind      string  `yaml:"kind"`
	Surface   string  `yaml:"surface,omitempty"`
	Alignment string  `yaml:"alignment,omitempty"`
	Position  Vec3    `yaml:"position"`
	Pitch     float64 `yaml:"pitch,omitempty"`
	Yaw       float64 `yaml:"yaw,omitempty"`
	Roll      float64 `yaml:"roll,omitempty"`
	// Distance defaults to the distance from the camera.
	Distance float64 `yaml:"distance,omitempty"`
}

// AnchorSpec adds, updates or removes a surface.
type AnchorSpec struct {
	Op        string     `yaml:"op"` // add, update, remove
	ID        string     `yaml:"id"`
	Alignment string     `yaml:"alignment,omitempty"`
	Center    Vec3       `yaml:"center,omitempty"`
	Extent    [2]float64 `yaml:"extent,omitempty"`
}

// Vec3 is an [x, y, z] triple.
type Vec3 [3]float64

func (v Vec3) vec() r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if len(sc.Frames) == 0 {
		return nil, ErrScenarioEmpty
	}
	return &sc, nil
}

// Build expands repeats and converts the scenario into frames.
func (sc *Scenario) Build() ([]Frame, error) {
	var frames []Frame
	for i, spec := range sc.Frames {
		f, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		n := spec.Repeat
		if n < 1 {
			n = 1
		}
		frames = append(frames, f)
		// Anchor changes happen once, on the first copy.
		rep := f
		rep.Anchors = nil
		for j := 1; j < n; j++ {
			frames = append(frames, rep)
		}
	}
	if len(frames) == 0 {
		return nil, ErrScenarioEmpty
	}
	return frames, nil
}

func (spec *FrameSpec) build() (Frame, error) {
	var f Frame
	if spec.Camera != nil {
		q, err := parseQuality(spec.Camera.Quality)
		if err != nil {
			return f, err
		}
		c := spec.Camera
		f.Camera = &model.CameraPose{
			Position:    c.Position.vec(),
			Orientation: geom.FromEuler(c.Pitch, c.Yaw, c.Roll),
			Euler:       model.Euler{Pitch: c.Pitch, Yaw: c.Yaw, Roll: c.Roll},
			Quality:     q,
		}
	}

	for i := range spec.Hits {
		c, err := spec.Hits[i].build(f.Camera)
		if err != nil {
			return f, fmt.Errorf("hit %d: %w", i, err)
		}
		f.Hits = append(f.Hits, c)
	}

	for i := range spec.Anchors {
		ev, err := spec.Anchors[i].build()
		if err != nil {
			return f, fmt.Errorf("anchor %d: %w", i, err)
		}
		f.Anchors = append(f.Anchors, ev)
	}
	return f, nil
}

func (h *HitSpec) build(cam *model.CameraPose) (model.Candidate, error) {
	kind := model.HitKind(h.Kind)
	switch kind {
	case model.HitExistingPlaneGeometry, model.HitExistingPlane, model.HitEstimatedHorizontal, model.HitEstimatedVertical:
	default:
		return model.Candidate{}, fmt.Errorf("unknown hit kind %q", h.Kind)
	}

	al, err := parseAlignment(h.Alignment)
	if err != nil {
		return model.Candidate{}, err
	}

	var id uuid.UUID
	if h.Surface != "" {
		if id, err = uuid.Parse(h.Surface); err != nil {
			return model.Candidate{}, fmt.Errorf("invalid surface id: %w", err)
		}
	}

	c := model.Candidate{
		Kind:      kind,
		SurfaceID: id,
		Alignment: al,
		Transform: model.Transform{
			Position:    h.Position.vec(),
			Orientation: geom.FromEuler(h.Pitch, h.Yaw, h.Roll),
		},
		Distance: h.Distance,
	}
	if c.Distance == 0 && cam != nil {
		c.Distance = geom.Distance(c.Transform.Position, cam.Position)
	}
	return c, nil
}

func (a *AnchorSpec) build() (AnchorEvent, error) {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return AnchorEvent{}, fmt.Errorf("invalid anchor id: %w", err)
	}
	op := AnchorOp(a.Op)
	switch op {
	case AnchorAdd, AnchorUpdate, AnchorRemove:
	default:
		return AnchorEvent{}, fmt.Errorf("unknown anchor op %q", a.Op)
	}
	al, err := parseAlignment(a.Alignment)
	if err != nil {
		return AnchorEvent{}, err
	}
	return AnchorEvent{
		Op: op,
		Surface: model.Surface{
			ID:        id,
			Alignment: al,
			Center:    a.Center.vec(),
			Extent:    a.Extent,
		},
	}, nil
}

func parseQuality(s string) (model.TrackingQuality, error) {
	switch q := model.TrackingQuality(s); q {
	case "":
		return model.QualityNormal, nil
	case model.QualityNormal, model.QualityLimited, model.QualityNotAvailable:
		return q, nil
	}
	return "", fmt.Errorf("unknown tracking quality %q", s)
}

func parseAlignment(s string) (model.Alignment, error) {
	switch a := model.Alignment(s); a {
	case model.AlignmentNone, model.AlignmentHorizontal, model.AlignmentVertical:
		return a, nil
	}
	return "", fmt.Errorf("unknown alignment %q", s)
}
