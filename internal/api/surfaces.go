package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"focustrack/pkg/coaching"
	"focustrack/pkg/model"
)

// SurfaceLister provides the detected surfaces.
type SurfaceLister interface {
	Snapshot() []coaching.Entry
}

// SurfaceHandler serves the coaching registry.
type SurfaceHandler struct {
	surfaces SurfaceLister
}

func NewSurfaceHandler(s SurfaceLister) *SurfaceHandler {
	return &SurfaceHandler{surfaces: s}
}

type SurfacesResponse struct {
	Horizontal int              `json:"horizontal"`
	Vertical   int              `json:"vertical"`
	Surfaces   []coaching.Entry `json:"surfaces"`
}

// HandleSurfaces lists detected surfaces, optionally filtered by ?alignment=.
// GET /api/surfaces
func (h *SurfaceHandler) HandleSurfaces(w http.ResponseWriter, r *http.Request) {
	filter := model.Alignment(r.URL.Query().Get("alignment"))
	switch filter {
	case "", model.AlignmentHorizontal, model.AlignmentVertical:
	default:
		http.Error(w, "invalid alignment", http.StatusBadRequest)
		return
	}

	resp := SurfacesResponse{Surfaces: []coaching.Entry{}}
	for _, e := range h.surfaces.Snapshot() {
		switch e.Alignment {
		case model.AlignmentHorizontal:
			resp.Horizontal++
		case model.AlignmentVertical:
			resp.Vertical++
		}
		if filter == "" || e.Alignment == filter {
			resp.Surfaces = append(resp.Surfaces, e)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode surfaces", "error", err)
	}
}
