package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/model"
)

// Status is what the frame loop reports after each tick.
type Status struct {
	Frame          int               `json:"frame"`
	State          string            `json:"state"`
	Camera         *model.CameraPose `json:"camera,omitempty"`
	Pose           model.Pose        `json:"pose"`
	Committed      model.Alignment   `json:"committed_alignment"`
	AlignmentState string            `json:"alignment_state"`
	LastPosition   *r3.Vec           `json:"last_position,omitempty"`
	Visited        []uuid.UUID       `json:"visited"`
	Hidden         bool              `json:"hidden"`
	Session        uuid.UUID         `json:"session"`
}

type StatusHandler struct {
	mu     sync.RWMutex
	status Status
}

func NewStatusHandler() *StatusHandler {
	return &StatusHandler{status: Status{State: "none"}}
}

// Update replaces the reported status.
func (h *StatusHandler) Update(s *Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = *s
}

// Status returns the last reported status.
func (h *StatusHandler) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *StatusHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := h.Status()
	if resp.Visited == nil {
		resp.Visited = []uuid.UUID{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode status response", "error", err)
	}
}
