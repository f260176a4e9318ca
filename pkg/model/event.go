package model

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// EventType defines the kind of tracker event.
type EventType string

const (
	EventInitialized           EventType = "initialized"
	EventSurfaceConfirmed      EventType = "surface_confirmed"
	EventSurfaceNotConfirmed   EventType = "surface_not_confirmed"
	EventAlignmentCommitted    EventType = "alignment_committed"
	EventAlignmentTransitioned EventType = "alignment_transitioned"
)

// TrackerEvent is a discrete event emitted by a tracker, as journaled and streamed.
type TrackerEvent struct {
	ID        int64       `json:"id,omitempty"`
	Session   uuid.UUID   `json:"session"`
	Type      EventType   `json:"type"`
	SurfaceID uuid.UUID   `json:"surface_id"`
	Alignment Alignment   `json:"alignment"`
	Hit       r3.Vec      `json:"hit"`
	Camera    *CameraPose `json:"camera,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Title is a one-line description for logs.
func (e *TrackerEvent) Title() string {
	switch e.Type {
	case EventSurfaceConfirmed:
		return "Surface confirmed " + e.SurfaceID.String()
	case EventAlignmentCommitted:
		return "Alignment committed " + e.Alignment.String()
	}
	return string(e.Type)
}

// Session is one run of a tracker, as journaled.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	Variant   string     `json:"variant"`
	Source    string     `json:"source"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
