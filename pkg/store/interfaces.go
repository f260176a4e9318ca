package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"focustrack/pkg/model"
)

// SessionStore handles tracker session bookkeeping.
type SessionStore interface {
	StartSession(ctx context.Context, s *model.Session) error
	EndSession(ctx context.Context, id uuid.UUID, at time.Time) error
	GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error)
	ListSessions(ctx context.Context, limit int) ([]model.Session, error)
}

// EventQuery filters ListEvents. Zero fields match everything.
type EventQuery struct {
	Session uuid.UUID
	Types   []model.EventType
	// AfterID returns only events journaled after this id.
	AfterID int64
	Limit   int
}

// EventStore handles the tracker event journal.
type EventStore interface {
	RecordEvent(ctx context.Context, e *model.TrackerEvent) error
	ListEvents(ctx context.Context, q EventQuery) ([]model.TrackerEvent, error)
	CountEvents(ctx context.Context, session uuid.UUID) (map[model.EventType]int, error)
}

// SurfaceStore records which confirmed surfaces a session has visited.
type SurfaceStore interface {
	// MarkVisited returns true the first time a surface is recorded for a session.
	MarkVisited(ctx context.Context, session, surface uuid.UUID, at time.Time) (bool, error)
	ListVisited(ctx context.Context, session uuid.UUID) ([]uuid.UUID, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
