package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"focustrack/pkg/db"
	"focustrack/pkg/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultEventLimit caps ListEvents when the query sets no limit.
const DefaultEventLimit = 500

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	SessionStore
	EventStore
	SurfaceStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Sessions ---

func (s *SQLiteStore) StartSession(ctx context.Context, sess *model.Session) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	query := `INSERT INTO sessions (id, variant, source, started_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, sess.ID.String(), sess.Variant, sess.Source, sess.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) EndSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET ended_at = ? WHERE id = ?", at.UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, variant, source, started_at, ended_at FROM sessions WHERE id = ?", id.String())
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, variant, source, started_at, ended_at FROM sessions ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var (
		id              string
		variant, source sql.NullString
		started         time.Time
		ended           sql.NullTime
	)
	if err := row.Scan(&id, &variant, &source, &started, &ended); err != nil {
		return nil, err
	}
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt session id %q: %w", id, err)
	}
	sess := &model.Session{ID: sid, Variant: variant.String, Source: source.String, StartedAt: started}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

// --- Events ---

func (s *SQLiteStore) RecordEvent(ctx context.Context, e *model.TrackerEvent) error {
	var camera sql.NullString
	if e.Camera != nil {
		data, err := json.Marshal(e.Camera)
		if err != nil {
			return fmt.Errorf("failed to encode camera: %w", err)
		}
		camera = sql.NullString{String: string(data), Valid: true}
	}
	var surface sql.NullString
	if e.SurfaceID != uuid.Nil {
		surface = sql.NullString{String: e.SurfaceID.String(), Valid: true}
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `INSERT INTO tracker_events
		(session_id, type, surface_id, alignment, hit_x, hit_y, hit_z, camera, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		e.Session.String(), string(e.Type), surface, string(e.Alignment),
		e.Hit.X, e.Hit.Y, e.Hit.Z, camera, ts.UTC())
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, q EventQuery) ([]model.TrackerEvent, error) {
	var (
		where []string
		args  []any
	)
	if q.Session != uuid.Nil {
		where = append(where, "session_id = ?")
		args = append(args, q.Session.String())
	}
	if q.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, q.AfterID)
	}
	if len(q.Types) > 0 {
		ph := make([]string, len(q.Types))
		for i, t := range q.Types {
			ph[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "type IN ("+strings.Join(ph, ",")+")")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	query := `SELECT id, session_id, type, surface_id, alignment, hit_x, hit_y, hit_z, camera, created_at
		FROM tracker_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrackerEvent
	for rows.Next() {
		var (
			e                  model.TrackerEvent
			session, typ       string
			surface, alignment sql.NullString
			camera             sql.NullString
		)
		if err := rows.Scan(&e.ID, &session, &typ, &surface, &alignment,
			&e.Hit.X, &e.Hit.Y, &e.Hit.Z, &camera, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Type = model.EventType(typ)
		e.Alignment = model.Alignment(alignment.String)
		if e.Session, err = uuid.Parse(session); err != nil {
			return nil, fmt.Errorf("corrupt session id %q: %w", session, err)
		}
		if surface.Valid {
			if e.SurfaceID, err = uuid.Parse(surface.String); err != nil {
				return nil, fmt.Errorf("corrupt surface id %q: %w", surface.String, err)
			}
		}
		if camera.Valid {
			var cam model.CameraPose
			if err := json.Unmarshal([]byte(camera.String), &cam); err != nil {
				return nil, fmt.Errorf("corrupt camera for event %d: %w", e.ID, err)
			}
			e.Camera = &cam
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountEvents(ctx context.Context, session uuid.UUID) (map[model.EventType]int, error) {
	query := "SELECT type, count(*) FROM tracker_events"
	var args []any
	if session != uuid.Nil {
		query += " WHERE session_id = ?"
		args = append(args, session.String())
	}
	query += " GROUP BY type"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.EventType]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[model.EventType(typ)] = n
	}
	return out, rows.Err()
}

// --- Visited surfaces ---

func (s *SQLiteStore) MarkVisited(ctx context.Context, session, surface uuid.UUID, at time.Time) (bool, error) {
	query := `INSERT OR IGNORE INTO visited_surfaces (session_id, surface_id, first_seen) VALUES (?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, session.String(), surface.String(), at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark surface visited: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) ListVisited(ctx context.Context, session uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT surface_id FROM visited_surfaces WHERE session_id = ? ORDER BY first_seen, surface_id", session.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt surface id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
