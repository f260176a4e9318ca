package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"focustrack/pkg/apisession"
	"focustrack/pkg/model"
	"focustrack/pkg/store"
)

// SessionProvider provides access to the running session.
type SessionProvider interface {
	Session() model.Session
	Events() []model.TrackerEvent
}

// clientTTL is how long an idle polling client keeps its cursor.
const clientTTL = 10 * time.Minute

// clientCursor remembers the last journal id a polling client has seen.
type clientCursor struct {
	LastID int64
}

// EventHandler serves the tracker event journal.
type EventHandler struct {
	session SessionProvider
	events  store.EventStore
	ses     store.SessionStore
	clients *apisession.Store[clientCursor]
}

// NewEventHandler creates an EventHandler. Returns nil if the session is missing.
// Without stores only the in-memory recent events are served.
func NewEventHandler(session SessionProvider, events store.EventStore, sessions store.SessionStore) *EventHandler {
	if session == nil {
		return nil
	}
	return &EventHandler{
		session: session,
		events:  events,
		ses:     sessions,
		clients: apisession.New(clientTTL, func() clientCursor { return clientCursor{} }),
	}
}

// HandleEvents returns tracker events as JSON.
// Without query parameters it returns the running session's recent events from
// memory; ?session=, ?type=a,b, ?after= and ?limit= query the journal.
// ?client=<id> resumes after the last event that client was sent.
// GET /api/events
func (h *EventHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var events []model.TrackerEvent

	if len(q) == 0 || h.events == nil {
		events = h.session.Events()
	} else {
		query, err := parseEventQuery(q.Get("session"), q.Get("type"), q.Get("after"), q.Get("limit"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if query.Session == uuid.Nil {
			query.Session = h.session.Session().ID
		}
		client := q.Get("client")
		if client != "" && q.Get("after") == "" {
			h.clients.With(client, func(c *clientCursor) { query.AfterID = c.LastID })
		}
		events, err = h.events.ListEvents(r.Context(), query)
		if err != nil {
			slog.Error("Failed to list events", "error", err)
			http.Error(w, "failed to list events", http.StatusInternalServerError)
			return
		}
		if client != "" && len(events) > 0 {
			last := events[len(events)-1].ID
			h.clients.With(client, func(c *clientCursor) {
				if last > c.LastID {
					c.LastID = last
				}
			})
		}
	}

	if events == nil {
		events = []model.TrackerEvent{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(events); err != nil {
		slog.Error("Failed to encode tracker events", "error", err)
	}
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func parseEventQuery(session, types, after, limit string) (store.EventQuery, error) {
	var q store.EventQuery
	if session != "" {
		id, err := uuid.Parse(session)
		if err != nil {
			return q, badRequest("invalid session id")
		}
		q.Session = id
	}
	if types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, model.EventType(t))
			}
		}
	}
	if after != "" {
		n, err := strconv.ParseInt(after, 10, 64)
		if err != nil || n < 0 {
			return q, badRequest("invalid after")
		}
		q.AfterID = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return q, badRequest("invalid limit")
		}
		q.Limit = n
	}
	return q, nil
}

// SessionsResponse lists journaled sessions with the running one first.
type SessionsResponse struct {
	Current  model.Session   `json:"current"`
	Sessions []model.Session `json:"sessions"`
}

// HandleSessions lists the journaled sessions.
// GET /api/sessions
func (h *EventHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	resp := SessionsResponse{Current: h.session.Session(), Sessions: []model.Session{}}
	if h.ses != nil {
		list, err := h.ses.ListSessions(r.Context(), 50)
		if err != nil {
			slog.Error("Failed to list sessions", "error", err)
			http.Error(w, "failed to list sessions", http.StatusInternalServerError)
			return
		}
		if list != nil {
			resp.Sessions = list
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode sessions", "error", err)
	}
}
