// Package session journals a tracker run: it listens to tracker events, keeps
// the recent ones in memory and hands them to a background writer that
// persists them.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/logging"
	"focustrack/pkg/model"
	"focustrack/pkg/store"
)

// ErrClosed is returned when starting a manager that was already closed.
var ErrClosed = errors.New("session closed")

const (
	DefaultBuffer = 256
	DefaultRecent = 100
)

// Journal is the persistence the manager writes to.
type Journal interface {
	store.SessionStore
	store.EventStore
	store.SurfaceStore
}

// Publisher receives every event as it happens, e.g. a websocket hub.
type Publisher interface {
	PublishEvent(e model.TrackerEvent)
}

// Config holds manager settings.
type Config struct {
	Variant string
	Source  string
	// Buffer is how many events may wait for the writer before new ones are dropped.
	Buffer int
	// Recent is how many events are kept in memory.
	Recent int
}

// Manager handles the journal of one tracker session. The listener methods
// run on the tick goroutine and never block on the journal.
type Manager struct {
	cfg     Config
	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	session   model.Session
	events    []model.TrackerEvent
	publisher Publisher
	started   bool
	closed    bool

	queue   chan model.TrackerEvent
	done    chan struct{}
	dropped atomic.Int64
	written atomic.Int64
}

// NewManager creates a session manager. A nil journal keeps events in memory only.
func NewManager(cfg Config, journal Journal, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.Recent <= 0 {
		cfg.Recent = DefaultRecent
	}
	return &Manager{
		cfg:     cfg,
		journal: journal,
		logger:  logger.With("component", "session"),
		now:     time.Now,
		session: model.Session{ID: uuid.New(), Variant: cfg.Variant, Source: cfg.Source},
		queue:   make(chan model.TrackerEvent, cfg.Buffer),
		done:    make(chan struct{}),
	}
}

// SetPublisher attaches a live event consumer.
func (m *Manager) SetPublisher(p Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = p
}

// Start records the session and launches the writer. Events added before
// Start are queued.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.session.StartedAt = m.now()
	sess := m.session
	m.mu.Unlock()

	if m.journal != nil {
		if err := m.journal.StartSession(ctx, &sess); err != nil {
			return err
		}
	}
	m.logger.Info("Session started", "id", sess.ID, "variant", sess.Variant, "source", sess.Source)
	go m.run()
	return nil
}

// Close stops accepting events, drains the queue and marks the session ended.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.started
	end := m.now()
	m.session.EndedAt = &end
	id := m.session.ID
	close(m.queue)
	m.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.logger.Info("Session ended", "id", id, "written", m.written.Load(), "dropped", m.dropped.Load())
	if m.journal == nil {
		return nil
	}
	return m.journal.EndSession(ctx, id, end)
}

func (m *Manager) run() {
	defer close(m.done)
	ctx := context.Background()
	for e := range m.queue {
		if m.journal == nil {
			continue
		}
		if err := m.journal.RecordEvent(ctx, &e); err != nil {
			m.logger.Error("Failed to journal event", "type", e.Type, "error", err)
			continue
		}
		m.written.Add(1)
		if e.Type == model.EventSurfaceConfirmed {
			if _, err := m.journal.MarkVisited(ctx, e.Session, e.SurfaceID, e.Timestamp); err != nil {
				m.logger.Error("Failed to mark surface visited", "id", e.SurfaceID, "error", err)
			}
		}
	}
}

// AddEvent stamps the event with the session and time, keeps it in the
// recent list, logs it and queues it for the journal.
func (m *Manager) AddEvent(event *model.TrackerEvent) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	event.Session = m.session.ID
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	m.events = append(m.events, *event)
	if over := len(m.events) - m.cfg.Recent; over > 0 {
		m.events = append(m.events[:0:0], m.events[over:]...)
	}
	pub := m.publisher

	// Non-blocking send (buffered channel); sent under the lock so Close
	// cannot close the queue underneath it.
	select {
	case m.queue <- *event:
	default:
		m.dropped.Add(1)
		m.logger.Warn("Journal queue full, dropping event", "type", event.Type)
	}
	m.mu.Unlock()

	logging.LogEvent(event)
	if pub != nil {
		pub.PublishEvent(*event)
	}
}

func (m *Manager) OnInitialized() {
	m.AddEvent(&model.TrackerEvent{Type: model.EventInitialized})
}

func (m *Manager) OnSurfaceConfirmed(id uuid.UUID, hit r3.Vec, cam *model.CameraPose) {
	m.AddEvent(&model.TrackerEvent{Type: model.EventSurfaceConfirmed, SurfaceID: id, Hit: hit, Camera: copyCamera(cam)})
}

func (m *Manager) OnSurfaceNotConfirmed(hit r3.Vec, cam *model.CameraPose) {
	m.AddEvent(&model.TrackerEvent{Type: model.EventSurfaceNotConfirmed, Hit: hit, Camera: copyCamera(cam)})
}

func (m *Manager) OnAlignmentCommitted(a model.Alignment, hit r3.Vec) {
	m.AddEvent(&model.TrackerEvent{Type: model.EventAlignmentCommitted, Alignment: a, Hit: hit})
}

func copyCamera(cam *model.CameraPose) *model.CameraPose {
	if cam == nil {
		return nil
	}
	c := *cam
	return &c
}

// Session returns the session record.
func (m *Manager) Session() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Events returns the most recent events, oldest first.
func (m *Manager) Events() []model.TrackerEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.TrackerEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Dropped is how many events never reached the journal.
func (m *Manager) Dropped() int64 {
	return m.dropped.Load()
}

// Written is how many events the journal accepted.
func (m *Manager) Written() int64 {
	return m.written.Load()
}
