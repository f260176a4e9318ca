package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"focustrack/pkg/model"
	"focustrack/pkg/ring"
)

// EventCaptureSize is how many tracker events the overlay capture retains.
const EventCaptureSize = 50

// LineCapture keeps the most recent line written to it. The server log handler
// writes through it so the overlay can show the latest message.
type LineCapture struct {
	mu   sync.RWMutex
	last string
}

// Write implements io.Writer.
func (c *LineCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = strings.TrimRight(string(p), "\n")
	return len(p), nil
}

// LastLine returns the most recent line.
func (c *LineCapture) LastLine() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// EventCapture keeps the latest tracker events for the overlay.
type EventCapture struct {
	mu     sync.RWMutex
	events *ring.Buffer[model.TrackerEvent]
}

// NewEventCapture creates a capture retaining up to size events.
func NewEventCapture(size int) *EventCapture {
	return &EventCapture{events: ring.New[model.TrackerEvent](size)}
}

// Record stores a copy of e.
func (c *EventCapture) Record(e model.TrackerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events.Push(e)
}

// Recent returns the retained events, oldest first.
func (c *EventCapture) Recent() []model.TrackerEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.events.Slice()
}

// Last returns the newest event.
func (c *EventCapture) Last() (model.TrackerEvent, bool) {
	recent := c.Recent()
	if len(recent) == 0 {
		return model.TrackerEvent{}, false
	}
	return recent[len(recent)-1], true
}

// LastLine returns the newest event in event log format, or "" if none.
func (c *EventCapture) LastLine() string {
	e, ok := c.Last()
	if !ok {
		return ""
	}
	return FormatEvent(&e)
}

// Clear drops all retained events.
func (c *EventCapture) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events.Clear()
}

// GlobalLogCapture holds the latest server log line.
var GlobalLogCapture = &LineCapture{}

// GlobalEventCapture holds the latest tracker events.
var GlobalEventCapture = NewEventCapture(EventCaptureSize)

// FormatEvent renders an event as one event log line:
// [2006-01-02 15:04:05] [type] Title @ (x, y, z)
func FormatEvent(event *model.TrackerEvent) string {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] %s", ts.Format("2006-01-02 15:04:05"), event.Type, event.Title())
	if event.Type != model.EventInitialized {
		line += fmt.Sprintf(" @ (%.3f, %.3f, %.3f)", event.Hit.X, event.Hit.Y, event.Hit.Z)
	}
	return line
}
