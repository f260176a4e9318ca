package api

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/alignment"
	"focustrack/pkg/model"
	"focustrack/pkg/tracker"
	"focustrack/pkg/visibility"
)

var _ tracker.Sink = (*Hub)(nil)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer("", NewStatusHandler(), NewStatsHandler(fakeStats{}, nil, hub), nil, nil, nil, hub, func() {}).Handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestHub_StreamsSinkCalls(t *testing.T) {
	hub := NewHub(quietLogger())
	var mu sync.Mutex
	var scheduled []time.Duration
	hub.afterFunc = func(d time.Duration, f func()) {
		mu.Lock()
		scheduled = append(scheduled, d)
		mu.Unlock()
		f()
	}

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(model.Pose{Position: r3.Vec{Z: -0.8}, Scale: 1, Parent: model.ParentCamera, OnTop: true})
	m := readMessage(t, conn)
	assert.Equal(t, "pose", m.Type)
	require.NotNil(t, m.Pose)
	assert.InDelta(t, -0.8, m.Pose.Position.Z, 1e-12)
	assert.Equal(t, model.ParentCamera, m.Pose.Parent)

	tr := alignment.NewTransition(quat.Number{Real: 1}, quat.Number{Imag: 1}, model.AlignmentVertical, 500*time.Millisecond)
	hub.Animate(tr)
	m = readMessage(t, conn)
	assert.Equal(t, "transition", m.Type)
	require.NotNil(t, m.Transition)
	assert.Equal(t, model.AlignmentVertical, m.Transition.Alignment)
	assert.Equal(t, int64(500), m.Transition.DurationMS)
	assert.True(t, tr.Completed(), "completed after its duration")

	fade := visibility.NewFader(300 * time.Millisecond).Hide()
	require.NotNil(t, fade)
	hub.Fade(fade)
	m = readMessage(t, conn)
	assert.Equal(t, "fade", m.Type)
	require.NotNil(t, m.Fade)
	assert.Equal(t, visibility.FadeOut, m.Fade.Direction)
	assert.Zero(t, m.Fade.Opacity)
	assert.True(t, fade.Completed())

	hub.PublishEvent(model.TrackerEvent{Type: model.EventInitialized})
	m = readMessage(t, conn)
	assert.Equal(t, "event", m.Type)
	require.NotNil(t, m.Event)
	assert.Equal(t, model.EventInitialized, m.Event.Type)

	mu.Lock()
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 300 * time.Millisecond}, scheduled)
	mu.Unlock()
}

func TestHub_NewClientGetsLastPose(t *testing.T) {
	hub := NewHub(quietLogger())
	hub.Publish(model.Pose{Scale: 2})

	conn := dialHub(t, hub)
	m := readMessage(t, conn)
	assert.Equal(t, "pose", m.Type)
	assert.InDelta(t, 2.0, m.Pose.Scale, 1e-12)
}

func TestHub_DisconnectAndClose(t *testing.T) {
	hub := NewHub(quietLogger())
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Publishing with no clients is harmless.
	hub.Publish(model.Pose{})

	conn2 := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Close()
	assert.Zero(t, hub.Clients())
	_ = conn2
}
