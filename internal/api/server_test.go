package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/pkg/coaching"
	"focustrack/pkg/config"
	"focustrack/pkg/db"
	"focustrack/pkg/model"
	"focustrack/pkg/session"
	"focustrack/pkg/store"
	"focustrack/pkg/tracker"
)

type fakeStats struct{ stats tracker.Stats }

func (f fakeStats) Stats() tracker.Stats { return f.stats }

type testEnv struct {
	server   *http.Server
	status   *StatusHandler
	store    *store.SQLiteStore
	session  *session.Manager
	registry *coaching.Registry
	hub      *Hub
	provider *config.UnifiedProvider
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.Init(":memory:")
	require.NoError(t, err)
	st := store.NewSQLiteStore(d)

	mgr := session.NewManager(session.Config{Variant: "plane", Source: "generated"}, st, quietLogger())
	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(func() {
		_ = mgr.Close(context.Background())
		_ = st.Close()
	})

	env := &testEnv{
		status:   NewStatusHandler(),
		store:    st,
		session:  mgr,
		registry: coaching.NewRegistry(quietLogger()),
		hub:      NewHub(quietLogger()),
		provider: config.NewProvider(config.DefaultConfig(), st),
	}
	stats := NewStatsHandler(fakeStats{tracker.Stats{Ticks: 42, Confirmed: 3}}, mgr, env.hub)
	env.server = NewServer("localhost:0", env.status, stats,
		NewConfigHandler(st, env.provider),
		NewSurfaceHandler(env.registry),
		NewEventHandler(mgr, st, st),
		env.hub, func() {})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(w, httptest.NewRequest(method, path, rd))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = env.do(t, "GET", "/api/version", "")
	got := decode[map[string]string](t, w)
	assert.NotEmpty(t, got["version"])
}

func TestStatusHandler(t *testing.T) {
	env := newTestEnv(t)

	got := decode[Status](t, env.do(t, "GET", "/api/status", ""))
	assert.Equal(t, "none", got.State)
	assert.NotNil(t, got.Visited)

	id := uuid.New()
	pos := r3.Vec{Y: -1.4}
	env.status.Update(&Status{
		Frame:        12,
		State:        "tracking",
		Pose:         model.Pose{Position: pos, Scale: 1.2, Parent: model.ParentWorld, OnTop: true},
		Committed:    model.AlignmentHorizontal,
		LastPosition: &pos,
		Visited:      []uuid.UUID{id},
	})

	got = decode[Status](t, env.do(t, "GET", "/api/status", ""))
	assert.Equal(t, 12, got.Frame)
	assert.Equal(t, "tracking", got.State)
	assert.Equal(t, model.AlignmentHorizontal, got.Committed)
	assert.Equal(t, []uuid.UUID{id}, got.Visited)
	assert.InDelta(t, 1.2, got.Pose.Scale, 1e-12)
	require.NotNil(t, got.LastPosition)
	assert.InDelta(t, -1.4, got.LastPosition.Y, 1e-12)
}

func TestStatsHandler(t *testing.T) {
	env := newTestEnv(t)
	env.session.OnInitialized()

	got := decode[StatsResponse](t, env.do(t, "GET", "/api/stats", ""))
	assert.Equal(t, int64(42), got.Tracker.Ticks)
	assert.Equal(t, int64(3), got.Tracker.Confirmed)
	assert.Zero(t, got.Clients)
	assert.Positive(t, got.Diagnostics.Goroutines)
	assert.GreaterOrEqual(t, got.Diagnostics.MemoryMaxMB, got.Diagnostics.MemoryMB)
}

func TestConfigHandler(t *testing.T) {
	env := newTestEnv(t)

	got := decode[ConfigResponse](t, env.do(t, "GET", "/api/config", ""))
	assert.Equal(t, config.VariantPlane, got.Variant)
	assert.False(t, got.MarkerHidden)
	assert.Nil(t, got.ReferenceHeight)
	assert.InDelta(t, 0.05, got.HeightTolerance, 1e-12)
	assert.Equal(t, []string{"horizontal", "vertical"}, got.Alignments)

	w := env.do(t, "PUT", "/api/config",
		`{"marker_hidden": true, "allow_infinite_plane": true, "reference_height": 0.72, "height_tolerance": 0.15, "alignments": ["vertical"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[ConfigResponse](t, w)
	assert.True(t, got.MarkerHidden)
	assert.True(t, got.AllowInfinitePlane)
	require.NotNil(t, got.ReferenceHeight)
	assert.InDelta(t, 0.72, *got.ReferenceHeight, 1e-12)
	assert.InDelta(t, 0.15, got.HeightTolerance, 1e-12)
	assert.Equal(t, []string{"vertical"}, got.Alignments)

	// The provider sees the overrides the frame loop applies.
	assert.True(t, env.provider.MarkerHidden(context.Background()))

	// Explicit null clears the reference height.
	got = decode[ConfigResponse](t, env.do(t, "POST", "/api/config", `{"reference_height": null}`))
	assert.Nil(t, got.ReferenceHeight)

	tests := []struct {
		name string
		body string
	}{
		{"InvalidJSON", `{`},
		{"BadAlignment", `{"alignments": ["diagonal"]}`},
		{"EmptyAlignments", `{"alignments": []}`},
		{"NegativeTolerance", `{"height_tolerance": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "PUT", "/api/config", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w = env.do(t, "OPTIONS", "/api/config", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = env.do(t, "DELETE", "/api/config", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSurfaceHandler(t *testing.T) {
	env := newTestEnv(t)
	floor := model.Surface{ID: uuid.New(), Alignment: model.AlignmentHorizontal}
	wall := model.Surface{ID: uuid.New(), Alignment: model.AlignmentVertical}
	env.registry.SurfaceAdded(floor)
	env.registry.SurfaceAdded(wall)

	got := decode[SurfacesResponse](t, env.do(t, "GET", "/api/surfaces", ""))
	assert.Equal(t, 1, got.Horizontal)
	assert.Equal(t, 1, got.Vertical)
	assert.Len(t, got.Surfaces, 2)

	got = decode[SurfacesResponse](t, env.do(t, "GET", "/api/surfaces?alignment=vertical", ""))
	require.Len(t, got.Surfaces, 1)
	assert.Equal(t, wall.ID, got.Surfaces[0].ID)

	w := env.do(t, "GET", "/api/surfaces?alignment=sideways", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandler(t *testing.T) {
	env := newTestEnv(t)

	got := decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events", ""))
	assert.Empty(t, got)

	surface := uuid.New()
	env.session.OnInitialized()
	env.session.OnSurfaceNotConfirmed(r3.Vec{Y: -1.4}, nil)
	env.session.OnSurfaceConfirmed(surface, r3.Vec{Y: -1.4}, nil)

	got = decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events", ""))
	require.Len(t, got, 3, "recent events from memory")
	assert.Equal(t, model.EventInitialized, got[0].Type)

	// The journal is written in the background.
	require.Eventually(t, func() bool { return env.session.Written() == 3 }, 2*time.Second, 10*time.Millisecond)

	got = decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events?type=surface_confirmed", ""))
	require.Len(t, got, 1)
	assert.Equal(t, surface, got[0].SurfaceID)

	got = decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events?limit=2", ""))
	assert.Len(t, got, 2)

	got = decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events?session="+uuid.NewString(), ""))
	assert.Empty(t, got)

	for _, q := range []string{"session=nope", "after=-1", "limit=0", "limit=x"} {
		w := env.do(t, "GET", "/api/events?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	// Polling clients resume where their last response ended.
	got = decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events?client=overlay&limit=2", ""))
	require.Len(t, got, 2)
	assert.Equal(t, model.EventInitialized, got[0].Type)
	got = decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events?client=overlay&limit=2", ""))
	require.Len(t, got, 1)
	assert.Equal(t, model.EventSurfaceConfirmed, got[0].Type)
	got = decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events?client=overlay", ""))
	assert.Empty(t, got)
	got = decode[[]model.TrackerEvent](t, env.do(t, "GET", "/api/events?client=other", ""))
	assert.Len(t, got, 3, "cursors are per client")

	sessions := decode[SessionsResponse](t, env.do(t, "GET", "/api/sessions", ""))
	assert.Equal(t, env.session.Session().ID, sessions.Current.ID)
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, "plane", sessions.Sessions[0].Variant)
}

func TestShutdownEndpoint(t *testing.T) {
	called := make(chan struct{})
	srv := NewServer("localhost:0", NewStatusHandler(), NewStatsHandler(fakeStats{}, nil, nil), nil, nil, nil, nil, func() {
		close(called)
	})

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/shutdown", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusOK, w.Code)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown not called")
	}

	// Optional routes are absent.
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/surfaces", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
