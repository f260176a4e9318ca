package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"focustrack/pkg/tracker"
)

// StatsSource exposes tracker counters.
type StatsSource interface {
	Stats() tracker.Stats
}

// JournalStats exposes journal writer counters.
type JournalStats interface {
	Written() int64
	Dropped() int64
}

type StatsHandler struct {
	tracker StatsSource
	journal JournalStats
	hub     *Hub
	started time.Time

	mu     sync.Mutex
	maxMem uint64
}

func NewStatsHandler(t StatsSource, j JournalStats, hub *Hub) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		journal: j,
		hub:     hub,
		started: time.Now(),
	}
}

type Diagnostics struct {
	MemoryMB    uint64  `json:"memory_mb"`
	MemoryMaxMB uint64  `json:"memory_max_mb"`
	Goroutines  int     `json:"goroutines"`
	UptimeSec   float64 `json:"uptime_sec"`
}

type JournalDTO struct {
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
}

type StatsResponse struct {
	Diagnostics Diagnostics   `json:"diagnostics"`
	Tracker     tracker.Stats `json:"tracker"`
	Journal     JournalDTO    `json:"journal"`
	Clients     int           `json:"clients"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Diagnostics: h.gatherDiagnostics(),
		Tracker:     h.tracker.Stats(),
	}
	if h.journal != nil {
		resp.Journal = JournalDTO{Written: h.journal.Written(), Dropped: h.journal.Dropped()}
	}
	if h.hub != nil {
		resp.Clients = h.hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *StatsHandler) gatherDiagnostics() Diagnostics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h.mu.Lock()
	if m.Alloc > h.maxMem {
		h.maxMem = m.Alloc
	}
	peak := h.maxMem
	h.mu.Unlock()

	return Diagnostics{
		MemoryMB:    bToMb(m.Alloc),
		MemoryMaxMB: bToMb(peak),
		Goroutines:  runtime.NumGoroutine(),
		UptimeSec:   time.Since(h.started).Seconds(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
