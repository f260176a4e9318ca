// Package api serves the tracker over HTTP: status and counters as JSON, the
// event journal, runtime configuration and a websocket pose stream.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"focustrack/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
// Nil optional handlers leave their routes unregistered.
func NewServer(addr string, status *StatusHandler, stats *StatsHandler, cfg *ConfigHandler, surfaces *SurfaceHandler, events *EventHandler, hub *Hub, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Tracker Status
	mux.HandleFunc("GET /api/status", status.handleStatus)

	// 2b. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2c. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 2d. Logs Endpoints
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/event", handleLatestEvent)

	// 2e. Config Endpoints
	if cfg != nil {
		mux.HandleFunc("/api/config", cfg.HandleConfig)
	}

	// 2f. Surfaces
	if surfaces != nil {
		mux.HandleFunc("GET /api/surfaces", surfaces.HandleSurfaces)
	}

	// 2g. Journal
	if events != nil {
		mux.HandleFunc("GET /api/events", events.HandleEvents)
		mux.HandleFunc("GET /api/sessions", events.HandleSessions)
	}

	// 2h. Pose Stream
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.ServeWS)
	}

	// 3. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
