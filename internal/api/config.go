package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"focustrack/pkg/config"
	"focustrack/pkg/store"
)

// ConfigHandler handles configuration API requests. Changes are persisted as
// runtime overrides; the frame loop picks them up through the provider.
type ConfigHandler struct {
	store   store.StateStore
	cfgProv config.Provider
	appCfg  *config.Config
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(st store.StateStore, cfg config.Provider) *ConfigHandler {
	return &ConfigHandler{
		store:   st,
		cfgProv: cfg,
		appCfg:  cfg.AppConfig(),
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	Variant            string   `json:"variant"`
	PositionWindow     int      `json:"position_window"`
	HorizontalVotes    int      `json:"horizontal_votes"`
	VerticalVotes      int      `json:"vertical_votes"`
	MarkerHidden       bool     `json:"marker_hidden"`
	AllowInfinitePlane bool     `json:"allow_infinite_plane"`
	ReferenceHeight    *float64 `json:"reference_height"`
	HeightTolerance    float64  `json:"height_tolerance"`
	Alignments         []string `json:"alignments"`
	VerticalFallback   bool     `json:"vertical_fallback"`
}

// ConfigRequest represents the config API request for updates.
type ConfigRequest struct {
	MarkerHidden       *bool    `json:"marker_hidden,omitempty"` // Pointer to detect false vs missing
	AllowInfinitePlane *bool    `json:"allow_infinite_plane,omitempty"`
	ReferenceHeight    *float64 `json:"reference_height,omitempty"`
	HeightTolerance    *float64 `json:"height_tolerance,omitempty"`
	Alignments         []string `json:"alignments,omitempty"`
	VerticalFallback   *bool    `json:"vertical_fallback,omitempty"`
}

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the current configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	resp := h.getConfigResponse(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode config response", "error", err)
	}
}

func (h *ConfigHandler) getConfigResponse(ctx context.Context) ConfigResponse {
	sel := h.cfgProv.Selection(ctx)
	alignments := sel.Alignments
	if alignments == nil {
		alignments = []string{}
	}
	return ConfigResponse{
		Variant:            h.appCfg.Tracker.Variant,
		PositionWindow:     h.appCfg.Tracker.PositionWindow,
		HorizontalVotes:    h.appCfg.Tracker.HorizontalVotes,
		VerticalVotes:      h.appCfg.Tracker.VerticalVotes,
		MarkerHidden:       h.cfgProv.MarkerHidden(ctx),
		AllowInfinitePlane: sel.AllowInfinitePlane,
		ReferenceHeight:    sel.ReferenceHeight,
		HeightTolerance:    sel.HeightTolerance.Meters(),
		Alignments:         alignments,
		VerticalFallback:   sel.VerticalFallback,
	}
}

// HandleSetConfig updates the runtime overrides.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req ConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	ctx := context.Background()

	// Validated updates (return error to client if they fail)
	if err := h.applySelectionUpdates(ctx, &req, body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.MarkerHidden != nil {
		h.updateBoolState(ctx, config.KeyMarkerHidden, *req.MarkerHidden)
	}
	if req.AllowInfinitePlane != nil {
		h.updateBoolState(ctx, config.KeyAllowInfinitePlane, *req.AllowInfinitePlane)
	}
	if req.VerticalFallback != nil {
		h.updateBoolState(ctx, config.KeyVerticalFallback, *req.VerticalFallback)
	}

	// Return updated config
	h.HandleGetConfig(w, r)
}

func (h *ConfigHandler) applySelectionUpdates(ctx context.Context, req *ConfigRequest, body []byte) error {
	if req.HeightTolerance != nil {
		if *req.HeightTolerance < 0 {
			return errors.New("height_tolerance must not be negative")
		}
		h.updateFloatState(ctx, config.KeyHeightTolerance, *req.HeightTolerance)
	}

	// An explicit null clears the reference height.
	if req.ReferenceHeight != nil {
		h.updateFloatState(ctx, config.KeyReferenceHeight, *req.ReferenceHeight)
	} else if containsJSONKey(body, "reference_height") {
		if err := h.store.SetState(ctx, config.KeyReferenceHeight, "none"); err != nil {
			slog.Error("Failed to save state", "key", config.KeyReferenceHeight, "error", err)
		}
	}

	if req.Alignments != nil {
		for _, a := range req.Alignments {
			if a != "horizontal" && a != "vertical" {
				return fmt.Errorf("invalid alignment '%s'", a)
			}
		}
		if len(req.Alignments) == 0 {
			return errors.New("alignments must not be empty")
		}
		if err := h.store.SetState(ctx, config.KeyAlignments, strings.Join(req.Alignments, ",")); err != nil {
			return err
		}
		slog.Debug("Config updated", config.KeyAlignments, req.Alignments)
	}
	return nil
}

func (h *ConfigHandler) updateBoolState(ctx context.Context, key string, val bool) {
	strVal := strconv.FormatBool(val)
	if err := h.store.SetState(ctx, key, strVal); err != nil {
		slog.Error("Failed to save state", "key", key, "error", err)
	} else {
		slog.Debug("Config updated", key, strVal)
	}
}

func (h *ConfigHandler) updateFloatState(ctx context.Context, key string, val float64) {
	strVal := strconv.FormatFloat(val, 'f', -1, 64)
	if err := h.store.SetState(ctx, key, strVal); err != nil {
		slog.Error("Failed to save state", "key", key, "error", err)
	} else {
		slog.Debug("Config updated", key, strVal)
	}
}

func containsJSONKey(body []byte, key string) bool {
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
