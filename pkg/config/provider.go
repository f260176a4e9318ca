package config

import (
	"context"
	"strconv"
	"strings"

	"focustrack/pkg/store"
)

// Provider combines the static configuration with runtime overrides that the
// API persists in the state store.
type Provider interface {
	MarkerHidden(ctx context.Context) bool
	Selection(ctx context.Context) SelectionConfig

	// AppConfig gives raw access to the static configuration.
	AppConfig() *Config
}

// UnifiedProvider implements Provider on top of a StateStore.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider. A nil store serves the static
// configuration only.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) MarkerHidden(ctx context.Context) bool {
	return p.getBool(ctx, KeyMarkerHidden, false)
}

// Selection returns the selection settings with any overrides applied. A stored
// reference height of "none" clears the configured one.
func (p *UnifiedProvider) Selection(ctx context.Context) SelectionConfig {
	sel := p.base.Tracker.Selection
	sel.AllowInfinitePlane = p.getBool(ctx, KeyAllowInfinitePlane, sel.AllowInfinitePlane)
	sel.VerticalFallback = p.getBool(ctx, KeyVerticalFallback, sel.VerticalFallback)
	sel.HeightTolerance = Distance(p.getFloat64(ctx, KeyHeightTolerance, float64(sel.HeightTolerance)))

	switch v := p.getString(ctx, KeyReferenceHeight, ""); v {
	case "":
	case "none":
		sel.ReferenceHeight = nil
	default:
		if h, err := strconv.ParseFloat(v, 64); err == nil {
			sel.ReferenceHeight = &h
		}
	}

	if v := p.getString(ctx, KeyAlignments, ""); v != "" {
		var list []string
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a == "horizontal" || a == "vertical" {
				list = append(list, a)
			}
		}
		sel.Alignments = list
	}
	return sel
}

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}
