package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = "configs/focustrack.yaml"

// Tracker variants.
const (
	VariantPlane       = "plane"
	VariantFocusSquare = "focus_square"
)

// Sensor providers.
const (
	SensorGenerated = "generated"
	SensorScenario  = "scenario"
)

// Config holds the application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	Ticker  TickerConfig  `yaml:"ticker"`
	Tracker TrackerConfig `yaml:"tracker"`
	Sensor  SensorConfig  `yaml:"sensor"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
	// Trace enables very chatty per-frame debug logs.
	Trace bool `yaml:"trace"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds event journal settings.
type DBConfig struct {
	Path string `yaml:"path"`
	// EventBuffer is how many events may queue for the journal writer before
	// new ones are dropped.
	EventBuffer int `yaml:"event_buffer"`
	// Retention is how long journaled events are kept.
	Retention Duration `yaml:"retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// TickerConfig holds frame loop settings.
type TickerConfig struct {
	FrameInterval Duration `yaml:"frame_interval"`
	// MaxFrames stops the loop after this many frames; 0 runs until the
	// sensor script ends or the process is stopped.
	MaxFrames int `yaml:"max_frames"`
}

// TrackerConfig holds focus marker settings.
type TrackerConfig struct {
	Variant            string          `yaml:"variant"`
	PositionWindow     int             `yaml:"position_window"` // 0 uses the variant's default
	BillboardDistance  Distance        `yaml:"billboard_distance"`
	FadeDuration       Duration        `yaml:"fade_duration"`
	TransitionDuration Duration        `yaml:"transition_duration"`
	HorizontalVotes    int             `yaml:"horizontal_votes"`
	VerticalVotes      int             `yaml:"vertical_votes"`
	Selection          SelectionConfig `yaml:"selection"`
}

// SelectionConfig holds candidate selection settings.
type SelectionConfig struct {
	AllowInfinitePlane bool     `yaml:"allow_infinite_plane"`
	ReferenceHeight    *float64 `yaml:"reference_height,omitempty"`
	HeightTolerance    Distance `yaml:"height_tolerance"`
	Alignments         []string `yaml:"alignments"`
	VerticalFallback   bool     `yaml:"vertical_fallback"`
}

// SensorConfig holds settings for the sensor source.
type SensorConfig struct {
	Provider string `yaml:"provider"` // "generated", "scenario"
	Scenario string `yaml:"scenario"`
	Seed     int64  `yaml:"seed"`
	Loop     bool   `yaml:"loop"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:        "data/focustrack.db",
			EventBuffer: 256,
			Retention:   Duration(30 * 24 * time.Hour),
		},
		Server: ServerConfig{
			Address: "localhost:1930",
		},
		Ticker: TickerConfig{
			FrameInterval: Duration(time.Second / 60),
		},
		Tracker: TrackerConfig{
			Variant:            VariantPlane,
			BillboardDistance:  0.8,
			FadeDuration:       Duration(500 * time.Millisecond),
			TransitionDuration: Duration(500 * time.Millisecond),
			HorizontalVotes:    15,
			VerticalVotes:      10,
			Selection: SelectionConfig{
				HeightTolerance: 0.05,
				Alignments:      []string{"horizontal", "vertical"},
			},
		},
		Sensor: SensorConfig{
			Provider: SensorGenerated,
			Seed:     1,
			Loop:     true,
		},
	}
}

// Load reads the configuration from path, creating it with defaults when it
// does not exist. Values from a .env file and FOCUSTRACK_* variables override
// the file but are never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv exports the variables of an optional .env file. Variables that
// are already set keep their value.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from FOCUSTRACK_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("FOCUSTRACK_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("FOCUSTRACK_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("FOCUSTRACK_LOG_LEVEL"); v != "" {
		cfg.Log.Server.Level = v
	}
	if v := os.Getenv("FOCUSTRACK_TRACKER_VARIANT"); v != "" {
		cfg.Tracker.Variant = v
	}
	if v := os.Getenv("FOCUSTRACK_SENSOR_SCENARIO"); v != "" {
		cfg.Sensor.Provider = SensorScenario
		cfg.Sensor.Scenario = v
	}
	if v := os.Getenv("FOCUSTRACK_SENSOR_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid FOCUSTRACK_SENSOR_SEED %q: %w", v, err)
		}
		cfg.Sensor.Seed = seed
	}
	if v := os.Getenv("FOCUSTRACK_FRAME_INTERVAL"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FOCUSTRACK_FRAME_INTERVAL %q: %w", v, err)
		}
		cfg.Ticker.FrameInterval = Duration(d)
	}
	return nil
}

// Validate checks values the YAML decoder cannot.
func (c *Config) Validate() error {
	switch c.Tracker.Variant {
	case VariantPlane, VariantFocusSquare:
	default:
		return fmt.Errorf("invalid tracker variant '%s': must be '%s' or '%s'", c.Tracker.Variant, VariantPlane, VariantFocusSquare)
	}
	switch c.Sensor.Provider {
	case SensorGenerated:
	case SensorScenario:
		if c.Sensor.Scenario == "" {
			return errors.New("sensor provider 'scenario' requires a scenario path")
		}
	default:
		return fmt.Errorf("invalid sensor provider '%s'", c.Sensor.Provider)
	}
	if c.Ticker.FrameInterval <= 0 {
		return errors.New("ticker frame_interval must be positive")
	}
	if c.Tracker.HorizontalVotes < 0 || c.Tracker.VerticalVotes < 0 {
		return errors.New("tracker vote thresholds must not be negative")
	}
	if c.Tracker.HorizontalVotes >= 20 || c.Tracker.VerticalVotes >= 20 {
		return errors.New("tracker vote thresholds must be below the history window of 20")
	}
	if c.Tracker.Selection.HeightTolerance < 0 {
		return errors.New("selection height_tolerance must not be negative")
	}
	for _, a := range c.Tracker.Selection.Alignments {
		if a != "horizontal" && a != "vertical" {
			return fmt.Errorf("invalid selection alignment '%s'", a)
		}
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# focustrack configuration
# -----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: mm, cm, m, km, ft

`)
	data = append(header, data...)

	reVariant := regexp.MustCompile(`(?m)^(\s+)variant:`)
	data = reVariant.ReplaceAll(data, []byte("${1}# Options: plane, focus_square\n${1}variant:"))

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: generated, scenario\n${1}provider:"))

	reVotes := regexp.MustCompile(`(?m)^(\s+)horizontal_votes:`)
	data = reVotes.ReplaceAll(data, []byte("${1}# Commit when more than N of the last 20 frames agree\n${1}horizontal_votes:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
