// Package config handles loading and saving graphview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/graphview/config.yaml
//   - State:  ~/.local/state/graphview/ (debug log)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "graphview"

// TreeConfig controls the tree synchronization engine's pointer handling.
type TreeConfig struct {
	ToggleMargin  int `yaml:"toggle_margin,omitempty"`   // Cells right of the indent that toggle expansion
	DoubleClickMs int `yaml:"double_click_ms,omitempty"` // Max gap between clicks of a double click
	IndentWidth   int `yaml:"indent_width,omitempty"`    // Cells per depth level
}

// FieldConfig controls property field presentation and drag behavior.
type FieldConfig struct {
	Width            int     `yaml:"width,omitempty"`             // Field width in cells, used for range-derived drag speed
	DragThreshold    int     `yaml:"drag_threshold,omitempty"`    // L1 distance in cells before a press becomes a drag
	DefaultPrecision int     `yaml:"default_precision,omitempty"` // Display decimals when the schema has none
	EditPrecision    int     `yaml:"edit_precision,omitempty"`    // Decimals seeded into the edit box
	DefaultSpeed     float64 `yaml:"default_speed,omitempty"`     // Drag speed per cell without bounds
	PreciseFactor    float64 `yaml:"precise_factor,omitempty"`    // Speed multiplier with ctrl held
	CoarseFactor     float64 `yaml:"coarse_factor,omitempty"`     // Speed multiplier with shift held
	FlashMs          int     `yaml:"flash_ms,omitempty"`          // How long an event field stays highlighted
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	SplitRatio float64 `yaml:"split_ratio,omitempty"` // Hierarchy pane share of the width (0.2-0.8)
	Mouse      *bool   `yaml:"mouse,omitempty"`       // Enable mouse cell motion
}

// SceneConfig points at the scene to open.
type SceneConfig struct {
	Path  string `yaml:"path,omitempty"`
	Watch bool   `yaml:"watch,omitempty"` // Reload when the file changes
}

// Config is the top-level configuration for graphview.
type Config struct {
	Tree  TreeConfig  `yaml:"tree,omitempty"`
	Field FieldConfig `yaml:"field,omitempty"`
	UI    UIConfig    `yaml:"ui,omitempty"`
	Scene SceneConfig `yaml:"scene,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	mouse := true
	return Config{
		Tree: TreeConfig{
			ToggleMargin:  2,
			DoubleClickMs: 400,
			IndentWidth:   2,
		},
		Field: FieldConfig{
			Width:            16,
			DragThreshold:    2,
			DefaultPrecision: 2,
			EditPrecision:    5,
			DefaultSpeed:     0.1,
			PreciseFactor:    0.1,
			CoarseFactor:     10,
			FlashMs:          120,
		},
		UI: UIConfig{
			SplitRatio: 0.45,
			Mouse:      &mouse,
		},
	}
}

// MouseEnabled reports whether mouse support is on. Unset means on.
func (c Config) MouseEnabled() bool {
	return c.UI.Mouse == nil || *c.UI.Mouse
}

// DoubleClick returns the double click window as a duration.
func (c TreeConfig) DoubleClick() time.Duration {
	return time.Duration(c.DoubleClickMs) * time.Millisecond
}

// Flash returns the event flash duration.
func (c FieldConfig) Flash() time.Duration {
	return time.Duration(c.FlashMs) * time.Millisecond
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	if c.Tree.ToggleMargin < 0 {
		errs = append(errs, fmt.Errorf("tree.toggle_margin must be >= 0, got %d", c.Tree.ToggleMargin))
	}
	if c.Tree.DoubleClickMs <= 0 {
		errs = append(errs, fmt.Errorf("tree.double_click_ms must be > 0, got %d", c.Tree.DoubleClickMs))
	}
	if c.Tree.IndentWidth < 1 {
		errs = append(errs, fmt.Errorf("tree.indent_width must be >= 1, got %d", c.Tree.IndentWidth))
	}
	if c.Field.Width < 1 {
		errs = append(errs, fmt.Errorf("field.width must be >= 1, got %d", c.Field.Width))
	}
	if c.Field.DragThreshold < 0 {
		errs = append(errs, fmt.Errorf("field.drag_threshold must be >= 0, got %d", c.Field.DragThreshold))
	}
	if c.Field.DefaultPrecision < 0 || c.Field.EditPrecision < 0 {
		errs = append(errs, errors.New("field precisions must be >= 0"))
	}
	if c.Field.DefaultSpeed <= 0 || c.Field.PreciseFactor <= 0 || c.Field.CoarseFactor <= 0 {
		errs = append(errs, errors.New("field speed settings must be > 0"))
	}
	if c.Field.FlashMs < 0 {
		errs = append(errs, fmt.Errorf("field.flash_ms must be >= 0, got %d", c.Field.FlashMs))
	}
	if c.UI.SplitRatio < 0.2 || c.UI.SplitRatio > 0.8 {
		errs = append(errs, fmt.Errorf("ui.split_ratio must be within 0.2-0.8, got %.2f", c.UI.SplitRatio))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the XDG config directory for graphview.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for graphview.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Settings absent from the file
// keep their defaults. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Scene.Path = expandHome(cfg.Scene.Path)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
