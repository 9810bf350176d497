package config

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/unitydialog/internal/match"
)

const (
	DefaultFadeTimeMS      = 150
	DefaultAlpha           = 0.5
	DefaultShadeColor      = "#000000"
	DefaultFrameIntervalMS = 16

	MaxFadeTimeMS      = 10000
	MaxFrameIntervalMS = 1000
)

// Config is the effective daemon configuration.
type Config struct {
	FadeTime      int     `yaml:"fade_time"`
	Alpha         float64 `yaml:"alpha"`
	ShadeColor    string  `yaml:"shade_color"`
	AvoidMatch    string  `yaml:"avoid_match"`
	FrameInterval int     `yaml:"frame_interval"`
	LogLevel      string  `yaml:"log_level"`
	DBus          bool    `yaml:"dbus"`
	Display       string  `yaml:"display,omitempty"`
	XAuthority    string  `yaml:"xauthority,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		FadeTime:      DefaultFadeTimeMS,
		Alpha:         DefaultAlpha,
		ShadeColor:    DefaultShadeColor,
		FrameInterval: DefaultFrameIntervalMS,
		LogLevel:      "info",
	}
}

// FadeDuration returns fade_time as a duration.
func (c *Config) FadeDuration() time.Duration {
	if c == nil || c.FadeTime <= 0 {
		return DefaultFadeTimeMS * time.Millisecond
	}
	return time.Duration(c.FadeTime) * time.Millisecond
}

// FrameDuration returns frame_interval as a duration.
func (c *Config) FrameDuration() time.Duration {
	if c == nil || c.FrameInterval <= 0 {
		return DefaultFrameIntervalMS * time.Millisecond
	}
	return time.Duration(c.FrameInterval) * time.Millisecond
}

// Color parses shade_color. Both "#rgb" and "#rrggbb" are accepted.
func (c *Config) Color() (color.NRGBA, error) {
	return ParseColor(c.ShadeColor)
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseColor parses a "#rgb" or "#rrggbb" hex color.
func ParseColor(s string) (color.NRGBA, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("color %q must start with '#'", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("color %q must be #rgb or #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// ParseLogLevel accepts debug, info, warn (or warning) and error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewMatchParser returns a parser that accepts every key avoid_match may
// use. The transient-dialog key is only checked for syntax here; the daemon
// registers the real predicate.
func NewMatchParser() *match.Parser {
	p := match.NewParser()
	p.Register("transient-dialog", func(value string) (match.Predicate, error) {
		switch value {
		case "0", "1", "true", "false":
			return func(match.Window) bool { return false }, nil
		}
		return nil, fmt.Errorf("transient-dialog expects 0 or 1, got %q", value)
	})
	return p
}

// Save writes the configuration to path, creating parent directories.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.FadeTime < 1 || c.FadeTime > MaxFadeTimeMS {
		return &ValidationError{Path: "fade_time", Err: fmt.Errorf("fade_time must be between 1 and %d", MaxFadeTimeMS)}
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return &ValidationError{Path: "alpha", Err: fmt.Errorf("alpha must be between 0 and 1")}
	}
	if _, err := ParseColor(c.ShadeColor); err != nil {
		return &ValidationError{Path: "shade_color", Err: err}
	}
	if c.FrameInterval < 1 || c.FrameInterval > MaxFrameIntervalMS {
		return &ValidationError{Path: "frame_interval", Err: fmt.Errorf("frame_interval must be between 1 and %d", MaxFrameIntervalMS)}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if _, err := NewMatchParser().Parse(c.AvoidMatch); err != nil {
		return &ValidationError{Path: "avoid_match", Err: err}
	}
	return nil
}
