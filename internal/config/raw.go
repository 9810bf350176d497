package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// RawConfig is one file's view of the configuration. A nil field means the
// file did not set it.
type RawConfig struct {
	Include       IncludeList `yaml:"include"`
	FadeTime      *int        `yaml:"fade_time"`
	Alpha         *float64    `yaml:"alpha"`
	ShadeColor    *string     `yaml:"shade_color"`
	AvoidMatch    *string     `yaml:"avoid_match"`
	FrameInterval *int        `yaml:"frame_interval"`
	LogLevel      *string     `yaml:"log_level"`
	DBus          *bool       `yaml:"dbus"`
	Display       *string     `yaml:"display"`
	XAuthority    *string     `yaml:"xauthority"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.FadeTime != nil {
		out.FadeTime = overlay.FadeTime
	}
	if overlay.Alpha != nil {
		out.Alpha = overlay.Alpha
	}
	if overlay.ShadeColor != nil {
		out.ShadeColor = overlay.ShadeColor
	}
	if overlay.AvoidMatch != nil {
		out.AvoidMatch = overlay.AvoidMatch
	}
	if overlay.FrameInterval != nil {
		out.FrameInterval = overlay.FrameInterval
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.DBus != nil {
		out.DBus = overlay.DBus
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}

	return out
}
