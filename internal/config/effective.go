package config

import "fmt"

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.FadeTime != nil {
		cfg.FadeTime = *raw.FadeTime
	}
	if raw.Alpha != nil {
		cfg.Alpha = *raw.Alpha
	}
	if raw.ShadeColor != nil {
		cfg.ShadeColor = *raw.ShadeColor
	}
	if raw.AvoidMatch != nil {
		cfg.AvoidMatch = *raw.AvoidMatch
	}
	if raw.FrameInterval != nil {
		cfg.FrameInterval = *raw.FrameInterval
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.DBus != nil {
		cfg.DBus = *raw.DBus
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.XAuthority != nil {
		cfg.XAuthority = *raw.XAuthority
	}

	return cfg
}
