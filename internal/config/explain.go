package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML path and its source.
//
// Supported paths:
//
//	fade_time
//	alpha
//	shade_color
//	avoid_match
//	frame_interval
//	log_level
//	dbus
//	display
//	xauthority
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// Paths lists every path Explain accepts, in file order.
func Paths() []string {
	return []string{
		"fade_time",
		"alpha",
		"shade_color",
		"avoid_match",
		"frame_interval",
		"log_level",
		"dbus",
		"display",
		"xauthority",
	}
}

func lookupValue(cfg *Config, path string) (any, error) {
	switch path {
	case "fade_time":
		return cfg.FadeTime, nil
	case "alpha":
		return cfg.Alpha, nil
	case "shade_color":
		return cfg.ShadeColor, nil
	case "avoid_match":
		return cfg.AvoidMatch, nil
	case "frame_interval":
		return cfg.FrameInterval, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "dbus":
		return cfg.DBus, nil
	case "display":
		return cfg.Display, nil
	case "xauthority":
		return cfg.XAuthority, nil
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}
