package mcp

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	DaemonRunning     bool  `json:"daemon_running"`
	UptimeSeconds     int64 `json:"uptime_seconds"`
	Windows           int   `json:"windows"`
	Parents           int   `json:"parents"`
	Transients        int   `json:"transients"`
	SwitchingViewport bool  `json:"switching_viewport"`
	FadeTimeMS        int   `json:"fade_time_ms"`
}

// ListParentsInput is the input for the list_parents tool.
type ListParentsInput struct {
	Window string `json:"window,omitempty" jsonschema:"Only report this parent. Decimal or 0x-prefixed X window id."`
}

// ParentInfo describes one dimmed parent window.
type ParentInfo struct {
	Window           string   `json:"window"`
	Transients       []string `json:"transients"`
	Dim              float64  `json:"dim"`
	FadingOut        bool     `json:"fading_out"`
	InputPassthrough bool     `json:"input_passthrough"`
	Constrained      bool     `json:"constrained"`
}

// ListParentsOutput is the output for the list_parents tool.
type ListParentsOutput struct {
	Parents []ParentInfo `json:"parents"`
}

// CheckInput is the input for the check_relationships tool.
type CheckInput struct{}

// CheckOutput is the output for the check_relationships tool.
type CheckOutput struct {
	OK       bool     `json:"ok"`
	Problems []string `json:"problems"`
}

// ReloadInput is the input for the reload_config tool.
type ReloadInput struct{}

// ReloadOutput is the output for the reload_config tool.
type ReloadOutput struct {
	Reloaded bool `json:"reloaded"`
}
