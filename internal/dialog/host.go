package dialog

import (
	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// Hook is a bitmask of per-window interception hooks the host must route
// through the Screen.
type Hook uint8

const (
	// HookPaint routes the window's paint pass through Screen.PaintMask.
	HookPaint Hook = 1 << iota
	// HookDraw routes the window's draw through Screen.DrawWindow.
	HookDraw
	// HookGrab delivers grab and ungrab notifications.
	HookGrab
	// HookMove delivers move and resize notifications.
	HookMove
	// HookActions routes allowed-action queries through Screen.AllowedActions.
	HookActions
)

// ConfigureMask selects the fields of a ConfigureRequest to apply.
type ConfigureMask uint8

const (
	ConfigureX ConfigureMask = 1 << iota
	ConfigureY
	ConfigureWidth
	ConfigureHeight
)

// ConfigureRequest moves or resizes a window. Coordinates are border-rect
// coordinates (decorations included).
type ConfigureRequest struct {
	Mask   ConfigureMask
	X      int
	Y      int
	Width  int
	Height int
	// Sync asks the host to flush the request before returning.
	Sync bool
}

// GrabMask describes an active window grab.
type GrabMask uint32

const (
	GrabKey GrabMask = 1 << iota
	GrabButton
	GrabMove
	GrabResize
)

// Action is a bitmask of window-manager actions a window allows.
type Action uint32

const (
	ActionMove Action = 1 << iota
	ActionResize
	ActionStick
	ActionMinimize
	ActionMaximizeHorz
	ActionMaximizeVert
	ActionFullscreen
	ActionClose
	ActionShade
	ActionChangeDesktop
)

// TransientClearActions are removed from every window that has a parent.
const TransientClearActions = ActionMinimize | ActionMaximizeHorz | ActionMaximizeVert | ActionFullscreen

// InputPassthroughID identifies an input-only window stacked over a parent.
type InputPassthroughID uint32

// Geometry answers geometry queries about managed windows.
type Geometry interface {
	Windows() []platform.WindowID
	BorderRect(id platform.WindowID) (platform.Rect, bool)
	InputRect(id platform.WindowID) (platform.Rect, bool)
	OutputRect(id platform.WindowID) (platform.Rect, bool)
	Border(id platform.WindowID) platform.Extents
	// WorkArea returns the work area of the output containing r.
	WorkArea(r platform.Rect) platform.Rect
	// Output returns the bounds of the whole screen.
	Output() platform.Rect
}

// Properties answers protocol-level questions about windows.
type Properties interface {
	TransientFor(id platform.WindowID) (platform.WindowID, bool)
	ClientLeader(id platform.WindowID) platform.WindowID
	IsModal(id platform.WindowID) bool
	IsViewable(id platform.WindowID) bool
	IsOverrideRedirect(id platform.WindowID) bool
	IsMaximized(id platform.WindowID) bool
	IsFullscreen(id platform.WindowID) bool
	SizeHints(id platform.WindowID) platform.SizeHints
	SetSizeHints(id platform.WindowID, hints platform.SizeHints) error
	// SetParentMarker sets or clears _UNITY_IS_PARENT on the window.
	SetParentMarker(id platform.WindowID, parent bool) error
}

// WindowLifecycleHooks lets the Screen change windows and refresh host caches.
type WindowLifecycleHooks interface {
	Configure(id platform.WindowID, req ConfigureRequest) error
	// MatchesAvoid reports whether the window matches the configured avoid expression.
	MatchesAvoid(id platform.WindowID) bool
	UpdateMatchOptions(id platform.WindowID)
	RecalcActions(id platform.WindowID)
}

// PaintHooks toggles paint interception and requests repaints.
type PaintHooks interface {
	SetWindowHooks(id platform.WindowID, hooks Hook)
	// SetScreenHooks enables the per-frame PreparePaint/DonePaint calls.
	SetScreenHooks(enabled bool)
	Damage(r platform.Rect)
	DamageWindow(id platform.WindowID)
}

// InputHooks manages the input-only windows that catch clicks on parents.
type InputHooks interface {
	CreateInputPassthrough(parent platform.WindowID, r platform.Rect) (InputPassthroughID, error)
	ConfigureInputPassthrough(ipw InputPassthroughID, r platform.Rect) error
	DestroyInputPassthrough(ipw InputPassthroughID)
}

// Host is everything the Screen needs from the window system.
type Host interface {
	Geometry
	Properties
	WindowLifecycleHooks
	PaintHooks
	InputHooks
	paint.GL
}
