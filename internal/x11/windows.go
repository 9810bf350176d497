package x11

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/unitydialog/internal/platform"
)

const (
	stateModal          = "_NET_WM_STATE_MODAL"
	stateMaximizedHorz  = "_NET_WM_STATE_MAXIMIZED_HORZ"
	stateMaximizedVert  = "_NET_WM_STATE_MAXIMIZED_VERT"
	stateFullscreen     = "_NET_WM_STATE_FULLSCREEN"
	windowTypePrefix    = "_NET_WM_WINDOW_TYPE_"
	parentMarkerAtom    = "_UNITY_IS_PARENT"
	resizeNotifyAtom    = "_COMPIZ_RESIZE_NOTIFY"
	moveresizeAtom      = "_NET_WM_MOVERESIZE"
	sourceIndicationApp = 2
)

// ClientRect returns the root-relative geometry of a client window, without
// decorations.
func (c *Connection) ClientRect(win xproto.Window) (platform.Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("failed to get geometry of %#x: %w", win, err)
	}
	pos, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("failed to translate coordinates of %#x: %w", win, err)
	}
	return platform.Rect{
		X:      int(pos.DstX),
		Y:      int(pos.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// FrameExtents returns the window decoration sizes. Windows without
// _NET_FRAME_EXTENTS report no decorations.
func (c *Connection) FrameExtents(win xproto.Window) platform.Extents {
	extents, err := ewmh.FrameExtentsGet(c.XUtil, win)
	if err != nil {
		return platform.Extents{}
	}
	return platform.Extents{
		Left:   extents.Left,
		Right:  extents.Right,
		Top:    extents.Top,
		Bottom: extents.Bottom,
	}
}

// WindowState returns the set of _NET_WM_STATE atoms on win.
func (c *Connection) WindowState(win xproto.Window) map[string]bool {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return nil
	}
	set := make(map[string]bool, len(states))
	for _, state := range states {
		set[state] = true
	}
	return set
}

// TransientFor returns the WM_TRANSIENT_FOR hint of win.
func (c *Connection) TransientFor(win xproto.Window) (xproto.Window, bool) {
	tf, err := icccm.WmTransientForGet(c.XUtil, win)
	if err != nil || tf == 0 {
		return 0, false
	}
	return tf, true
}

// ClientLeader returns WM_CLIENT_LEADER of win, or 0.
func (c *Connection) ClientLeader(win xproto.Window) xproto.Window {
	leader, err := xprop.PropValWindow(xprop.GetProperty(c.XUtil, win, "WM_CLIENT_LEADER"))
	if err != nil {
		return 0
	}
	return leader
}

// Attributes reports whether win is viewable and whether it bypasses the
// window manager.
func (c *Connection) Attributes(win xproto.Window) (viewable, overrideRedirect bool, err error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return false, false, fmt.Errorf("failed to get attributes of %#x: %w", win, err)
	}
	return attrs.MapState == xproto.MapStateViewable, attrs.OverrideRedirect, nil
}

// SizeHints returns the maximum size part of WM_NORMAL_HINTS.
func (c *Connection) SizeHints(win xproto.Window) platform.SizeHints {
	nh, err := icccm.WmNormalHintsGet(c.XUtil, win)
	if err != nil || nh.Flags&icccm.SizeHintPMaxSize == 0 {
		return platform.SizeHints{}
	}
	return platform.SizeHints{
		HasMaxSize: true,
		MaxWidth:   int(nh.MaxWidth),
		MaxHeight:  int(nh.MaxHeight),
	}
}

// SetSizeHints rewrites the maximum size of WM_NORMAL_HINTS and keeps every
// other field the client set.
func (c *Connection) SetSizeHints(win xproto.Window, hints platform.SizeHints) error {
	nh, err := icccm.WmNormalHintsGet(c.XUtil, win)
	if err != nil {
		nh = &icccm.NormalHints{}
	}
	if hints.HasMaxSize {
		nh.Flags |= icccm.SizeHintPMaxSize
		nh.MaxWidth = uint(max(hints.MaxWidth, 0))
		nh.MaxHeight = uint(max(hints.MaxHeight, 0))
	} else {
		nh.Flags &^= icccm.SizeHintPMaxSize
		nh.MaxWidth, nh.MaxHeight = 0, 0
	}
	if err := icccm.WmNormalHintsSet(c.XUtil, win, nh); err != nil {
		return fmt.Errorf("failed to set size hints of %#x: %w", win, err)
	}
	return nil
}

// SetParentMarker sets or removes _UNITY_IS_PARENT on win.
func (c *Connection) SetParentMarker(win xproto.Window, parent bool) error {
	if parent {
		return xprop.ChangeProp32(c.XUtil, win, parentMarkerAtom, "CARDINAL", 1)
	}
	atom, err := xprop.Atm(c.XUtil, parentMarkerAtom)
	if err != nil {
		return err
	}
	return xproto.DeletePropertyChecked(c.XUtil.Conn(), win, atom).Check()
}

// MoveResizeFrame asks the window manager to place win's frame at border.
// The frame origin is sent with north-west gravity and the size is converted
// to client size by removing ext. Zero width or height is left unchanged.
func (c *Connection) MoveResizeFrame(win xproto.Window, border platform.Rect, ext platform.Extents, usex, usey bool) error {
	width, height := clientSize(border, ext)
	err := ewmh.MoveresizeWindowExtra(
		c.XUtil,
		win,
		border.X, border.Y, width, height,
		xproto.GravityNorthWest, sourceIndicationApp,
		usex, usey,
	)
	if err != nil {
		// Fallback to direct window manipulation
		w := xwindow.New(c.XUtil, win)
		w.MoveResize(border.X+ext.Left, border.Y+ext.Top, width, height)
	}
	return nil
}

// clientSize returns the client size for a border rect. Dimensions that do
// not cover the decorations come back as 0.
func clientSize(border platform.Rect, ext platform.Extents) (width, height int) {
	if border.Width > 0 {
		width = max(border.Width-ext.Left-ext.Right, 1)
	}
	if border.Height > 0 {
		height = max(border.Height-ext.Top-ext.Bottom, 1)
	}
	return width, height
}

// borderRect adds decorations around a client rect.
func borderRect(client platform.Rect, ext platform.Extents) platform.Rect {
	return platform.Rect{
		X:      client.X - ext.Left,
		Y:      client.Y - ext.Top,
		Width:  client.Width + ext.Left + ext.Right,
		Height: client.Height + ext.Top + ext.Bottom,
	}
}

// ClearStates removes the maximized and fullscreen states a window may no
// longer hold.
func (c *Connection) ClearStates(win xproto.Window, maximize, fullscreen bool) error {
	states := c.WindowState(win)
	var errs []error

	// Remove maximized states if present
	if maximize {
		if states[stateMaximizedHorz] {
			errs = append(errs, ewmh.WmStateReq(c.XUtil, win, ewmh.StateRemove, stateMaximizedHorz))
		}
		if states[stateMaximizedVert] {
			errs = append(errs, ewmh.WmStateReq(c.XUtil, win, ewmh.StateRemove, stateMaximizedVert))
		}
	}
	if fullscreen && states[stateFullscreen] {
		errs = append(errs, ewmh.WmStateReq(c.XUtil, win, ewmh.StateRemove, stateFullscreen))
	}

	return errors.Join(errs...)
}

// WindowType returns the first _NET_WM_WINDOW_TYPE of win without its
// prefix, e.g. "Dialog". Windows without a type are "Normal".
func (c *Connection) WindowType(win xproto.Window) string {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil || len(types) == 0 {
		return "Normal"
	}
	return windowTypeName(types[0])
}

func windowTypeName(atom string) string {
	name := strings.ToLower(strings.TrimPrefix(atom, windowTypePrefix))
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

// WindowClass returns the WM_CLASS class and instance names of win.
func (c *Connection) WindowClass(win xproto.Window) (class, instance string, ok bool) {
	wc, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil {
		return "", "", false
	}
	return wc.Class, wc.Instance, true
}

// WindowTitle returns _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) WindowTitle(win xproto.Window) (string, bool) {
	if name, err := ewmh.WmNameGet(c.XUtil, win); err == nil && name != "" {
		return name, true
	}
	name, err := icccm.WmNameGet(c.XUtil, win)
	if err != nil {
		return "", false
	}
	return name, true
}

// WindowRole returns WM_WINDOW_ROLE of win.
func (c *Connection) WindowRole(win xproto.Window) (string, bool) {
	role, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, win, "WM_WINDOW_ROLE"))
	if err != nil {
		return "", false
	}
	return role, true
}

// Listen selects the given events on win.
func (c *Connection) Listen(win xproto.Window, masks ...int) error {
	return xwindow.New(c.XUtil, win).Listen(masks...)
}

// FrameWindow returns the child of the root that contains win, which is the
// window manager's frame for reparenting window managers.
func (c *Connection) FrameWindow(win xproto.Window) xproto.Window {
	cur := win
	for i := 0; i < 16; i++ {
		tree, err := xproto.QueryTree(c.XUtil.Conn(), cur).Reply()
		if err != nil || tree.Parent == 0 {
			return win
		}
		if tree.Parent == c.Root {
			return cur
		}
		cur = tree.Parent
	}
	return win
}
