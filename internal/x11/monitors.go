package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/unitydialog/internal/platform"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	Bounds platform.Rect
}

// Monitors retrieves all active monitors using XRandR
func (c *Connection) Monitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:   i,
			Name: outputName,
			Bounds: platform.Rect{
				X:      int(crtcInfo.X),
				Y:      int(crtcInfo.Y),
				Width:  int(crtcInfo.Width),
				Height: int(crtcInfo.Height),
			},
		})
	}

	return monitors, nil
}

// RootRect returns the bounds of the root window.
func (c *Connection) RootRect() (platform.Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("failed to get root geometry: %w", err)
	}
	return platform.Rect{Width: int(geom.Width), Height: int(geom.Height)}, nil
}

// WorkArea returns the usable area of the monitor containing the center of
// r, with dock struts removed. It falls back to _NET_WORKAREA and then to
// the whole root window.
func (c *Connection) WorkArea(r platform.Rect) (platform.Rect, error) {
	root, err := c.RootRect()
	if err != nil {
		return platform.Rect{}, err
	}

	monitors, err := c.Monitors()
	if err != nil || len(monitors) == 0 {
		monitors = []Monitor{{Name: "root", Bounds: root}}
	}
	mon := monitorFor(monitors, r)

	var struts []ewmh.WmStrutPartial
	if clients, err := ewmh.ClientListGet(c.XUtil); err == nil {
		for _, win := range clients {
			if sp, ok := c.dockStrut(win, root); ok {
				struts = append(struts, sp)
			}
		}
	}
	if area, ok := applyStruts(mon.Bounds, root, struts); ok {
		return area, nil
	}

	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err == nil && len(workArea) > 0 {
		desktopIndex := 0
		if current, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(current) < len(workArea) {
			desktopIndex = int(current)
		}
		wa := workArea[desktopIndex]
		area := mon.Bounds.Intersect(platform.Rect{X: wa.X, Y: wa.Y, Width: int(wa.Width), Height: int(wa.Height)})
		if !area.Empty() {
			return area, nil
		}
	}
	return mon.Bounds, nil
}

func (c *Connection) dockStrut(win xproto.Window, root platform.Rect) (ewmh.WmStrutPartial, bool) {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return ewmh.WmStrutPartial{}, false
	}
	isDock := false
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			isDock = true
			break
		}
	}
	if !isDock {
		return ewmh.WmStrutPartial{}, false
	}

	if sp, err := ewmh.WmStrutPartialGet(c.XUtil, win); err == nil {
		return *sp, true
	}

	// Some docks only set _NET_WM_STRUT (no partial ranges).
	s, err := ewmh.WmStrutGet(c.XUtil, win)
	if err != nil {
		return ewmh.WmStrutPartial{}, false
	}
	return ewmh.WmStrutPartial{
		Left:       s.Left,
		Right:      s.Right,
		Top:        s.Top,
		Bottom:     s.Bottom,
		LeftEndY:   uint(root.Height - 1),
		RightEndY:  uint(root.Height - 1),
		TopEndX:    uint(root.Width - 1),
		BottomEndX: uint(root.Width - 1),
	}, true
}

// monitorFor returns the monitor containing the center of r, or the one
// overlapping it most, or the first monitor.
func monitorFor(monitors []Monitor, r platform.Rect) Monitor {
	center := platform.Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
	for _, m := range monitors {
		if m.Bounds.Contains(center) {
			return m
		}
	}
	best, bestArea := monitors[0], 0
	for _, m := range monitors {
		if a := m.Bounds.Intersect(r).Area(); a > bestArea {
			best, bestArea = m, a
		}
	}
	return best
}

// applyStruts shrinks mon by every strut that overlaps it. It reports false
// when no strut applies.
func applyStruts(mon, root platform.Rect, struts []ewmh.WmStrutPartial) (platform.Rect, bool) {
	var left, right, top, bottom int
	for _, sp := range struts {
		if sp.Top > 0 {
			band := platform.Rect{X: int(sp.TopStartX), Y: 0, Width: int(sp.TopEndX) - int(sp.TopStartX) + 1, Height: int(sp.Top)}
			top = max(top, mon.Intersect(band).Height)
		}
		if sp.Bottom > 0 {
			band := platform.Rect{X: int(sp.BottomStartX), Y: root.Height - int(sp.Bottom), Width: int(sp.BottomEndX) - int(sp.BottomStartX) + 1, Height: int(sp.Bottom)}
			bottom = max(bottom, mon.Intersect(band).Height)
		}
		if sp.Left > 0 {
			band := platform.Rect{X: 0, Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1}
			left = max(left, mon.Intersect(band).Width)
		}
		if sp.Right > 0 {
			band := platform.Rect{X: root.Width - int(sp.Right), Y: int(sp.RightStartY), Width: int(sp.Right), Height: int(sp.RightEndY) - int(sp.RightStartY) + 1}
			right = max(right, mon.Intersect(band).Width)
		}
	}

	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return mon, false
	}

	out := platform.Rect{
		X:      mon.X + left,
		Y:      mon.Y + top,
		Width:  max(mon.Width-left-right, 1),
		Height: max(mon.Height-top-bottom, 1),
	}
	return out, true
}
