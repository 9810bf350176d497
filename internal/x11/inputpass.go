package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// passthrough is an input-only window covering a parent. It is only mapped
// while the parent is viewable.
type passthrough struct {
	parent platform.WindowID
	rect   platform.Rect
	mapped bool
}

// windowOps are the requests made on the windows the host creates itself.
type windowOps interface {
	MapWindow(win xproto.Window)
	UnmapWindow(win xproto.Window)
	ConfigureWindow(win xproto.Window, mask uint16, values []uint32)
}

type connOps struct {
	conn *xgb.Conn
}

func (o connOps) MapWindow(win xproto.Window) { xproto.MapWindow(o.conn, win) }
func (o connOps) UnmapWindow(win xproto.Window) { xproto.UnmapWindow(o.conn, win) }

func (o connOps) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) {
	xproto.ConfigureWindow(o.conn, win, mask, values)
}

// InputHooks

// CreateInputPassthrough creates an input-only window over parent. A click
// on it focuses the parent's newest transient.
func (h *Host) CreateInputPassthrough(parent platform.WindowID, r platform.Rect) (dialog.InputPassthroughID, error) {
	conn := h.conn.XUtil.Conn()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate input passthrough id: %w", err)
	}

	err = xproto.CreateWindowChecked(
		conn,
		0, // depth must be 0 for InputOnly
		wid,
		h.conn.Root,
		int16(r.X), int16(r.Y),
		uint16(max(r.Width, 1)), uint16(max(r.Height, 1)),
		0,
		xproto.WindowClassInputOnly,
		xproto.WindowClassCopyFromParent,
		xproto.CwOverrideRedirect|xproto.CwEventMask,
		// Value list order follows the bit positions of the mask.
		[]uint32{1, xproto.EventMaskButtonPress},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create input passthrough: %w", err)
	}

	ipw := dialog.InputPassthroughID(wid)
	p := &passthrough{parent: parent, rect: r}
	h.ipws[ipw] = p
	xevent.ButtonPressFun(func(_ *xgbutil.XUtil, _ xevent.ButtonPressEvent) {
		h.passthroughClicked(ipw)
	}).Connect(h.conn.XUtil, wid)

	h.stackInputPassthrough(wid, p)
	if c, ok := h.clients[parent]; !ok || c.viewable {
		h.ops.MapWindow(wid)
		p.mapped = true
	}
	return ipw, nil
}

// ConfigureInputPassthrough moves an input passthrough to r.
func (h *Host) ConfigureInputPassthrough(ipw dialog.InputPassthroughID, r platform.Rect) error {
	p, ok := h.ipws[ipw]
	if !ok {
		return fmt.Errorf("unknown input passthrough %#x", uint32(ipw))
	}
	p.rect = r
	h.stackInputPassthrough(xproto.Window(ipw), p)
	return nil
}

// showInputPassthroughs maps or unmaps the passthroughs of parent. A hidden
// parent must not swallow clicks at its old position.
func (h *Host) showInputPassthroughs(parent platform.WindowID, show bool) {
	for ipw, p := range h.ipws {
		if p.parent != parent || p.mapped == show {
			continue
		}
		wid := xproto.Window(ipw)
		if show {
			// The frame may have been restacked while the parent was hidden.
			h.stackInputPassthrough(wid, p)
			h.ops.MapWindow(wid)
		} else {
			h.ops.UnmapWindow(wid)
		}
		p.mapped = show
	}
}

// DestroyInputPassthrough removes an input passthrough.
func (h *Host) DestroyInputPassthrough(ipw dialog.InputPassthroughID) {
	if _, ok := h.ipws[ipw]; !ok {
		return
	}
	delete(h.ipws, ipw)
	xevent.Detach(h.conn.XUtil, xproto.Window(ipw))
	xproto.DestroyWindow(h.conn.XUtil.Conn(), xproto.Window(ipw))
}

// stackInputPassthrough places wid over the passthrough's rect, directly
// above the parent's frame so the parent's transients stay above it.
func (h *Host) stackInputPassthrough(wid xproto.Window, p *passthrough) {
	r := p.rect
	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY | xproto.ConfigWindowWidth | xproto.ConfigWindowHeight)
	values := []uint32{uint32(int32(r.X)), uint32(int32(r.Y)), uint32(max(r.Width, 1)), uint32(max(r.Height, 1))}
	if c, ok := h.clients[p.parent]; ok && c.frame != 0 {
		mask |= xproto.ConfigWindowSibling
		values = append(values, uint32(c.frame))
	}
	mask |= xproto.ConfigWindowStackMode
	values = append(values, xproto.StackModeAbove)
	h.ops.ConfigureWindow(wid, mask, values)
}

func (h *Host) passthroughClicked(ipw dialog.InputPassthroughID) {
	if h.screen == nil {
		return
	}
	parent, ok := h.screen.WindowForInputPassthrough(ipw)
	if !ok {
		return
	}
	target, ok := h.screen.InputPassthroughTarget(parent)
	if !ok {
		return
	}
	if err := h.conn.FocusWindow(xproto.Window(target)); err != nil {
		h.logger.Warn("failed to focus transient", "parent", parent, "transient", target, "error", err)
	}
}
