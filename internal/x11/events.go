package x11

import (
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// _NET_WM_MOVERESIZE directions.
const (
	moveresizeSizeLeft     = 7
	moveresizeMove         = 8
	moveresizeSizeKeyboard = 9
	moveresizeMoveKeyboard = 10
	moveresizeCancel       = 11
)

// moveresizeGrab maps a _NET_WM_MOVERESIZE direction to the grab it starts.
// Directions 0 through 7 are the resize edges and corners. cancel is true
// for the direction that ends a grab.
func moveresizeGrab(direction uint32) (mask dialog.GrabMask, cancel, ok bool) {
	switch {
	case direction <= moveresizeSizeLeft:
		return dialog.GrabResize | dialog.GrabButton, false, true
	case direction == moveresizeMove:
		return dialog.GrabMove | dialog.GrabButton, false, true
	case direction == moveresizeSizeKeyboard:
		return dialog.GrabResize | dialog.GrabKey, false, true
	case direction == moveresizeMoveKeyboard:
		return dialog.GrabMove | dialog.GrabKey, false, true
	case direction == moveresizeCancel:
		return 0, true, true
	}
	return 0, false, false
}

// diffClientList returns the windows present only in next and only in prev.
func diffClientList(prev, next []platform.WindowID) (added, removed []platform.WindowID) {
	seen := make(map[platform.WindowID]bool, len(prev))
	for _, id := range prev {
		seen[id] = true
	}
	keep := make(map[platform.WindowID]bool, len(next))
	for _, id := range next {
		keep[id] = true
		if !seen[id] {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// Start listens on the root window and adopts every existing client.
// Windows that already have a transient parent are attached and centered.
func (h *Host) Start() error {
	xu := h.conn.XUtil
	if err := h.conn.Listen(h.conn.Root, xproto.EventMaskPropertyChange, xproto.EventMaskSubstructureNotify, xproto.EventMaskStructureNotify); err != nil {
		return err
	}

	xevent.PropertyNotifyFun(h.rootPropertyNotify).Connect(xu, h.conn.Root)
	xevent.ClientMessageFun(h.clientMessage).Connect(xu, h.conn.Root)
	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		if ev.Window != h.conn.Root {
			return
		}
		h.output = platform.Rect{Width: int(ev.Width), Height: int(ev.Height)}
		h.dirty = true
	}).Connect(xu, h.conn.Root)

	h.SyncClientList()
	return nil
}

// SyncClientList reconciles the tracked clients with _NET_CLIENT_LIST and
// returns the windows that were dropped.
func (h *Host) SyncClientList() []platform.WindowID {
	wins, err := h.conn.ClientList()
	if err != nil {
		h.logger.Warn("failed to read client list", "error", err)
		return nil
	}
	next := make([]platform.WindowID, 0, len(wins))
	for _, w := range wins {
		next = append(next, platform.WindowID(w))
	}

	added, removed := diffClientList(h.order, next)
	for _, id := range removed {
		h.forget(id)
	}
	h.order = next
	for _, id := range added {
		h.track(id)
	}
	for _, id := range added {
		h.place(id)
	}
	return removed
}

// track starts caching and listening to a new client.
func (h *Host) track(id platform.WindowID) {
	win := xproto.Window(id)
	if err := h.conn.Listen(win, xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		h.logger.Debug("failed to listen on window", "window", id, "error", err)
	}

	c := &client{}
	h.clients[id] = c
	h.refresh(id, c)

	xu := h.conn.XUtil
	xevent.PropertyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		h.windowPropertyNotify(id, ev)
	}).Connect(xu, win)
	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, _ xevent.ConfigureNotifyEvent) {
		h.configureNotify(id)
	}).Connect(xu, win)
	xevent.MapNotifyFun(func(_ *xgbutil.XUtil, _ xevent.MapNotifyEvent) {
		h.setViewable(id, true)
	}).Connect(xu, win)
	xevent.UnmapNotifyFun(func(_ *xgbutil.XUtil, _ xevent.UnmapNotifyEvent) {
		h.setViewable(id, false)
	}).Connect(xu, win)
	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, _ xevent.DestroyNotifyEvent) {
		h.forget(id)
	}).Connect(xu, win)
}

// refresh re-reads the cached geometry of a client.
func (h *Host) refresh(id platform.WindowID, c *client) {
	win := xproto.Window(id)
	c.ext = h.conn.FrameExtents(win)
	if r, err := h.conn.ClientRect(win); err == nil {
		c.rect = borderRect(r, c.ext)
	}
	if viewable, _, err := h.conn.Attributes(win); err == nil {
		c.viewable = viewable
	}
	c.frame = h.conn.FrameWindow(win)
}

// place runs transient placement for a newly managed window and moves it.
func (h *Host) place(id platform.WindowID) {
	if h.screen == nil {
		return
	}
	pos, ok := h.screen.Place(id)
	if !ok {
		return
	}
	b := h.Border(id)
	req := dialog.ConfigureRequest{
		Mask: dialog.ConfigureX | dialog.ConfigureY,
		X:    pos.X + b.Left,
		Y:    pos.Y + b.Top,
	}
	if err := h.Configure(id, req); err != nil {
		h.logger.Warn("failed to place transient", "window", id, "error", err)
	}
}

// forget drops a client that left the client list or was destroyed.
func (h *Host) forget(id platform.WindowID) {
	if _, ok := h.clients[id]; !ok {
		return
	}
	if h.screen != nil {
		h.screen.Close(id)
		h.screen.Destroy(id)
	}
	xevent.Detach(h.conn.XUtil, xproto.Window(id))
	h.overlays.Destroy(id)
	delete(h.clients, id)
	delete(h.matchCache, id)
	delete(h.hooks, id)
	delete(h.grabs, id)
	delete(h.geometry, id)
	delete(h.drawIndex, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Host) setViewable(id platform.WindowID, viewable bool) {
	c, ok := h.clients[id]
	if !ok || c.viewable == viewable {
		return
	}
	c.viewable = viewable
	if !viewable {
		h.overlays.Hide(id)
	}
	h.showInputPassthroughs(id, viewable)
	h.dirty = true
}

// configureNotify diffs the new geometry of a client against the cache and
// reports the change to the Screen.
func (h *Host) configureNotify(id platform.WindowID) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	old := c.rect
	h.refresh(id, c)
	if _, grabbed := h.grabs[id]; grabbed {
		h.grabs[id] = time.Now()
	}
	if c.rect == old || h.screen == nil {
		return
	}
	h.dirty = true

	dx, dy := c.rect.X-old.X, c.rect.Y-old.Y
	dw, dh := c.rect.Width-old.Width, c.rect.Height-old.Height
	if dw != 0 || dh != 0 {
		h.screen.ResizeNotify(id, dx, dy, dw, dh)
	} else {
		h.screen.MoveNotify(id, dx, dy, true)
	}
}

func (h *Host) windowPropertyNotify(id platform.WindowID, ev xevent.PropertyNotifyEvent) {
	name, err := xprop.AtomName(h.conn.XUtil, ev.Atom)
	if err != nil {
		return
	}
	switch name {
	case "WM_TRANSIENT_FOR":
		if h.screen != nil {
			h.screen.HandlePropertyNotify(id, name)
		}
	case "_NET_WM_STATE":
		delete(h.matchCache, id)
		h.RecalcActions(id)
	case "_NET_FRAME_EXTENTS":
		h.configureNotify(id)
	case "WM_CLASS", "WM_NAME", "_NET_WM_NAME", "WM_WINDOW_ROLE", "_NET_WM_WINDOW_TYPE":
		delete(h.matchCache, id)
	}
}

func (h *Host) rootPropertyNotify(_ *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	name, err := xprop.AtomName(h.conn.XUtil, ev.Atom)
	if err != nil {
		return
	}
	switch name {
	case "_NET_CLIENT_LIST":
		h.SyncClientList()
	case "_NET_CURRENT_DESKTOP", "_NET_DESKTOP_VIEWPORT":
		if h.screen == nil {
			return
		}
		h.screen.HandlePluginEvent(dialog.PluginEvent{Plugin: "core", Name: "start_viewport_switch"})
		h.switchEnding = true
	}
}

func (h *Host) clientMessage(_ *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
	if h.screen == nil || ev.Format != 32 {
		return
	}
	name, err := xprop.AtomName(h.conn.XUtil, ev.Type)
	if err != nil {
		return
	}
	id := platform.WindowID(ev.Window)
	if _, ok := h.clients[id]; !ok {
		return
	}
	data := ev.Data.Data32

	switch name {
	case resizeNotifyAtom:
		if len(data) < 4 {
			return
		}
		h.screen.HandleResizeNotifyMessage(id, int(int32(data[0])), int(int32(data[1])), int(data[2]), int(data[3]))
	case moveresizeAtom:
		if len(data) < 3 {
			return
		}
		mask, cancel, ok := moveresizeGrab(data[2])
		if !ok {
			return
		}
		if cancel {
			delete(h.grabs, id)
			h.screen.UngrabNotify(id)
			return
		}
		h.grabs[id] = time.Now()
		h.screen.GrabNotify(id, mask)
	}
}
