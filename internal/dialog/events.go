package dialog

import (
	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// MoveNotify handles a window having moved by (dx, dy).
func (s *Screen) MoveNotify(id platform.WindowID, dx, dy int, immediate bool) {
	w, ok := s.windows[id]
	if !ok || w.hooks&HookMove == 0 || w.skipNotify {
		return
	}
	r, ok := s.host.BorderRect(id)
	if !ok {
		return
	}

	if w.ipw != 0 {
		if in, ok := s.host.InputRect(id); ok {
			if err := s.host.ConfigureInputPassthrough(w.ipw, in); err != nil {
				s.logger.Warn("failed to move input passthrough", "window", id, "error", err)
			}
		}
	}

	switch {
	case s.switchingVp && w.grabMask&GrabMove == 0:
		s.MoveTransientsToRect(id, 0, r, true)
	case w.parent != 0:
		s.MoveParentToRect(id, r, true)
	default:
		s.MoveTransientsToRect(id, 0, r, true)
	}
}

// ResizeNotify handles a window changing size. The window's transients are
// re-centered, and so are its siblings when it is itself a transient.
func (s *Screen) ResizeNotify(id platform.WindowID, dx, dy, dwidth, dheight int) {
	w, ok := s.windows[id]
	if !ok || w.hooks&HookMove == 0 || w.skipNotify {
		return
	}
	r, ok := s.host.BorderRect(id)
	if !ok {
		return
	}

	if w.ipw != 0 {
		if in, ok := s.host.InputRect(id); ok {
			if err := s.host.ConfigureInputPassthrough(w.ipw, in); err != nil {
				s.logger.Warn("failed to resize input passthrough", "window", id, "error", err)
			}
		}
	}

	s.MoveTransientsToRect(id, 0, r, true)
	if w.parent != 0 {
		if pr, ok := s.host.BorderRect(w.parent); ok {
			s.MoveTransientsToRect(w.parent, id, pr, true)
		}
	}
}

// GrabNotify records a grab on id and passes it on to its transients.
func (s *Screen) GrabNotify(id platform.WindowID, mask GrabMask) {
	w, ok := s.windows[id]
	if !ok || w.hooks&HookGrab == 0 {
		return
	}
	w.grabMask = mask
	s.grabTransients(w, mask, true, map[platform.WindowID]bool{})
	if r, ok := s.host.BorderRect(id); ok {
		s.MoveTransientsToRect(id, 0, r, true)
	}
}

// UngrabNotify clears the grab on id and its transients.
func (s *Screen) UngrabNotify(id platform.WindowID) {
	w, ok := s.windows[id]
	if !ok || w.hooks&HookGrab == 0 {
		return
	}
	mask := w.grabMask
	w.grabMask = 0
	s.grabTransients(w, mask, false, map[platform.WindowID]bool{})
	if r, ok := s.host.BorderRect(id); ok {
		s.MoveTransientsToRect(id, 0, r, true)
	}
}

func (s *Screen) grabTransients(w *Window, mask GrabMask, grab bool, visited map[platform.WindowID]bool) {
	if visited[w.id] {
		return
	}
	visited[w.id] = true
	for _, tid := range w.transients {
		t, ok := s.windows[tid]
		if !ok {
			continue
		}
		if grab {
			t.grabMask |= mask
		} else {
			t.grabMask &^= mask
		}
		s.grabTransients(t, mask, grab, visited)
	}
}

// AllowedActions returns the actions to add and remove for id on top of
// what the host would otherwise allow.
func (s *Screen) AllowedActions(id platform.WindowID) (setActions, clearActions Action) {
	w, ok := s.windows[id]
	if !ok || w.hooks&HookActions == 0 || w.parent == 0 {
		return 0, 0
	}
	return 0, TransientClearActions
}

// PaintMask adjusts the paint mask of id. Transients are painted as part of
// their parent, so their own core paint is suppressed.
func (s *Screen) PaintMask(id platform.WindowID, mask paint.Mask) paint.Mask {
	w, ok := s.windows[id]
	if !ok || w.hooks&HookPaint == 0 || w.parent == 0 {
		return mask
	}
	return mask | paint.MaskNoCoreInstance
}

// HandlePropertyNotify reacts to a window gaining WM_TRANSIENT_FOR after it
// was mapped.
func (s *Screen) HandlePropertyNotify(id platform.WindowID, property string) {
	if property != "WM_TRANSIENT_FOR" {
		return
	}
	if !s.host.IsViewable(id) {
		return
	}
	parent, ok := s.TransientParent(id)
	if !ok {
		return
	}
	if p, ok := s.windows[parent]; ok && p.HasTransient(id) {
		return
	}
	if s.AddTransient(parent, id) {
		s.TrackParent(parent)
	}
	if r, ok := s.host.BorderRect(parent); ok {
		s.MoveToRect(id, r, true)
	}
}

// HandleResizeNotifyMessage handles a _COMPIZ_RESIZE_NOTIFY message carrying
// the client geometry id is being resized to. Its transients are centered on
// the new frame.
func (s *Screen) HandleResizeNotifyMessage(id platform.WindowID, x, y, width, height int) {
	w, ok := s.windows[id]
	if !ok || len(w.transients) == 0 {
		return
	}
	b := s.host.Border(id)
	r := platform.Rect{
		X:      x - b.Left,
		Y:      y - b.Top,
		Width:  width + b.Left + b.Right,
		Height: height + b.Top + b.Bottom,
	}
	s.MoveTransientsToRect(id, 0, r, true)
}

// InputPassthroughTarget returns the transient to focus when the input
// passthrough over parent is clicked.
func (s *Screen) InputPassthroughTarget(parent platform.WindowID) (platform.WindowID, bool) {
	p, ok := s.windows[parent]
	if !ok || len(p.transients) == 0 {
		return 0, false
	}
	return p.transients[len(p.transients)-1], true
}

// WindowForInputPassthrough maps an input passthrough back to its parent.
func (s *Screen) WindowForInputPassthrough(ipw InputPassthroughID) (platform.WindowID, bool) {
	if ipw == 0 {
		return 0, false
	}
	for _, id := range s.parents {
		if w, ok := s.windows[id]; ok && w.ipw == ipw {
			return id, true
		}
	}
	return 0, false
}
