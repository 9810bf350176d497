package dialog

import (
	"github.com/1broseidon/unitydialog/internal/platform"
)

// ChildCenteredPositionForRect returns the border-rect origin that centers
// id within r.
func (s *Screen) ChildCenteredPositionForRect(id platform.WindowID, r platform.Rect) platform.Point {
	br, ok := s.host.BorderRect(id)
	if !ok {
		return r.Pos()
	}
	return centeredPosition(r, br.Width, br.Height)
}

// ParentCenteredPositionForRect returns the border-rect origin that puts
// parent's center on the center of r.
func (s *Screen) ParentCenteredPositionForRect(parent platform.WindowID, r platform.Rect) platform.Point {
	return s.ChildCenteredPositionForRect(parent, r)
}

// MoveToRect moves id so it is centered on r and re-applies its parent's
// size constraints.
func (s *Screen) MoveToRect(id platform.WindowID, r platform.Rect, sync bool) {
	w, ok := s.windows[id]
	if !ok {
		return
	}
	pos := s.ChildCenteredPositionForRect(id, r)

	w.skipNotify = true
	s.configure(id, ConfigureRequest{
		Mask: ConfigureX | ConfigureY,
		X:    pos.X,
		Y:    pos.Y,
		Sync: sync,
	})
	s.SetMaxConstrainingAreas(id)
	w.skipNotify = false
}

// Place attaches id to its transient parent if it has one and returns where
// the host should put it. It returns false when the host's own placement
// should be used.
//
// The returned point is the centered border-rect origin minus the window's
// border offset.
func (s *Screen) Place(id platform.WindowID) (platform.Point, bool) {
	w := s.ensure(id)
	if parent, ok := s.TransientParent(id); ok {
		if s.AddTransient(parent, id) {
			s.TrackParent(parent)
		}
	}
	if w.parent == 0 {
		return platform.Point{}, false
	}

	pr, ok := s.host.BorderRect(w.parent)
	if !ok {
		return platform.Point{}, false
	}
	cr, ok := s.host.BorderRect(id)
	if !ok {
		return platform.Point{}, false
	}

	pos := centeredPosition(pr, cr.Width, cr.Height)
	centered := platform.Rect{X: pos.X, Y: pos.Y, Width: cr.Width, Height: cr.Height}

	if nudged := nudgeInto(centered, s.host.WorkArea(centered)); nudged != pos {
		pos = nudged
		s.AnimateParent(id, centered)
		s.MoveParentToRect(id, centered, true)
	}

	b := s.host.Border(id)
	return pos.Sub(platform.Point{X: b.Left, Y: b.Top}), true
}

// nudgeInto shifts r by however far it overflows area on each axis.
func nudgeInto(r, area platform.Rect) platform.Point {
	pos := r.Pos()
	if area.Empty() {
		return pos
	}
	if over := area.X - r.X; over > 0 {
		pos.X += over
	} else if over := r.Right() - area.Right(); over > 0 {
		pos.X -= over
	}
	if over := area.Y - r.Y; over > 0 {
		pos.Y += over
	} else if over := r.Bottom() - area.Bottom(); over > 0 {
		pos.Y -= over
	}
	return pos
}

// AnimateTransients sets up each transient of id (other than skip) to slide
// from its current spot to the center of dest. With recurse, their own
// transients follow.
func (s *Screen) AnimateTransients(id, skip platform.WindowID, dest platform.Rect, recurse bool) {
	s.animateTransients(id, skip, dest, recurse, map[platform.WindowID]bool{})
}

func (s *Screen) animateTransients(id, skip platform.WindowID, dest platform.Rect, recurse bool, visited map[platform.WindowID]bool) {
	if visited[id] {
		s.logger.Warn("transient cycle detected", "window", id)
		return
	}
	visited[id] = true

	w, ok := s.windows[id]
	if !ok {
		return
	}
	for _, tid := range w.transients {
		if tid == skip {
			continue
		}
		t, ok := s.windows[tid]
		if !ok {
			continue
		}
		tr, ok := s.host.BorderRect(tid)
		if !ok {
			continue
		}
		target := centeredPosition(dest, tr.Width, tr.Height)
		t.currentPos = tr.Pos()
		t.targetPos = target
		t.offset = target.Sub(t.currentPos)
		if recurse {
			s.animateTransients(tid, 0, tr.MoveTo(target), true, visited)
		}
	}
}

// AnimateParent sets up id's parent to slide so it is centered on dest,
// and its other transients to follow.
func (s *Screen) AnimateParent(id platform.WindowID, dest platform.Rect) {
	w, ok := s.windows[id]
	if !ok || w.parent == 0 {
		return
	}
	p, ok := s.windows[w.parent]
	if !ok {
		return
	}
	if s.host.IsMaximized(p.id) || s.host.IsFullscreen(p.id) {
		return
	}
	pr, ok := s.host.BorderRect(p.id)
	if !ok {
		return
	}
	target := s.ParentCenteredPositionForRect(p.id, dest)
	p.currentPos = pr.Pos()
	p.targetPos = target
	p.offset = target.Sub(p.currentPos)
	s.animateTransients(p.id, id, pr.MoveTo(target), false, map[platform.WindowID]bool{})
}

// MoveTransientsToRect centers every transient of id (other than skip) on
// r, and their transients on them in turn.
func (s *Screen) MoveTransientsToRect(id, skip platform.WindowID, r platform.Rect, sync bool) {
	s.moveTransientsToRect(id, skip, r, sync, map[platform.WindowID]bool{})
}

func (s *Screen) moveTransientsToRect(id, skip platform.WindowID, r platform.Rect, sync bool, visited map[platform.WindowID]bool) {
	if visited[id] {
		s.logger.Warn("transient cycle detected", "window", id)
		return
	}
	visited[id] = true

	w, ok := s.windows[id]
	if !ok {
		return
	}
	for _, tid := range w.Transients() {
		if tid == skip {
			continue
		}
		s.MoveToRect(tid, r, sync)
		if tr, ok := s.host.BorderRect(tid); ok {
			s.moveTransientsToRect(tid, 0, tr, sync, visited)
		}
	}
}

// MoveParentToRect centers id's parent on r, re-centers the parent's other
// transients on it, and continues up the chain.
func (s *Screen) MoveParentToRect(id platform.WindowID, r platform.Rect, sync bool) {
	visited := map[platform.WindowID]bool{}
	for {
		if visited[id] {
			s.logger.Warn("transient cycle detected", "window", id)
			return
		}
		visited[id] = true

		w, ok := s.windows[id]
		if !ok || w.parent == 0 {
			return
		}
		parent := w.parent
		if s.host.IsMaximized(parent) || s.host.IsFullscreen(parent) {
			return
		}
		s.MoveToRect(parent, r, sync)

		pr, ok := s.host.BorderRect(parent)
		if !ok {
			return
		}
		s.moveTransientsToRect(parent, id, pr, sync, map[platform.WindowID]bool{})

		id, r = parent, pr
	}
}
