package dialog

import (
	"github.com/1broseidon/unitydialog/internal/platform"
)

const (
	parentGrowFactor = 1.25
	childMaxFactor   = 0.8
)

// TransientParent resolves the parent a window should be attached to: a
// modal window with a WM_TRANSIENT_FOR that the avoid expression does not
// exclude. When the named window cannot be drawn over (unmapped or
// override-redirect), the largest viewable window of the same client group
// stands in for it.
func (s *Screen) TransientParent(id platform.WindowID) (platform.WindowID, bool) {
	tf, ok := s.host.TransientFor(id)
	if !ok || tf == 0 || tf == id {
		return 0, false
	}
	if !s.host.IsModal(id) {
		return 0, false
	}
	if s.matchesAvoid(id) {
		return 0, false
	}

	if s.host.IsViewable(tf) && !s.host.IsOverrideRedirect(tf) {
		return tf, true
	}

	leader := s.host.ClientLeader(tf)
	if leader == 0 {
		return 0, false
	}
	var (
		best     platform.WindowID
		bestArea int
	)
	for _, cand := range s.host.Windows() {
		if cand == id || s.host.ClientLeader(cand) != leader {
			continue
		}
		if !s.host.IsViewable(cand) || s.host.IsOverrideRedirect(cand) {
			continue
		}
		r, ok := s.host.BorderRect(cand)
		if !ok {
			continue
		}
		if area := r.Area(); area > bestArea {
			best, bestArea = cand, area
		}
	}
	if best == 0 {
		return 0, false
	}
	return best, true
}

func (s *Screen) matchesAvoid(id platform.WindowID) bool {
	if s.inAvoid {
		return false
	}
	s.inAvoid = true
	defer func() { s.inAvoid = false }()
	return s.host.MatchesAvoid(id)
}

// AddTransient attaches child to parent. It returns true when parent had no
// transients before, in which case the caller should TrackParent it.
func (s *Screen) AddTransient(parent, child platform.WindowID) bool {
	if parent == child {
		s.logger.Warn("refusing to make a window its own transient", "window", parent)
		return false
	}
	p := s.ensure(parent)
	if p.HasTransient(child) {
		return false
	}

	c := s.ensure(child)
	if c.parent != 0 && c.parent != parent {
		if old, ok := s.windows[c.parent]; ok {
			s.RemoveTransient(old.id, child)
		}
	}

	newParent := len(p.transients) == 0
	if newParent {
		s.setHooks(p, HookPaint|HookDraw|HookGrab|HookMove, true)
		s.host.DamageWindow(parent)
		if p.ipw == 0 {
			if r, ok := s.host.InputRect(parent); ok {
				ipw, err := s.host.CreateInputPassthrough(parent, r)
				if err != nil {
					s.logger.Error("failed to create input passthrough", "window", parent, "error", err)
				} else {
					p.ipw = ipw
				}
			}
		}
		if r, ok := s.host.BorderRect(parent); ok {
			p.currentPos = r.Pos()
			p.targetPos = r.Pos()
		}
	}

	s.setHooks(c, HookGrab|HookMove|HookActions, true)
	s.setHooks(c, HookPaint, !c.isAnimated)
	c.parent = parent
	p.transients = append(p.transients, child)

	s.SetMaxConstrainingAreas(child)
	s.host.UpdateMatchOptions(child)
	s.host.RecalcActions(child)

	s.logger.Info("transient attached", "parent", parent, "transient", child)
	return newParent
}

// RemoveTransient detaches child from parent. It returns true when parent
// has no transients left. The parent stays tracked until its dim has faded.
func (s *Screen) RemoveTransient(parent, child platform.WindowID) bool {
	p, ok := s.windows[parent]
	if !ok {
		return false
	}
	p.removeTransientID(child)

	if c, ok := s.windows[child]; ok && c.parent == parent {
		s.setHooks(c, HookGrab|HookMove|HookActions|HookPaint, false)
		c.parent = 0
		c.lastHints = platform.Point{}
		s.host.UpdateMatchOptions(child)
		s.host.RecalcActions(child)
	}
	s.logger.Info("transient detached", "parent", parent, "transient", child)

	if len(p.transients) > 0 {
		return false
	}

	s.setHooks(p, HookGrab|HookMove, false)
	if p.ipw != 0 {
		s.host.DestroyInputPassthrough(p.ipw)
		p.ipw = 0
	}
	if !p.diff.zero() {
		s.restoreConstrainedGeometry(p)
	}
	return true
}

// restoreConstrainedGeometry undoes the growth SetMaxConstrainingAreas
// applied to p.
func (s *Screen) restoreConstrainedGeometry(p *Window) {
	r, ok := s.host.BorderRect(p.id)
	if ok {
		req := ConfigureRequest{Sync: true}
		if p.diff.Width != 0 || p.diff.X != 0 {
			req.Mask |= ConfigureX | ConfigureWidth
			req.X = r.X + p.diff.X
			req.Width = r.Width + p.diff.Width
		}
		if p.diff.Height != 0 || p.diff.Y != 0 {
			req.Mask |= ConfigureY | ConfigureHeight
			req.Y = r.Y + p.diff.Y
			req.Height = r.Height + p.diff.Height
		}
		s.configure(p.id, req)
	}
	p.diff = constraintDiff{}

	if r, ok := s.host.BorderRect(p.id); ok {
		p.currentPos = r.Pos()
	}
	p.targetPos = p.currentPos.Add(p.offset)
	p.offset = platform.Point{}
}

// SetMaxConstrainingAreas grows child's parent so it is at least 1.25x the
// child in each dimension, records how far it was grown the first time, and
// caps the child's maximum size at 0.8x the parent.
func (s *Screen) SetMaxConstrainingAreas(child platform.WindowID) {
	c, ok := s.windows[child]
	if !ok || c.parent == 0 {
		return
	}
	p, ok := s.windows[c.parent]
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
	cr, ok := s.host.BorderRect(child)
	if !ok {
		return
	}
	wa := s.host.WorkArea(pr)

	req := ConfigureRequest{Sync: true}
	grown := pr

	if want := int(float64(cr.Width) * parentGrowFactor); pr.Width < want {
		x := pr.X - (want-pr.Width)/2
		if x < wa.X {
			x = wa.X
		} else if x+want > wa.Right() {
			x = wa.Right() - want
		}
		if p.diff.Width == 0 {
			p.diff.Width = pr.Width - want
		}
		if p.diff.X == 0 {
			p.diff.X = pr.X - x
		}
		req.Mask |= ConfigureX | ConfigureWidth
		req.X, req.Width = x, want
		grown.X, grown.Width = x, want
	}

	if want := int(float64(cr.Height) * parentGrowFactor); pr.Height < want {
		y := pr.Y - (want-pr.Height)/2
		if y < wa.Y {
			y = wa.Y
		} else if y+want > wa.Bottom() {
			y = wa.Bottom() - want
		}
		if p.diff.Height == 0 {
			p.diff.Height = pr.Height - want
		}
		if p.diff.Y == 0 {
			p.diff.Y = pr.Y - y
		}
		req.Mask |= ConfigureY | ConfigureHeight
		req.Y, req.Height = y, want
		grown.Y, grown.Height = y, want
	}

	if req.Mask != 0 {
		s.configure(p.id, req)
	}

	maxSize := platform.Point{
		X: int(float64(grown.Width) * childMaxFactor),
		Y: int(float64(grown.Height) * childMaxFactor),
	}
	hints := s.host.SizeHints(child)
	if hints.HasMaxSize && hints.MaxWidth < maxSize.X && hints.MaxHeight < maxSize.Y {
		return
	}
	if c.lastHints == maxSize {
		return
	}
	hints.HasMaxSize = true
	hints.MaxWidth = maxSize.X
	hints.MaxHeight = maxSize.Y
	if err := s.host.SetSizeHints(child, hints); err != nil {
		s.logger.Warn("failed to update size hints", "window", child, "error", err)
		return
	}
	c.lastHints = maxSize
}

func (s *Screen) configure(id platform.WindowID, req ConfigureRequest) {
	if err := s.host.Configure(id, req); err != nil {
		s.logger.Warn("configure failed", "window", id, "error", err)
	}
}

// Close handles a window closing: it is detached from its parent and its
// own transients are released.
func (s *Screen) Close(id platform.WindowID) {
	w, ok := s.windows[id]
	if !ok {
		return
	}
	if w.parent != 0 {
		s.RemoveTransient(w.parent, id)
	}
	for _, t := range w.Transients() {
		s.RemoveTransient(id, t)
	}
}

// Destroy drops all state for id. Links that are still present are unwound
// and logged, since Close should have removed them.
func (s *Screen) Destroy(id platform.WindowID) {
	w, ok := s.windows[id]
	if !ok {
		return
	}
	if w.parent != 0 || len(w.transients) > 0 {
		s.logger.Warn("destroying window with live dialog links",
			"window", id, "parent", w.parent, "transients", len(w.transients))
		s.Close(id)
	}
	if w.ipw != 0 {
		s.host.DestroyInputPassthrough(w.ipw)
		w.ipw = 0
	}
	s.UntrackParent(id)
	delete(s.windows, id)
}
