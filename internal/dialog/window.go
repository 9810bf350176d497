package dialog

import (
	"slices"

	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// Opaque is the fully-dimmed end of the shade ramp.
const Opaque = paint.Opaque

// damagePadding enlarges repaint regions to cover shadows and rounding.
const damagePadding = 5

// constraintDiff records how far a parent was grown to fit a transient.
// Restoring applies the diff back onto the grown geometry.
type constraintDiff struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (d constraintDiff) zero() bool {
	return d == constraintDiff{}
}

// Window is the dialog state attached to one managed window.
type Window struct {
	id platform.WindowID

	parent     platform.WindowID
	transients []platform.WindowID

	currentPos platform.Point
	targetPos  platform.Point
	offset     platform.Point

	shadeProgress int
	grabMask      GrabMask
	skipNotify    bool
	isAnimated    bool
	hooks         Hook

	ipw InputPassthroughID

	diff      constraintDiff
	lastHints platform.Point
}

func newWindow(id platform.WindowID) *Window {
	return &Window{id: id}
}

// ID returns the window id.
func (w *Window) ID() platform.WindowID { return w.id }

// Parent returns the parent id, or 0 when the window is not a transient.
func (w *Window) Parent() platform.WindowID { return w.parent }

// Transients returns a copy of the ordered transient list.
func (w *Window) Transients() []platform.WindowID {
	return slices.Clone(w.transients)
}

// ShadeProgress returns the dim progress in [0, Opaque].
func (w *Window) ShadeProgress() int { return w.shadeProgress }

// Hooks returns the hooks currently enabled for the window.
func (w *Window) Hooks() Hook { return w.hooks }

// HasTransient reports whether id is one of w's transients.
func (w *Window) HasTransient(id platform.WindowID) bool {
	return slices.Contains(w.transients, id)
}

func (w *Window) removeTransientID(id platform.WindowID) {
	w.transients = slices.DeleteFunc(w.transients, func(t platform.WindowID) bool { return t == id })
}

// animate advances the dim ramp by ms milliseconds of a fadeTime-long fade.
// It returns true when the progress changed.
func (w *Window) animate(ms, fadeTime int) bool {
	step := Opaque
	if fadeTime > 0 {
		step = Opaque * ms / fadeTime
		if step == 0 && ms > 0 {
			step = 1
		}
	}
	if step <= 0 {
		return false
	}

	if len(w.transients) > 0 && w.shadeProgress < Opaque {
		w.shadeProgress = min(Opaque, w.shadeProgress+step)
		return true
	}
	if len(w.transients) == 0 && w.shadeProgress > 0 {
		w.shadeProgress = max(0, w.shadeProgress-step)
		return true
	}
	return false
}

// animating reports whether the ramp still has ground to cover.
func (w *Window) animating() bool {
	if len(w.transients) > 0 {
		return w.shadeProgress < Opaque
	}
	return w.shadeProgress > 0
}

// interpolatedPos is the window's visual position part way through a move,
// with progress in [0, Opaque].
func (w *Window) interpolatedPos(progress int) platform.Point {
	t := float64(progress) / Opaque
	return platform.Point{
		X: w.currentPos.X + int(float64(w.targetPos.X-w.currentPos.X)*t),
		Y: w.currentPos.Y + int(float64(w.targetPos.Y-w.currentPos.Y)*t),
	}
}

// centeredPosition returns the top-left corner that centers size within r.
func centeredPosition(r platform.Rect, width, height int) platform.Point {
	return platform.Point{
		X: r.X + r.Width/2 - width/2,
		Y: r.Y + r.Height/2 - height/2,
	}
}
