package dialog

import (
	"log/slog"
	"slices"
	"time"

	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// DefaultFadeTime is the dim crossfade duration used when none is configured.
const DefaultFadeTime = 150 * time.Millisecond

// ParentListener is told when a window starts or stops being tracked as a parent.
type ParentListener func(id platform.WindowID, tracked bool)

// Options configures a Screen.
type Options struct {
	FadeTime time.Duration
	Logger   *slog.Logger
}

// Screen owns the dialog state of every window and the list of parents
// that currently dim or are fading out.
type Screen struct {
	host   Host
	shade  *paint.ShadeTexture
	logger *slog.Logger

	windows     map[platform.WindowID]*Window
	parents     []platform.WindowID
	switchingVp bool
	fadeTime    time.Duration

	inAvoid   bool
	listeners []ParentListener
}

// NewScreen creates an empty Screen bound to host. The shade texture is
// drawn over every parent; it may be nil when the host draws no dim.
func NewScreen(host Host, shade *paint.ShadeTexture, opts Options) *Screen {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fade := opts.FadeTime
	if fade <= 0 {
		fade = DefaultFadeTime
	}
	return &Screen{
		host:     host,
		shade:    shade,
		logger:   logger,
		windows:  make(map[platform.WindowID]*Window),
		fadeTime: fade,
	}
}

// SetFadeTime changes the crossfade duration for subsequent frames.
func (s *Screen) SetFadeTime(d time.Duration) {
	if d <= 0 {
		d = DefaultFadeTime
	}
	s.fadeTime = d
}

// FadeTime returns the crossfade duration.
func (s *Screen) FadeTime() time.Duration {
	return s.fadeTime
}

// Shade returns the shared dim texture.
func (s *Screen) Shade() *paint.ShadeTexture {
	return s.shade
}

// OnParentChange registers fn to be told about TrackParent/UntrackParent.
func (s *Screen) OnParentChange(fn ParentListener) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}

// Window returns the state attached to id.
func (s *Screen) Window(id platform.WindowID) (*Window, bool) {
	w, ok := s.windows[id]
	return w, ok
}

// ensure returns the state of id, creating it on first use.
func (s *Screen) ensure(id platform.WindowID) *Window {
	if w, ok := s.windows[id]; ok {
		return w
	}
	w := newWindow(id)
	s.windows[id] = w
	return w
}

// Parents returns the tracked parents in tracking order.
func (s *Screen) Parents() []platform.WindowID {
	return slices.Clone(s.parents)
}

// SwitchingViewport reports whether a viewport switch is in progress.
func (s *Screen) SwitchingViewport() bool {
	return s.switchingVp
}

// TrackParent adds id to the parent list. Tracking the first parent turns
// on the per-frame screen hooks.
func (s *Screen) TrackParent(id platform.WindowID) {
	if slices.Contains(s.parents, id) {
		return
	}
	if len(s.parents) == 0 {
		s.host.SetScreenHooks(true)
	}
	if err := s.host.SetParentMarker(id, true); err != nil {
		s.logger.Warn("failed to set parent marker", "window", id, "error", err)
	}
	s.parents = append(s.parents, id)
	s.logger.Debug("tracking parent", "window", id)
	s.notify(id, true)
}

// UntrackParent removes id from the parent list. Untracking the last parent
// turns the per-frame screen hooks off.
func (s *Screen) UntrackParent(id platform.WindowID) {
	idx := slices.Index(s.parents, id)
	if idx < 0 {
		return
	}
	s.parents = slices.Delete(s.parents, idx, idx+1)
	if err := s.host.SetParentMarker(id, false); err != nil {
		s.logger.Warn("failed to clear parent marker", "window", id, "error", err)
	}
	if len(s.parents) == 0 {
		s.host.SetScreenHooks(false)
	}
	s.logger.Debug("untracked parent", "window", id)
	s.notify(id, false)
}

func (s *Screen) notify(id platform.WindowID, tracked bool) {
	for _, fn := range s.listeners {
		fn(id, tracked)
	}
}

// PreparePaint advances every parent's dim ramp by elapsed.
func (s *Screen) PreparePaint(elapsed time.Duration) {
	ms := int(elapsed / time.Millisecond)
	fade := int(s.fadeTime / time.Millisecond)
	for _, id := range s.parents {
		if w, ok := s.windows[id]; ok {
			w.animate(ms, fade)
		}
	}
}

// DonePaint requests repaints for parents still fading and stops tracking
// parents that finished fading out.
func (s *Screen) DonePaint() {
	for i := 0; i < len(s.parents); {
		id := s.parents[i]
		w, ok := s.windows[id]
		if !ok {
			s.UntrackParent(id)
			continue
		}
		if w.animating() {
			s.host.Damage(s.DamageRegion(id))
			i++
			continue
		}
		if len(w.transients) == 0 {
			s.setHooks(w, HookPaint|HookDraw, false)
			s.UntrackParent(id)
			continue
		}
		i++
	}
}

// DamageRegion returns the area a parent covers at its current animation
// step, padded to cover shadows.
func (s *Screen) DamageRegion(id platform.WindowID) platform.Rect {
	w, ok := s.windows[id]
	if !ok {
		return platform.Rect{}
	}
	out, ok := s.host.OutputRect(id)
	if !ok {
		return platform.Rect{}
	}
	pos := w.interpolatedPos(w.shadeProgress)
	return platform.Rect{
		X:      pos.X,
		Y:      pos.Y,
		Width:  out.Width + damagePadding,
		Height: out.Height + damagePadding,
	}
}

// PluginEvent is a notification broadcast by another compositor component.
type PluginEvent struct {
	Plugin string
	Name   string
	Window platform.WindowID
	Active bool
}

// HandlePluginEvent reacts to viewport switches and to other components
// animating a window.
func (s *Screen) HandlePluginEvent(ev PluginEvent) {
	switch ev.Name {
	case "start_viewport_switch":
		s.switchingVp = true
	case "end_viewport_switch":
		s.switchingVp = false
	case "window_animation":
		w, ok := s.windows[ev.Window]
		if !ok {
			// Remember an animation that starts before the window is attached.
			if !ev.Active || ev.Window == 0 {
				return
			}
			w = s.ensure(ev.Window)
		}
		w.isAnimated = ev.Active
		if w.parent != 0 {
			s.setHooks(w, HookPaint, !ev.Active)
		}
	}
}

// setHooks enables or disables hooks on w and mirrors the result to the host.
func (s *Screen) setHooks(w *Window, hooks Hook, enabled bool) {
	next := w.hooks &^ hooks
	if enabled {
		next = w.hooks | hooks
	}
	if next == w.hooks {
		return
	}
	w.hooks = next
	s.host.SetWindowHooks(w.id, next)
}
