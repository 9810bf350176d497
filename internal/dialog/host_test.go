package dialog

import (
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/platform"
)

type fakeWin struct {
	rect         platform.Rect
	border       platform.Extents
	transientFor platform.WindowID
	leader       platform.WindowID
	modal        bool
	unmapped     bool
	override     bool
	maximized    bool
	fullscreen   bool
	hints        platform.SizeHints
}

type configureCall struct {
	id  platform.WindowID
	req ConfigureRequest
}

type textureDraw struct {
	win     platform.WindowID
	tex     paint.Texture
	opacity uint16
	mask    paint.Mask
	index   int
}

// fakeHost is an in-memory window table implementing Host.
type fakeHost struct {
	t *testing.T

	wins     map[platform.WindowID]*fakeWin
	order    []platform.WindowID
	workArea platform.Rect
	avoid    map[platform.WindowID]bool

	screenHooks bool
	hooks       map[platform.WindowID]Hook
	markers     map[platform.WindowID]bool
	configures  []configureCall
	hintPushes  int
	damage      []platform.Rect
	matchEvals  map[platform.WindowID]int
	recalcs     map[platform.WindowID]int

	nextIPW InputPassthroughID
	ipws    map[InputPassthroughID]platform.Rect

	redirects    map[platform.WindowID]paint.Sink
	scripts      map[platform.WindowID]func(paint.Sink)
	drawIndex    map[platform.WindowID]int
	defaultDraws []platform.WindowID
	textureDraws []textureDraw
	blend        bool
	texEnv       paint.TexEnvMode
}

func newFakeHost(t *testing.T) *fakeHost {
	return &fakeHost{
		t:          t,
		wins:       map[platform.WindowID]*fakeWin{},
		workArea:   platform.Rect{Width: 1024, Height: 768},
		avoid:      map[platform.WindowID]bool{},
		hooks:      map[platform.WindowID]Hook{},
		markers:    map[platform.WindowID]bool{},
		matchEvals: map[platform.WindowID]int{},
		recalcs:    map[platform.WindowID]int{},
		ipws:       map[InputPassthroughID]platform.Rect{},
		redirects:  map[platform.WindowID]paint.Sink{},
		scripts:    map[platform.WindowID]func(paint.Sink){},
		drawIndex:  map[platform.WindowID]int{},
	}
}

func (h *fakeHost) add(id platform.WindowID, w *fakeWin) *fakeWin {
	h.wins[id] = w
	h.order = append(h.order, id)
	return w
}

func (h *fakeHost) rect(id platform.WindowID) platform.Rect {
	return h.wins[id].rect
}

// Geometry

func (h *fakeHost) Windows() []platform.WindowID { return append([]platform.WindowID(nil), h.order...) }

func (h *fakeHost) BorderRect(id platform.WindowID) (platform.Rect, bool) {
	w, ok := h.wins[id]
	if !ok {
		return platform.Rect{}, false
	}
	return w.rect, true
}

func (h *fakeHost) InputRect(id platform.WindowID) (platform.Rect, bool) {
	return h.BorderRect(id)
}

func (h *fakeHost) OutputRect(id platform.WindowID) (platform.Rect, bool) {
	return h.BorderRect(id)
}

func (h *fakeHost) Border(id platform.WindowID) platform.Extents {
	if w, ok := h.wins[id]; ok {
		return w.border
	}
	return platform.Extents{}
}

func (h *fakeHost) WorkArea(platform.Rect) platform.Rect { return h.workArea }
func (h *fakeHost) Output() platform.Rect { return platform.Rect{Width: 1024, Height: 768} }

// Properties

func (h *fakeHost) TransientFor(id platform.WindowID) (platform.WindowID, bool) {
	w, ok := h.wins[id]
	if !ok || w.transientFor == 0 {
		return 0, false
	}
	return w.transientFor, true
}

func (h *fakeHost) ClientLeader(id platform.WindowID) platform.WindowID {
	if w, ok := h.wins[id]; ok {
		return w.leader
	}
	return 0
}

func (h *fakeHost) IsModal(id platform.WindowID) bool { return h.wins[id] != nil && h.wins[id].modal }
func (h *fakeHost) IsViewable(id platform.WindowID) bool {
	return h.wins[id] != nil && !h.wins[id].unmapped
}
func (h *fakeHost) IsOverrideRedirect(id platform.WindowID) bool {
	return h.wins[id] != nil && h.wins[id].override
}
func (h *fakeHost) IsMaximized(id platform.WindowID) bool {
	return h.wins[id] != nil && h.wins[id].maximized
}
func (h *fakeHost) IsFullscreen(id platform.WindowID) bool {
	return h.wins[id] != nil && h.wins[id].fullscreen
}

func (h *fakeHost) SizeHints(id platform.WindowID) platform.SizeHints {
	if w, ok := h.wins[id]; ok {
		return w.hints
	}
	return platform.SizeHints{}
}

func (h *fakeHost) SetSizeHints(id platform.WindowID, hints platform.SizeHints) error {
	w, ok := h.wins[id]
	if !ok {
		return fmt.Errorf("no window %d", id)
	}
	w.hints = hints
	h.hintPushes++
	return nil
}

func (h *fakeHost) SetParentMarker(id platform.WindowID, parent bool) error {
	if parent {
		h.markers[id] = true
	} else {
		delete(h.markers, id)
	}
	return nil
}

// WindowLifecycleHooks

func (h *fakeHost) Configure(id platform.WindowID, req ConfigureRequest) error {
	w, ok := h.wins[id]
	if !ok {
		return fmt.Errorf("no window %d", id)
	}
	h.configures = append(h.configures, configureCall{id: id, req: req})
	if req.Mask&ConfigureX != 0 {
		w.rect.X = req.X
	}
	if req.Mask&ConfigureY != 0 {
		w.rect.Y = req.Y
	}
	if req.Mask&ConfigureWidth != 0 {
		w.rect.Width = req.Width
	}
	if req.Mask&ConfigureHeight != 0 {
		w.rect.Height = req.Height
	}
	return nil
}

func (h *fakeHost) MatchesAvoid(id platform.WindowID) bool { return h.avoid[id] }
func (h *fakeHost) UpdateMatchOptions(id platform.WindowID) { h.matchEvals[id]++ }
func (h *fakeHost) RecalcActions(id platform.WindowID) { h.recalcs[id]++ }

// PaintHooks

func (h *fakeHost) SetWindowHooks(id platform.WindowID, hooks Hook) { h.hooks[id] = hooks }
func (h *fakeHost) SetScreenHooks(enabled bool) { h.screenHooks = enabled }
func (h *fakeHost) Damage(r platform.Rect) { h.damage = append(h.damage, r) }
func (h *fakeHost) DamageWindow(id platform.WindowID) { h.damage = append(h.damage, h.wins[id].rect) }

// InputHooks

func (h *fakeHost) CreateInputPassthrough(_ platform.WindowID, r platform.Rect) (InputPassthroughID, error) {
	h.nextIPW++
	h.ipws[h.nextIPW] = r
	return h.nextIPW, nil
}

func (h *fakeHost) ConfigureInputPassthrough(ipw InputPassthroughID, r platform.Rect) error {
	if _, ok := h.ipws[ipw]; !ok {
		return fmt.Errorf("no input passthrough %d", ipw)
	}
	h.ipws[ipw] = r
	return nil
}

func (h *fakeHost) DestroyInputPassthrough(ipw InputPassthroughID) {
	if _, ok := h.ipws[ipw]; !ok {
		h.t.Errorf("destroying unknown input passthrough %d", ipw)
	}
	delete(h.ipws, ipw)
}

// paint.GL

func (h *fakeHost) DrawWindow(win platform.WindowID, _ paint.Matrix, _ paint.Attrib, _ paint.Region, _ paint.Mask) bool {
	h.defaultDraws = append(h.defaultDraws, win)
	return true
}

func (h *fakeHost) PaintWindow(win platform.WindowID, _ paint.Attrib, _ paint.Matrix, _ paint.Region, _ paint.Mask) bool {
	if sink, ok := h.redirects[win]; ok {
		if script := h.scripts[win]; script != nil {
			script(sink)
		}
	}
	return true
}

func (h *fakeHost) BeginGeometry(platform.WindowID) {}
func (h *fakeHost) AddGeometry(platform.WindowID, paint.Geometry, paint.Region) {}
func (h *fakeHost) EndGeometry(platform.WindowID) bool { return true }

func (h *fakeHost) DrawTexture(win platform.WindowID, tex paint.Texture, _ paint.Matrix, attrib paint.Attrib, mask paint.Mask) {
	h.textureDraws = append(h.textureDraws, textureDraw{
		win:     win,
		tex:     tex,
		opacity: attrib.Opacity,
		mask:    mask,
		index:   h.drawIndex[win],
	})
}

func (h *fakeHost) DrawTextureIndex(win platform.WindowID) int { return h.drawIndex[win] }
func (h *fakeHost) SetDrawTextureIndex(win platform.WindowID, index int) {
	h.drawIndex[win] = index
}
func (h *fakeHost) PaintAttrib(platform.WindowID) paint.Attrib { return paint.DefaultAttrib() }
func (h *fakeHost) LastPaintAttrib(platform.WindowID) paint.Attrib { return paint.DefaultAttrib() }
func (h *fakeHost) BindTextures(id platform.WindowID) bool { return h.wins[id] != nil }
func (h *fakeHost) SetBlend(enabled bool, _, _ paint.BlendFactor) { h.blend = enabled }
func (h *fakeHost) SetTexEnvMode(mode paint.TexEnvMode) { h.texEnv = mode }

func (h *fakeHost) Redirect(win platform.WindowID, sink paint.Sink) func() {
	h.redirects[win] = sink
	return func() { delete(h.redirects, win) }
}

type fakeTexture struct{ name string }

func (t *fakeTexture) Matrix() paint.TexMatrix { return paint.TexMatrix{XX: 1, YY: 1} }
func (t *fakeTexture) Size() (int, int) { return 1, 1 }

type fakeFactory struct{}

func (fakeFactory) SolidTexture(c color.NRGBA) ([]paint.Texture, error) {
	return []paint.Texture{&fakeTexture{name: "shade"}}, nil
}

func (fakeFactory) Release([]paint.Texture) {}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScreen(t *testing.T) (*Screen, *fakeHost) {
	t.Helper()
	h := newFakeHost(t)
	shade := paint.NewShadeTexture(fakeFactory{}, quietLogger())
	shade.Render(color.Black, 0.5)
	s := NewScreen(h, shade, Options{FadeTime: DefaultFadeTime, Logger: quietLogger()})
	return s, h
}

// requireConsistent fails the test if parent/transient links disagree.
func requireConsistent(t *testing.T, s *Screen) {
	t.Helper()
	for _, err := range s.Check() {
		t.Errorf("inconsistent links: %v", err)
	}
}
