package x11

import (
	"image/color"
	"math"
	"slices"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/platform"
)

func TestApplyStruts(t *testing.T) {
	root := platform.Rect{Width: 3840, Height: 1080}
	left := platform.Rect{Width: 1920, Height: 1080}
	right := platform.Rect{X: 1920, Width: 1920, Height: 1080}

	panel := ewmh.WmStrutPartial{Top: 24, TopStartX: 0, TopEndX: 1919}
	launcher := ewmh.WmStrutPartial{Left: 64, LeftStartY: 24, LeftEndY: 1079}

	tests := []struct {
		name   string
		mon    platform.Rect
		struts []ewmh.WmStrutPartial
		want   platform.Rect
		ok     bool
	}{
		{
			name: "no struts",
			mon:  left,
			want: left,
		},
		{
			name:   "panel and launcher",
			mon:    left,
			struts: []ewmh.WmStrutPartial{panel, launcher},
			want:   platform.Rect{X: 64, Y: 24, Width: 1856, Height: 1056},
			ok:     true,
		},
		{
			name:   "strut on another monitor",
			mon:    right,
			struts: []ewmh.WmStrutPartial{panel, launcher},
			want:   right,
		},
		{
			name:   "bottom strut spanning both monitors",
			mon:    right,
			struts: []ewmh.WmStrutPartial{{Bottom: 30, BottomStartX: 0, BottomEndX: 3839}},
			want:   platform.Rect{X: 1920, Width: 1920, Height: 1050},
			ok:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := applyStruts(tt.mon, root, tt.struts)
			if ok != tt.ok {
				t.Fatalf("applyStruts ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("applyStruts = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMonitorFor(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, Name: "DP-1", Bounds: platform.Rect{Width: 1920, Height: 1080}},
		{ID: 1, Name: "DP-2", Bounds: platform.Rect{X: 1920, Width: 1280, Height: 1024}},
	}

	tests := []struct {
		name string
		r    platform.Rect
		want string
	}{
		{name: "center on first", r: platform.Rect{X: 100, Y: 100, Width: 400, Height: 300}, want: "DP-1"},
		{name: "center on second", r: platform.Rect{X: 1800, Y: 100, Width: 600, Height: 300}, want: "DP-2"},
		{name: "center below second uses overlap", r: platform.Rect{X: 2000, Y: 900, Width: 400, Height: 400}, want: "DP-2"},
		{name: "off screen falls back to first", r: platform.Rect{X: -5000, Y: -5000, Width: 10, Height: 10}, want: "DP-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := monitorFor(monitors, tt.r); got.Name != tt.want {
				t.Fatalf("monitorFor(%+v) = %s, want %s", tt.r, got.Name, tt.want)
			}
		})
	}
}

func TestBorderAndClientSize(t *testing.T) {
	ext := platform.Extents{Left: 2, Right: 2, Top: 28, Bottom: 2}
	client := platform.Rect{X: 102, Y: 128, Width: 400, Height: 300}

	border := borderRect(client, ext)
	if want := (platform.Rect{X: 100, Y: 100, Width: 404, Height: 330}); border != want {
		t.Fatalf("borderRect = %+v, want %+v", border, want)
	}

	w, h := clientSize(border, ext)
	if w != client.Width || h != client.Height {
		t.Fatalf("clientSize = %dx%d, want %dx%d", w, h, client.Width, client.Height)
	}

	// Unset dimensions stay unset so the window manager keeps them.
	w, h = clientSize(platform.Rect{X: 10, Y: 10}, ext)
	if w != 0 || h != 0 {
		t.Fatalf("clientSize of position-only rect = %dx%d, want 0x0", w, h)
	}

	// A border smaller than the decorations still yields a 1px client.
	w, h = clientSize(platform.Rect{Width: 3, Height: 3}, ext)
	if w != 1 || h != 1 {
		t.Fatalf("clientSize of tiny rect = %dx%d, want 1x1", w, h)
	}
}

func TestApplyConfigure(t *testing.T) {
	cur := platform.Rect{X: 10, Y: 20, Width: 300, Height: 200}

	got := applyConfigure(cur, dialog.ConfigureRequest{
		Mask:   dialog.ConfigureX | dialog.ConfigureHeight,
		X:      50,
		Y:      999,
		Width:  999,
		Height: 120,
	})
	if want := (platform.Rect{X: 50, Y: 20, Width: 300, Height: 120}); got != want {
		t.Fatalf("applyConfigure = %+v, want %+v", got, want)
	}
}

func TestUnpremultiply(t *testing.T) {
	tests := []struct {
		name string
		in   color.NRGBA
		want color.RGBA
	}{
		{name: "opaque", in: color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, want: color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}},
		{name: "half black", in: color.NRGBA{A: 0x80}, want: color.RGBA{A: 0xff}},
		{name: "half color", in: color.NRGBA{R: 0x40, B: 0x20, A: 0x80}, want: color.RGBA{R: 0x7f, B: 0x3f, A: 0xff}},
		{name: "transparent", in: color.NRGBA{}, want: color.RGBA{A: 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unpremultiply(tt.in); got != tt.want {
				t.Fatalf("unpremultiply(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOverlayOpacity(t *testing.T) {
	tests := []struct {
		alpha   float64
		opacity uint16
		want    float64
	}{
		{alpha: 0.5, opacity: paint.Opaque, want: 0.5},
		{alpha: 0.5, opacity: 0, want: 0},
		{alpha: 1, opacity: paint.Opaque / 4, want: 0.25},
		{alpha: 2, opacity: paint.Opaque, want: 1},
	}

	for _, tt := range tests {
		got := overlayOpacity(tt.alpha, tt.opacity)
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("overlayOpacity(%v, %d) = %v, want %v", tt.alpha, tt.opacity, got, tt.want)
		}
	}
}

func TestWindowTypeName(t *testing.T) {
	tests := map[string]string{
		"_NET_WM_WINDOW_TYPE_DIALOG":        "Dialog",
		"_NET_WM_WINDOW_TYPE_NORMAL":        "Normal",
		"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": "DropdownMenu",
	}
	for atom, want := range tests {
		if got := windowTypeName(atom); got != want {
			t.Errorf("windowTypeName(%q) = %q, want %q", atom, got, want)
		}
	}
}

func TestDiffClientList(t *testing.T) {
	prev := []platform.WindowID{1, 2, 3}
	next := []platform.WindowID{2, 3, 4, 5}

	added, removed := diffClientList(prev, next)
	if !slices.Equal(added, []platform.WindowID{4, 5}) {
		t.Fatalf("added = %v, want [4 5]", added)
	}
	if !slices.Equal(removed, []platform.WindowID{1}) {
		t.Fatalf("removed = %v, want [1]", removed)
	}

	added, removed = diffClientList(nil, nil)
	if len(added) != 0 || len(removed) != 0 {
		t.Fatalf("diff of empty lists = %v, %v", added, removed)
	}
}

func TestMoveresizeGrab(t *testing.T) {
	tests := []struct {
		direction uint32
		mask      dialog.GrabMask
		cancel    bool
		ok        bool
	}{
		{direction: 0, mask: dialog.GrabResize | dialog.GrabButton, ok: true},
		{direction: 7, mask: dialog.GrabResize | dialog.GrabButton, ok: true},
		{direction: 8, mask: dialog.GrabMove | dialog.GrabButton, ok: true},
		{direction: 9, mask: dialog.GrabResize | dialog.GrabKey, ok: true},
		{direction: 10, mask: dialog.GrabMove | dialog.GrabKey, ok: true},
		{direction: 11, cancel: true, ok: true},
		{direction: 12},
	}

	for _, tt := range tests {
		mask, cancel, ok := moveresizeGrab(tt.direction)
		if mask != tt.mask || cancel != tt.cancel || ok != tt.ok {
			t.Errorf("moveresizeGrab(%d) = (%v, %v, %v), want (%v, %v, %v)",
				tt.direction, mask, cancel, ok, tt.mask, tt.cancel, tt.ok)
		}
	}
}

type fakeProps struct {
	classCalls int
	titleCalls int
}

func (f *fakeProps) WindowClass(xproto.Window) (string, string, bool) {
	f.classCalls++
	return "Gimp", "gimp-2.10", true
}

func (f *fakeProps) WindowTitle(xproto.Window) (string, bool) {
	f.titleCalls++
	return "Export Image", true
}

func (f *fakeProps) WindowRole(xproto.Window) (string, bool) { return "", false }
func (f *fakeProps) WindowType(xproto.Window) string { return "Dialog" }

func TestMatchWindowCachesProperties(t *testing.T) {
	src := &fakeProps{}
	w := newMatchWindow(0x400001, src)

	if got, ok := w.Property("class"); !ok || got != "Gimp" {
		t.Fatalf("class = %q, %v", got, ok)
	}
	if got, ok := w.Property("name"); !ok || got != "gimp-2.10" {
		t.Fatalf("name = %q, %v", got, ok)
	}
	w.Property("title")
	w.Property("title")
	if src.classCalls != 1 || src.titleCalls != 1 {
		t.Fatalf("expected one read per property, got class=%d title=%d", src.classCalls, src.titleCalls)
	}
	if _, ok := w.Property("role"); ok {
		t.Fatalf("expected role to be missing")
	}
	if got, _ := w.Property("type"); got != "Dialog" {
		t.Fatalf("type = %q, want Dialog", got)
	}
	if w.ID() != 0x400001 {
		t.Fatalf("ID = %#x", w.ID())
	}
}

type recordingSink struct {
	geometry int
	textures int
}

func (s *recordingSink) AddGeometry(paint.Geometry) { s.geometry++ }
func (s *recordingSink) DrawTexture(paint.Texture) { s.textures++ }

func newBareHost() *Host {
	return &Host{
		clients:   make(map[platform.WindowID]*client),
		redirects: make(map[platform.WindowID]paint.Sink),
		drawIndex: make(map[platform.WindowID]int),
		geometry:  make(map[platform.WindowID]*geometryBatch),
	}
}

func TestHostGeometryBounds(t *testing.T) {
	h := newBareHost()
	const win = platform.WindowID(7)

	h.BeginGeometry(win)
	if h.EndGeometry(win) {
		t.Fatalf("expected empty geometry to fail")
	}

	h.BeginGeometry(win)
	h.AddGeometry(win, paint.Geometry{Region: paint.RegionOf(platform.Rect{X: 10, Y: 10, Width: 20, Height: 20})}, paint.InfiniteRegion)
	h.AddGeometry(win, paint.Geometry{Region: paint.RegionOf(platform.Rect{X: 40, Y: 10, Width: 10, Height: 5})}, paint.InfiniteRegion)
	if !h.EndGeometry(win) {
		t.Fatalf("expected geometry to succeed")
	}
	if want := (platform.Rect{X: 10, Y: 10, Width: 40, Height: 20}); h.geometry[win].bounds != want {
		t.Fatalf("bounds = %+v, want %+v", h.geometry[win].bounds, want)
	}

	h.BeginGeometry(win)
	h.AddGeometry(win, paint.Geometry{Region: paint.RegionOf(platform.Rect{Width: 100, Height: 100})}, paint.RegionOf(platform.Rect{X: 50, Y: 50, Width: 10, Height: 10}))
	if want := (platform.Rect{X: 50, Y: 50, Width: 10, Height: 10}); h.geometry[win].bounds != want {
		t.Fatalf("clipped bounds = %+v, want %+v", h.geometry[win].bounds, want)
	}
}

func TestHostRedirect(t *testing.T) {
	h := newBareHost()
	const win = platform.WindowID(9)
	sink := &recordingSink{}

	restore := h.Redirect(win, sink)
	h.AddGeometry(win, paint.Geometry{}, paint.InfiniteRegion)
	h.DrawTexture(win, &pixmapTexture{}, paint.Identity(), paint.DefaultAttrib(), 0)
	restore()
	h.AddGeometry(win, paint.Geometry{}, paint.InfiniteRegion)

	if sink.geometry != 1 || sink.textures != 1 {
		t.Fatalf("sink got geometry=%d textures=%d, want 1 and 1", sink.geometry, sink.textures)
	}
	if _, ok := h.redirects[win]; ok {
		t.Fatalf("expected redirect to be removed")
	}
	if h.BindTextures(win) {
		t.Fatalf("expected BindTextures to fail")
	}
}

func TestHostDrawTextureIndex(t *testing.T) {
	h := newBareHost()
	const win = platform.WindowID(3)

	h.SetDrawTextureIndex(win, paint.DrawIndexLast)
	if got := h.DrawTextureIndex(win); got != paint.DrawIndexLast {
		t.Fatalf("DrawTextureIndex = %d, want %d", got, paint.DrawIndexLast)
	}
	h.SetDrawTextureIndex(win, 0)
	if _, ok := h.drawIndex[win]; ok {
		t.Fatalf("expected index 0 to clear the entry")
	}
}

type windowCall struct {
	op  string
	win xproto.Window
}

type recordingOps struct {
	calls []windowCall
}

func (r *recordingOps) MapWindow(win xproto.Window) { r.calls = append(r.calls, windowCall{"map", win}) }
func (r *recordingOps) UnmapWindow(win xproto.Window) { r.calls = append(r.calls, windowCall{"unmap", win}) }

func (r *recordingOps) ConfigureWindow(win xproto.Window, _ uint16, _ []uint32) {
	r.calls = append(r.calls, windowCall{"configure", win})
}

func TestInputPassthroughFollowsParentVisibility(t *testing.T) {
	const (
		parent = platform.WindowID(0x500)
		other  = platform.WindowID(0x600)
		ipw    = dialog.InputPassthroughID(0x9001)
		otherW = dialog.InputPassthroughID(0x9002)
	)
	ops := &recordingOps{}
	h := newBareHost()
	h.overlays = NewOverlayManager(nil, 0)
	h.ops = ops
	h.clients[parent] = &client{viewable: true, frame: 0x501}
	h.clients[other] = &client{viewable: true}
	h.ipws = map[dialog.InputPassthroughID]*passthrough{
		ipw:    {parent: parent, rect: platform.Rect{X: 10, Y: 10, Width: 400, Height: 300}, mapped: true},
		otherW: {parent: other, mapped: true},
	}

	h.setViewable(parent, false)
	if want := []windowCall{{"unmap", xproto.Window(ipw)}}; !slices.Equal(ops.calls, want) {
		t.Fatalf("hide calls = %v, want %v", ops.calls, want)
	}
	if h.ipws[ipw].mapped || !h.ipws[otherW].mapped {
		t.Fatalf("only the hidden parent's passthrough should be unmapped")
	}

	// Unchanged visibility issues no requests.
	ops.calls = nil
	h.setViewable(parent, false)
	if len(ops.calls) != 0 {
		t.Fatalf("repeated hide issued %v", ops.calls)
	}

	h.setViewable(parent, true)
	want := []windowCall{{"configure", xproto.Window(ipw)}, {"map", xproto.Window(ipw)}}
	if !slices.Equal(ops.calls, want) {
		t.Fatalf("show calls = %v, want %v", ops.calls, want)
	}
	if !h.ipws[ipw].mapped {
		t.Fatalf("passthrough should be mapped again")
	}
}
