package x11

import (
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/unitydialog/internal/platform"
)

// dimOverlay is an override-redirect window stacked directly above a
// parent's frame. Its background is the shade pixmap and its opacity carries
// the dim level.
type dimOverlay struct {
	win     xproto.Window
	rect    platform.Rect
	above   xproto.Window
	pixmap  uint32
	opacity float64
	mapped  bool
	drawn   bool
}

// OverlayManager owns the dim overlays of every parent.
type OverlayManager struct {
	xu       *xgbutil.XUtil
	root     xproto.Window
	hasShape bool

	overlays map[platform.WindowID]*dimOverlay
}

// NewOverlayManager creates a new overlay manager
func NewOverlayManager(xu *xgbutil.XUtil, root xproto.Window) *OverlayManager {
	m := &OverlayManager{
		xu:       xu,
		root:     root,
		overlays: make(map[platform.WindowID]*dimOverlay),
	}
	if xu != nil {
		m.hasShape = shape.Init(xu.Conn()) == nil
	}
	return m
}

// BeginFrame starts a paint pass. Overlays not shown before EndFrame are
// hidden.
func (m *OverlayManager) BeginFrame() {
	for _, o := range m.overlays {
		o.drawn = false
	}
}

// EndFrame hides every overlay that was not drawn during the pass.
func (m *OverlayManager) EndFrame() {
	for _, o := range m.overlays {
		if !o.drawn {
			m.hide(o)
		}
	}
}

// Show maps or updates the overlay of parent over r, stacked above frame.
// Requests are only sent for the attributes that changed.
func (m *OverlayManager) Show(parent platform.WindowID, frame xproto.Window, r platform.Rect, tex *pixmapTexture, opacity float64) error {
	o, ok := m.overlays[parent]
	if !ok {
		wid, err := m.createOverrideRedirectWindow()
		if err != nil {
			return err
		}
		o = &dimOverlay{win: wid, opacity: -1}
		m.overlays[parent] = o
	}
	o.drawn = true

	conn := m.xu.Conn()
	if r != o.rect || frame != o.above || !o.mapped {
		m.updateWindow(o.win, r, frame)
		o.rect = r
		o.above = frame
	}
	if pm := tex.Pixmap(); pm != o.pixmap {
		xproto.ChangeWindowAttributes(conn, o.win, xproto.CwBackPixmap, []uint32{pm})
		// Clear window to show the new background
		xproto.ClearArea(conn, false, o.win, 0, 0, 0, 0)
		o.pixmap = pm
	}
	if opacity != o.opacity {
		if err := ewmh.WmWindowOpacitySet(m.xu, o.win, opacity); err != nil {
			return err
		}
		o.opacity = opacity
	}
	if !o.mapped {
		xproto.MapWindow(conn, o.win)
		o.mapped = true
	}
	return nil
}

// Hide unmaps the overlay of parent without destroying it.
func (m *OverlayManager) Hide(parent platform.WindowID) {
	if o, ok := m.overlays[parent]; ok {
		m.hide(o)
	}
}

// Destroy removes the overlay of parent.
func (m *OverlayManager) Destroy(parent platform.WindowID) {
	o, ok := m.overlays[parent]
	if !ok {
		return
	}
	if o.win != 0 {
		xproto.DestroyWindow(m.xu.Conn(), o.win)
	}
	delete(m.overlays, parent)
}

// Cleanup destroys all overlay windows
func (m *OverlayManager) Cleanup() {
	for parent := range m.overlays {
		m.Destroy(parent)
	}
}

func (m *OverlayManager) hide(o *dimOverlay) {
	if !o.mapped {
		return
	}
	xproto.UnmapWindow(m.xu.Conn(), o.win)
	o.mapped = false
}

// createOverrideRedirectWindow creates a single override-redirect window
// that lets pointer input through to whatever is below it.
func (m *OverlayManager) createOverrideRedirectWindow() (xproto.Window, error) {
	conn := m.xu.Conn()
	screen := m.xu.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		m.root,
		0, 0, // x, y (will be updated later)
		1, 1, // width, height (will be updated later)
		0, // border_width
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		// Value list order follows the bit positions of the mask (low to high).
		[]uint32{0, 1}, // back_pixel=black, override_redirect=true
	).Check()
	if err != nil {
		return 0, err
	}

	if m.hasShape {
		// Empty input shape: clicks go to the input passthrough below.
		shape.Rectangles(conn, shape.SoSet, shape.SkInput, xproto.ClipOrderingUnsorted, wid, 0, 0, nil)
	}
	return wid, nil
}

// updateWindow moves and resizes an overlay and restacks it above sibling.
func (m *OverlayManager) updateWindow(wid xproto.Window, r platform.Rect, sibling xproto.Window) {
	width := max(r.Width, 1)
	height := max(r.Height, 1)

	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY | xproto.ConfigWindowWidth | xproto.ConfigWindowHeight)
	values := []uint32{uint32(int32(r.X)), uint32(int32(r.Y)), uint32(width), uint32(height)}
	if sibling != 0 {
		mask |= xproto.ConfigWindowSibling
		values = append(values, uint32(sibling))
	}
	mask |= xproto.ConfigWindowStackMode
	values = append(values, xproto.StackModeAbove)

	xproto.ConfigureWindow(m.xu.Conn(), wid, mask, values)
}
