package x11

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/unitydialog/internal/platform"
)

// propertySource reads the window properties match expressions look at.
type propertySource interface {
	WindowClass(win xproto.Window) (class, instance string, ok bool)
	WindowTitle(win xproto.Window) (string, bool)
	WindowRole(win xproto.Window) (string, bool)
	WindowType(win xproto.Window) string
}

// matchWindow adapts an X window to match.Window. Properties are read on
// first use and kept until the window's match options are invalidated.
type matchWindow struct {
	id    platform.WindowID
	src   propertySource
	props map[string]string
	found map[string]bool
}

func newMatchWindow(id platform.WindowID, src propertySource) *matchWindow {
	return &matchWindow{
		id:    id,
		src:   src,
		props: make(map[string]string),
		found: make(map[string]bool),
	}
}

func (w *matchWindow) ID() platform.WindowID { return w.id }

func (w *matchWindow) Property(key string) (string, bool) {
	if v, ok := w.props[key]; ok {
		return v, w.found[key]
	}

	win := xproto.Window(w.id)
	var (
		value string
		ok    bool
	)
	switch key {
	case "class", "name":
		class, instance, has := w.src.WindowClass(win)
		w.props["class"], w.found["class"] = class, has
		w.props["name"], w.found["name"] = instance, has
		return w.props[key], has
	case "title":
		value, ok = w.src.WindowTitle(win)
	case "role":
		value, ok = w.src.WindowRole(win)
	case "type":
		value, ok = w.src.WindowType(win), true
	}
	w.props[key], w.found[key] = value, ok
	return value, ok
}
