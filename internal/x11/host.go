package x11

import (
	"log/slog"
	"slices"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/match"
	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// grabIdleTimeout ends a window manager move or resize once the window has
// stopped changing for this long. The window manager never tells other
// clients when its grab ends.
const grabIdleTimeout = 300 * time.Millisecond

// client is the cached state of one managed window.
type client struct {
	rect     platform.Rect // border rect
	ext      platform.Extents
	frame    xproto.Window
	viewable bool
}

// geometryBatch accumulates the geometry handed to a window between
// BeginGeometry and EndGeometry.
type geometryBatch struct {
	bounds platform.Rect
}

// Host implements dialog.Host on top of an X11 window manager. Windows are
// the clients of _NET_CLIENT_LIST, the dim is an overlay window per parent
// and transients are left to the window manager's own stacking.
//
// Host is not safe for concurrent use; every call must come from the
// goroutine that drives Connection.MainPing.
type Host struct {
	conn     *Connection
	logger   *slog.Logger
	screen   *dialog.Screen
	overlays *OverlayManager

	clients map[platform.WindowID]*client
	order   []platform.WindowID
	output  platform.Rect

	avoid      match.Expr
	matchCache map[platform.WindowID]*matchWindow

	hooks        map[platform.WindowID]dialog.Hook
	screenHooks  bool
	dirty        bool
	switchEnding bool
	grabs        map[platform.WindowID]time.Time

	ipws map[dialog.InputPassthroughID]*passthrough
	ops  windowOps

	redirects map[platform.WindowID]paint.Sink
	drawIndex map[platform.WindowID]int
	geometry  map[platform.WindowID]*geometryBatch
	blend     bool
	texEnv    paint.TexEnvMode
}

// NewHost creates a host on conn. Attach must be called before events are
// processed.
func NewHost(conn *Connection, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		conn:       conn,
		logger:     logger,
		overlays:   NewOverlayManager(conn.XUtil, conn.Root),
		clients:    make(map[platform.WindowID]*client),
		matchCache: make(map[platform.WindowID]*matchWindow),
		hooks:      make(map[platform.WindowID]dialog.Hook),
		grabs:      make(map[platform.WindowID]time.Time),
		ipws:       make(map[dialog.InputPassthroughID]*passthrough),
		ops:        connOps{conn: conn.XUtil.Conn()},
		redirects:  make(map[platform.WindowID]paint.Sink),
		drawIndex:  make(map[platform.WindowID]int),
		geometry:   make(map[platform.WindowID]*geometryBatch),
	}
	if root, err := conn.RootRect(); err == nil {
		h.output = root
	} else {
		logger.Warn("failed to read root geometry", "error", err)
	}
	return h
}

// Attach binds the Screen whose hooks this host calls.
func (h *Host) Attach(screen *dialog.Screen) {
	h.screen = screen
}

// ABI declares the capability versions this host implements.
func (h *Host) ABI() map[string]int {
	return map[string]int{
		"core":      dialog.CoreABI,
		"composite": dialog.CompositeABI,
		"opengl":    dialog.OpenGLABI,
	}
}

// SetAvoid replaces the compiled avoid expression. A nil expression matches
// nothing.
func (h *Host) SetAvoid(expr match.Expr) {
	h.avoid = expr
	clear(h.matchCache)
}

// NeedsFrame reports whether Frame has work to do: parents are tracked, a
// viewport switch is ending, or a grab may have gone idle.
func (h *Host) NeedsFrame() bool {
	return h.screenHooks || h.switchEnding || len(h.grabs) > 0
}

// Invalidate makes the next frame repaint every overlay.
func (h *Host) Invalidate() {
	h.dirty = true
}

// ScreenHooks reports whether per-frame painting is enabled.
func (h *Host) ScreenHooks() bool {
	return h.screenHooks
}

// Frame runs one paint pass. elapsed is the time since the previous call.
func (h *Host) Frame(now time.Time, elapsed time.Duration) {
	if h.screen == nil {
		return
	}
	if h.switchEnding {
		h.switchEnding = false
		h.screen.HandlePluginEvent(dialog.PluginEvent{Plugin: "core", Name: "end_viewport_switch"})
	}
	h.expireGrabs(now)

	if !h.screenHooks || !h.dirty {
		return
	}
	h.dirty = false

	h.screen.PreparePaint(elapsed)
	h.overlays.BeginFrame()
	for _, id := range h.screen.Parents() {
		c, ok := h.clients[id]
		if !ok || !c.viewable || h.hooks[id]&dialog.HookDraw == 0 {
			continue
		}
		h.screen.DrawWindow(id, paint.Identity(), h.PaintAttrib(id), paint.InfiniteRegion, 0)
	}
	h.overlays.EndFrame()
	h.screen.DonePaint()
}

func (h *Host) expireGrabs(now time.Time) {
	for id, last := range h.grabs {
		if now.Sub(last) < grabIdleTimeout {
			continue
		}
		delete(h.grabs, id)
		h.screen.UngrabNotify(id)
	}
}

// Close destroys every window the host created.
func (h *Host) Close() {
	for ipw := range h.ipws {
		h.DestroyInputPassthrough(ipw)
	}
	h.overlays.Cleanup()
}

// Geometry

func (h *Host) Windows() []platform.WindowID {
	return slices.Clone(h.order)
}

func (h *Host) BorderRect(id platform.WindowID) (platform.Rect, bool) {
	if c, ok := h.clients[id]; ok {
		return c.rect, true
	}
	r, err := h.conn.ClientRect(xproto.Window(id))
	if err != nil {
		return platform.Rect{}, false
	}
	return borderRect(r, h.conn.FrameExtents(xproto.Window(id))), true
}

func (h *Host) InputRect(id platform.WindowID) (platform.Rect, bool) {
	return h.BorderRect(id)
}

func (h *Host) OutputRect(id platform.WindowID) (platform.Rect, bool) {
	return h.BorderRect(id)
}

func (h *Host) Border(id platform.WindowID) platform.Extents {
	if c, ok := h.clients[id]; ok {
		return c.ext
	}
	return h.conn.FrameExtents(xproto.Window(id))
}

func (h *Host) WorkArea(r platform.Rect) platform.Rect {
	area, err := h.conn.WorkArea(r)
	if err != nil {
		h.logger.Debug("failed to compute work area", "error", err)
		return h.output
	}
	return area
}

func (h *Host) Output() platform.Rect {
	return h.output
}

// Properties

func (h *Host) TransientFor(id platform.WindowID) (platform.WindowID, bool) {
	tf, ok := h.conn.TransientFor(xproto.Window(id))
	return platform.WindowID(tf), ok
}

func (h *Host) ClientLeader(id platform.WindowID) platform.WindowID {
	return platform.WindowID(h.conn.ClientLeader(xproto.Window(id)))
}

func (h *Host) IsModal(id platform.WindowID) bool {
	return h.conn.WindowState(xproto.Window(id))[stateModal]
}

func (h *Host) IsViewable(id platform.WindowID) bool {
	if c, ok := h.clients[id]; ok {
		return c.viewable
	}
	viewable, _, err := h.conn.Attributes(xproto.Window(id))
	return err == nil && viewable
}

func (h *Host) IsOverrideRedirect(id platform.WindowID) bool {
	_, override, err := h.conn.Attributes(xproto.Window(id))
	return err == nil && override
}

func (h *Host) IsMaximized(id platform.WindowID) bool {
	states := h.conn.WindowState(xproto.Window(id))
	return states[stateMaximizedHorz] || states[stateMaximizedVert]
}

func (h *Host) IsFullscreen(id platform.WindowID) bool {
	return h.conn.WindowState(xproto.Window(id))[stateFullscreen]
}

func (h *Host) SizeHints(id platform.WindowID) platform.SizeHints {
	return h.conn.SizeHints(xproto.Window(id))
}

func (h *Host) SetSizeHints(id platform.WindowID, hints platform.SizeHints) error {
	return h.conn.SetSizeHints(xproto.Window(id), hints)
}

func (h *Host) SetParentMarker(id platform.WindowID, parent bool) error {
	return h.conn.SetParentMarker(xproto.Window(id), parent)
}

// WindowLifecycleHooks

// Configure moves or resizes a window's frame. The cached rect is updated
// right away so the window manager's echo of the request is not reported as
// a move.
func (h *Host) Configure(id platform.WindowID, req dialog.ConfigureRequest) error {
	cur, _ := h.BorderRect(id)
	target := applyConfigure(cur, req)
	ext := h.Border(id)

	frameReq := platform.Rect{X: target.X, Y: target.Y}
	if req.Mask&dialog.ConfigureWidth != 0 {
		frameReq.Width = target.Width
	}
	if req.Mask&dialog.ConfigureHeight != 0 {
		frameReq.Height = target.Height
	}
	err := h.conn.MoveResizeFrame(xproto.Window(id), frameReq, ext,
		req.Mask&dialog.ConfigureX != 0, req.Mask&dialog.ConfigureY != 0)
	if err != nil {
		return err
	}

	if c, ok := h.clients[id]; ok {
		c.rect = target
	}
	if req.Sync {
		h.conn.XUtil.Sync()
	}
	h.dirty = true
	return nil
}

// applyConfigure returns r with the fields selected by req replaced.
func applyConfigure(r platform.Rect, req dialog.ConfigureRequest) platform.Rect {
	if req.Mask&dialog.ConfigureX != 0 {
		r.X = req.X
	}
	if req.Mask&dialog.ConfigureY != 0 {
		r.Y = req.Y
	}
	if req.Mask&dialog.ConfigureWidth != 0 {
		r.Width = req.Width
	}
	if req.Mask&dialog.ConfigureHeight != 0 {
		r.Height = req.Height
	}
	return r
}

func (h *Host) MatchesAvoid(id platform.WindowID) bool {
	if h.avoid == nil {
		return false
	}
	mw, ok := h.matchCache[id]
	if !ok {
		mw = newMatchWindow(id, h.conn)
		h.matchCache[id] = mw
	}
	return h.avoid.Match(mw)
}

func (h *Host) UpdateMatchOptions(id platform.WindowID) {
	delete(h.matchCache, id)
}

// RecalcActions drops the window states a window is no longer allowed to
// hold. The window manager keeps its own allowed-action list.
func (h *Host) RecalcActions(id platform.WindowID) {
	if h.screen == nil {
		return
	}
	_, clearActions := h.screen.AllowedActions(id)
	maximize := clearActions&(dialog.ActionMaximizeHorz|dialog.ActionMaximizeVert) != 0 && h.IsMaximized(id)
	fullscreen := clearActions&dialog.ActionFullscreen != 0 && h.IsFullscreen(id)
	if !maximize && !fullscreen {
		return
	}
	if err := h.conn.ClearStates(xproto.Window(id), maximize, fullscreen); err != nil {
		h.logger.Warn("failed to clear window state", "window", id, "error", err)
	}
}

// PaintHooks

func (h *Host) SetWindowHooks(id platform.WindowID, hooks dialog.Hook) {
	if hooks == 0 {
		delete(h.hooks, id)
	} else {
		h.hooks[id] = hooks
	}
	if hooks&dialog.HookDraw == 0 {
		h.overlays.Hide(id)
	}
	h.dirty = true
}

func (h *Host) SetScreenHooks(enabled bool) {
	h.screenHooks = enabled
	if !enabled {
		h.overlays.BeginFrame()
		h.overlays.EndFrame()
	}
	h.dirty = true
}

func (h *Host) Damage(platform.Rect) {
	h.dirty = true
}

func (h *Host) DamageWindow(platform.WindowID) {
	h.dirty = true
}

// paint.GL

// DrawWindow leaves the window itself to the window manager.
func (h *Host) DrawWindow(platform.WindowID, paint.Matrix, paint.Attrib, paint.Region, paint.Mask) bool {
	return true
}

// PaintWindow has nothing to capture: client contents are never available as
// textures here.
func (h *Host) PaintWindow(platform.WindowID, paint.Attrib, paint.Matrix, paint.Region, paint.Mask) bool {
	return true
}

func (h *Host) BeginGeometry(win platform.WindowID) {
	h.geometry[win] = &geometryBatch{}
}

func (h *Host) AddGeometry(win platform.WindowID, g paint.Geometry, clip paint.Region) {
	if sink, ok := h.redirects[win]; ok {
		sink.AddGeometry(g)
		return
	}
	batch, ok := h.geometry[win]
	if !ok {
		batch = &geometryBatch{}
		h.geometry[win] = batch
	}
	area := g.Region.Bounds()
	if !clip.Empty() {
		area = area.Intersect(clip.Bounds())
	}
	batch.bounds = batch.bounds.Union(area)
}

func (h *Host) EndGeometry(win platform.WindowID) bool {
	batch, ok := h.geometry[win]
	return ok && !batch.bounds.Empty()
}

// DrawTexture shows the dim overlay of win over the geometry added since
// BeginGeometry. Blending applies the texture's own alpha; modulation
// applies the paint opacity.
func (h *Host) DrawTexture(win platform.WindowID, tex paint.Texture, _ paint.Matrix, attrib paint.Attrib, _ paint.Mask) {
	if sink, ok := h.redirects[win]; ok {
		sink.DrawTexture(tex)
		return
	}
	pt, ok := tex.(*pixmapTexture)
	if !ok {
		return
	}
	batch, ok := h.geometry[win]
	if !ok || batch.bounds.Empty() {
		return
	}
	c, ok := h.clients[win]
	if !ok {
		return
	}

	alpha := 1.0
	if h.blend {
		alpha = pt.Alpha()
	}
	opacity := uint16(paint.Opaque)
	if h.texEnv == paint.TexEnvModulate {
		opacity = attrib.Opacity
	}
	if err := h.overlays.Show(win, c.frame, batch.bounds, pt, overlayOpacity(alpha, opacity)); err != nil {
		h.logger.Warn("failed to show dim overlay", "window", win, "error", err)
	}
}

func (h *Host) DrawTextureIndex(win platform.WindowID) int {
	return h.drawIndex[win]
}

func (h *Host) SetDrawTextureIndex(win platform.WindowID, index int) {
	if index == 0 {
		delete(h.drawIndex, win)
		return
	}
	h.drawIndex[win] = index
}

func (h *Host) PaintAttrib(platform.WindowID) paint.Attrib {
	return paint.DefaultAttrib()
}

func (h *Host) LastPaintAttrib(platform.WindowID) paint.Attrib {
	return paint.DefaultAttrib()
}

// BindTextures always fails: the window manager stacks transients above
// their parent's overlay, so they never need to be replayed.
func (h *Host) BindTextures(platform.WindowID) bool {
	return false
}

func (h *Host) SetBlend(enabled bool, _, _ paint.BlendFactor) {
	h.blend = enabled
}

func (h *Host) SetTexEnvMode(mode paint.TexEnvMode) {
	h.texEnv = mode
}

func (h *Host) Redirect(win platform.WindowID, sink paint.Sink) func() {
	prev, had := h.redirects[win]
	h.redirects[win] = sink
	return func() {
		if had {
			h.redirects[win] = prev
		} else {
			delete(h.redirects, win)
		}
	}
}

var _ dialog.Host = (*Host)(nil)
