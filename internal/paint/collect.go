package paint

import "github.com/1broseidon/unitydialog/internal/platform"

// GeometryCollection records geometry batches so they can be replayed into
// another window's vertex buffer.
type GeometryCollection struct {
	batches []Geometry
}

// AddGeometry records one batch. The clip region is not kept; replay uses
// the target window's clip.
func (c *GeometryCollection) AddGeometry(g Geometry) {
	c.batches = append(c.batches, Geometry{
		Matrices:    append([]TexMatrix(nil), g.Matrices...),
		Region:      append(Region(nil), g.Region...),
		MinVertices: g.MinVertices,
		MaxVertices: g.MaxVertices,
	})
}

// Len returns the number of recorded batches.
func (c *GeometryCollection) Len() int {
	return len(c.batches)
}

// Status reports whether the collection holds at least one usable batch.
func (c *GeometryCollection) Status() bool {
	if len(c.batches) == 0 {
		return false
	}
	for _, b := range c.batches {
		if len(b.Matrices) == 0 {
			return false
		}
	}
	return true
}

// AddGeometryForWindow replays every batch into win's vertex buffer using clip.
func (c *GeometryCollection) AddGeometryForWindow(gl GL, win platform.WindowID, clip Region) bool {
	if !c.Status() {
		return false
	}
	gl.BeginGeometry(win)
	for _, b := range c.batches {
		gl.AddGeometry(win, b, clip)
	}
	return gl.EndGeometry(win)
}

// TexGeometryCollection pairs recorded geometry with the texture it was drawn with.
type TexGeometryCollection struct {
	geometry GeometryCollection
	texture  Texture
}

func (c *TexGeometryCollection) AddGeometry(g Geometry) {
	c.geometry.AddGeometry(g)
}

func (c *TexGeometryCollection) SetTexture(tex Texture) {
	c.texture = tex
}

func (c *TexGeometryCollection) Texture() Texture {
	return c.texture
}

// AddGeometriesAndDrawTextureForWindow replays the geometry into win and draws
// the texture over it with premultiplied blending, after every other draw of
// win. Nothing is drawn unless a texture and at least one usable batch were
// recorded.
func (c *TexGeometryCollection) AddGeometriesAndDrawTextureForWindow(gl GL, win platform.WindowID, transform Matrix, mask Mask) bool {
	if c.texture == nil || !c.geometry.Status() {
		return false
	}
	if !c.geometry.AddGeometryForWindow(gl, win, InfiniteRegion) {
		return false
	}

	index := gl.DrawTextureIndex(win)
	gl.SetDrawTextureIndex(win, DrawIndexLast)
	gl.SetBlend(true, BlendOne, BlendOneMinusSrcAlpha)

	gl.DrawTexture(win, c.texture, transform, gl.PaintAttrib(win), mask|OverlayMask)

	gl.SetDrawTextureIndex(win, index)
	gl.SetTexEnvMode(TexEnvReplace)
	gl.SetBlend(false, BlendOne, BlendOneMinusSrcAlpha)
	return true
}

// PaintInfoCollector captures everything one window paints during a single
// pass so it can be replayed on top of another window.
type PaintInfoCollector struct {
	gl      GL
	win     platform.WindowID
	groups  []*TexGeometryCollection
	pending *TexGeometryCollection
}

// NewPaintInfoCollector returns a collector for win.
func NewPaintInfoCollector(gl GL, win platform.WindowID) *PaintInfoCollector {
	return &PaintInfoCollector{gl: gl, win: win}
}

// Collect runs one paint pass of the window with its draws redirected into
// the collector. Each texture draw closes the group of geometry recorded
// since the previous texture draw; trailing geometry without a texture is
// dropped.
func (p *PaintInfoCollector) Collect(output platform.Rect) {
	p.groups = nil
	p.pending = nil

	restore := p.gl.Redirect(p.win, p)
	defer restore()

	transform := Identity().ToScreenSpace(output, -1)
	p.gl.PaintWindow(p.win, p.gl.PaintAttrib(p.win), transform, InfiniteRegion, 0)
	p.pending = nil
}

// AddGeometry implements Sink.
func (p *PaintInfoCollector) AddGeometry(g Geometry) {
	if p.pending == nil {
		p.pending = &TexGeometryCollection{}
	}
	p.pending.AddGeometry(g)
}

// DrawTexture implements Sink.
func (p *PaintInfoCollector) DrawTexture(tex Texture) {
	group := p.pending
	if group == nil {
		group = &TexGeometryCollection{}
	}
	group.SetTexture(tex)
	p.groups = append(p.groups, group)
	p.pending = nil
}

// Groups returns the number of captured texture groups.
func (p *PaintInfoCollector) Groups() int {
	return len(p.groups)
}

// DrawGeometriesForWindow replays every captured group onto target in order.
func (p *PaintInfoCollector) DrawGeometriesForWindow(target platform.WindowID, transform Matrix, mask Mask) {
	for _, group := range p.groups {
		group.AddGeometriesAndDrawTextureForWindow(p.gl, target, transform, mask)
	}
}
