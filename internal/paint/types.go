package paint

import (
	"math"

	"github.com/1broseidon/unitydialog/internal/platform"
)

// Opaque is the maximum value of an opacity/brightness/saturation channel.
const Opaque = 0xffff

// DrawIndexLast pins a texture draw after every other draw of the window.
const DrawIndexLast = math.MaxInt16

// Mask carries per-draw flags through the paint chain.
type Mask uint32

const (
	MaskOnTransformedScreen Mask = 1 << 0
	MaskOcclusionDetection  Mask = 1 << 1
	MaskWithOffset          Mask = 1 << 2
	MaskTranslucent         Mask = 1 << 16
	MaskTransformed         Mask = 1 << 17
	MaskNoCoreInstance      Mask = 1 << 18
	MaskBlend               Mask = 1 << 19
)

// OverlayMask is forced onto every draw that composites over another window.
const OverlayMask = MaskBlend | MaskTranslucent | MaskTransformed

// BlendFactor names a source/destination blend factor.
type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
)

// TexEnvMode names a texture environment mode.
type TexEnvMode int

const (
	TexEnvReplace TexEnvMode = iota
	TexEnvModulate
)

// Attrib are the per-window paint attributes.
type Attrib struct {
	Opacity    uint16
	Brightness uint16
	Saturation uint16
	XScale     float32
	YScale     float32
	XTranslate float32
	YTranslate float32
}

// DefaultAttrib returns a fully opaque, untransformed attribute set.
func DefaultAttrib() Attrib {
	return Attrib{
		Opacity:    Opaque,
		Brightness: Opaque,
		Saturation: Opaque,
		XScale:     1,
		YScale:     1,
	}
}

// Matrix is a column-major 4x4 transform.
type Matrix [16]float32

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m*o.
func (m Matrix) Mul(o Matrix) Matrix {
	var out Matrix
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * o[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Translate returns m followed by a translation.
func (m Matrix) Translate(x, y, z float32) Matrix {
	t := Identity()
	t[12], t[13], t[14] = x, y, z
	return m.Mul(t)
}

// Scale returns m followed by a scale.
func (m Matrix) Scale(x, y, z float32) Matrix {
	s := Identity()
	s[0], s[5], s[10] = x, y, z
	return m.Mul(s)
}

// Apply transforms the point (x, y, 0, 1) and returns its x and y.
func (m Matrix) Apply(x, y float32) (float32, float32) {
	return m[0]*x + m[4]*y + m[12], m[1]*x + m[5]*y + m[13]
}

// ToScreenSpace maps output pixel coordinates into normalized screen space at depth z.
func (m Matrix) ToScreenSpace(output platform.Rect, z float32) Matrix {
	if output.Empty() {
		return m
	}
	return m.Translate(-0.5, -0.5, z).
		Scale(1/float32(output.Width), -1/float32(output.Height), 1).
		Translate(-float32(output.X), -float32(output.Y)-float32(output.Height), 0)
}

// TexMatrix maps screen coordinates to texture coordinates.
type TexMatrix struct {
	XX, YX float32
	XY, YY float32
	X0, Y0 float32
}

// X returns the texture s coordinate for the screen point (x, y).
func (t TexMatrix) X(x, y float32) float32 {
	return t.XX*x + t.XY*y + t.X0
}

// Y returns the texture t coordinate for the screen point (x, y).
func (t TexMatrix) Y(x, y float32) float32 {
	return t.YX*x + t.YY*y + t.Y0
}

// Cover scales and translates t so the texture spans r exactly once.
func (t TexMatrix) Cover(r platform.Rect) TexMatrix {
	if r.Empty() {
		return t
	}
	t.XX /= float32(r.Width)
	t.YY /= float32(r.Height)
	t.X0 -= float32(r.X) * t.XX
	t.Y0 -= float32(r.Y) * t.YY
	return t
}

// Region is a set of rectangles.
type Region []platform.Rect

// InfiniteRegion covers every coordinate a window can have.
var InfiniteRegion = Region{{X: math.MinInt16, Y: math.MinInt16, Width: math.MaxUint16, Height: math.MaxUint16}}

// RegionOf returns a single-rect region.
func RegionOf(r platform.Rect) Region {
	if r.Empty() {
		return nil
	}
	return Region{r}
}

// Bounds returns the bounding rect of the region.
func (r Region) Bounds() platform.Rect {
	var out platform.Rect
	for _, rect := range r {
		out = out.Union(rect)
	}
	return out
}

// Empty reports whether the region covers nothing.
func (r Region) Empty() bool {
	for _, rect := range r {
		if !rect.Empty() {
			return false
		}
	}
	return true
}

// Texture is a bound texture that can be drawn onto a window.
type Texture interface {
	Matrix() TexMatrix
	Size() (width, height int)
}

// Geometry is one batch handed to a window's vertex buffer.
type Geometry struct {
	Matrices    []TexMatrix
	Region      Region
	MinVertices int
	MaxVertices int
}

// Sink receives the geometry and texture draws of a redirected window.
type Sink interface {
	AddGeometry(g Geometry)
	DrawTexture(tex Texture)
}

// GL is the host's per-window rendering surface.
type GL interface {
	// DrawWindow runs the host's default draw for win.
	DrawWindow(win platform.WindowID, transform Matrix, attrib Attrib, region Region, mask Mask) bool
	// PaintWindow runs the full paint chain for win, other plugins included.
	PaintWindow(win platform.WindowID, attrib Attrib, transform Matrix, region Region, mask Mask) bool

	BeginGeometry(win platform.WindowID)
	AddGeometry(win platform.WindowID, g Geometry, clip Region)
	EndGeometry(win platform.WindowID) bool
	DrawTexture(win platform.WindowID, tex Texture, transform Matrix, attrib Attrib, mask Mask)

	DrawTextureIndex(win platform.WindowID) int
	SetDrawTextureIndex(win platform.WindowID, index int)

	PaintAttrib(win platform.WindowID) Attrib
	LastPaintAttrib(win platform.WindowID) Attrib
	BindTextures(win platform.WindowID) bool

	SetBlend(enabled bool, src, dst BlendFactor)
	SetTexEnvMode(mode TexEnvMode)

	// Redirect routes win's geometry and texture draws into sink and bypasses
	// the window's own paint hooks until the returned func is called.
	Redirect(win platform.WindowID, sink Sink) (restore func())
}
