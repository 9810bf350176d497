package x11

import (
	"fmt"
	"image"
	"image/color"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xgraphics"

	"github.com/1broseidon/unitydialog/internal/paint"
)

// pixmapTexture is a 1x1 server-side pixmap holding the opaque shade color.
// The alpha of the shade is applied as window opacity when it is drawn.
type pixmapTexture struct {
	img   *xgraphics.Image
	color color.NRGBA
}

func (t *pixmapTexture) Matrix() paint.TexMatrix { return paint.TexMatrix{XX: 1, YY: 1} }
func (t *pixmapTexture) Size() (int, int) { return 1, 1 }

// Pixmap returns the X pixmap backing the texture.
func (t *pixmapTexture) Pixmap() uint32 {
	if t.img == nil {
		return 0
	}
	return uint32(t.img.Pixmap)
}

// Alpha returns the coverage of the texture in [0, 1].
func (t *pixmapTexture) Alpha() float64 {
	return float64(t.color.A) / 0xff
}

// TextureFactory creates shade textures as X pixmaps.
type TextureFactory struct {
	xu *xgbutil.XUtil
}

// NewTextureFactory returns a factory drawing on xu's root window.
func NewTextureFactory(xu *xgbutil.XUtil) *TextureFactory {
	return &TextureFactory{xu: xu}
}

// SolidTexture implements paint.TextureFactory. c is premultiplied.
func (f *TextureFactory) SolidTexture(c color.NRGBA) ([]paint.Texture, error) {
	img := xgraphics.New(f.xu, image.Rect(0, 0, 1, 1))
	img.Set(0, 0, unpremultiply(c))
	if err := img.CreatePixmap(); err != nil {
		img.Destroy()
		return nil, fmt.Errorf("failed to create shade pixmap: %w", err)
	}
	img.XDraw()
	return []paint.Texture{&pixmapTexture{img: img, color: c}}, nil
}

// Release implements paint.TextureFactory.
func (f *TextureFactory) Release(textures []paint.Texture) {
	for _, tex := range textures {
		if pt, ok := tex.(*pixmapTexture); ok && pt.img != nil {
			pt.img.Destroy()
			pt.img = nil
		}
	}
}

// unpremultiply returns the opaque base color of a premultiplied color.
func unpremultiply(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{A: 0xff}
	}
	scale := func(v uint8) uint8 {
		return uint8(min(int(v)*0xff/int(c.A), 0xff))
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: 0xff}
}

// overlayOpacity combines the texture alpha with a paint opacity.
func overlayOpacity(alpha float64, opacity uint16) float64 {
	v := alpha * float64(opacity) / paint.Opaque
	return min(max(v, 0), 1)
}
