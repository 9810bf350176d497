package paint

import (
	"fmt"
	"image/color"
	"log/slog"
)

// TextureFactory creates solid-color textures on the host.
type TextureFactory interface {
	SolidTexture(c color.NRGBA) ([]Texture, error)
	Release(textures []Texture)
}

// ShadeTexture is the 1x1 texture stretched over a parent window to dim it.
type ShadeTexture struct {
	factory  TextureFactory
	logger   *slog.Logger
	color    color.NRGBA
	textures []Texture
}

// NewShadeTexture returns an empty shade texture backed by factory.
func NewShadeTexture(factory TextureFactory, logger *slog.Logger) *ShadeTexture {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShadeTexture{factory: factory, logger: logger}
}

// Render re-creates the texture for base color c at the given alpha. The
// color is premultiplied. Nothing happens when the result is unchanged.
func (s *ShadeTexture) Render(c color.Color, alpha float64) {
	next := shadeColor(c, alpha)
	if next == s.color && len(s.textures) > 0 {
		return
	}

	if len(s.textures) > 0 {
		s.factory.Release(s.textures)
		s.textures = nil
	}
	s.color = next

	textures, err := s.factory.SolidTexture(next)
	if err != nil {
		s.logger.Error("failed to create shade texture", "color", colorString(next), "error", err)
		return
	}
	s.textures = textures
}

// Textures returns the current texture list; it is empty when rendering failed.
func (s *ShadeTexture) Textures() []Texture {
	return s.textures
}

// Color returns the premultiplied color of the texture.
func (s *ShadeTexture) Color() color.NRGBA {
	return s.color
}

// Release drops the host textures.
func (s *ShadeTexture) Release() {
	if len(s.textures) > 0 {
		s.factory.Release(s.textures)
	}
	s.textures = nil
}

func shadeColor(c color.Color, alpha float64) color.NRGBA {
	if c == nil {
		c = color.Black
	}
	alpha = min(max(alpha, 0), 1)
	r, g, b, _ := c.RGBA()
	scale := func(v uint32) uint8 {
		return uint8(float64(v>>8) * alpha)
	}
	return color.NRGBA{R: scale(r), G: scale(g), B: scale(b), A: uint8(alpha * 255)}
}

func colorString(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
