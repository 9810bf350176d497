package dialog

import (
	"github.com/1broseidon/unitydialog/internal/paint"
	"github.com/1broseidon/unitydialog/internal/platform"
)

// DrawWindow is the draw hook for windows with HookDraw. It runs the host's
// default draw, then dims the window with the shade texture and replays its
// transients on top of it.
func (s *Screen) DrawWindow(id platform.WindowID, transform paint.Matrix, attrib paint.Attrib, region paint.Region, mask paint.Mask) bool {
	status := s.host.DrawWindow(id, transform, attrib, region, mask)

	w, ok := s.windows[id]
	if !ok || w.hooks&HookDraw == 0 {
		return status
	}

	mask |= paint.OverlayMask
	if w.shadeProgress > 0 {
		s.drawShade(w, transform, attrib, mask)
	}
	s.drawTransients(w, transform, mask)
	return status
}

func (s *Screen) drawShade(w *Window, transform paint.Matrix, attrib paint.Attrib, mask paint.Mask) {
	if s.shade == nil {
		return
	}
	textures := s.shade.Textures()
	if len(textures) == 0 {
		return
	}
	r, ok := s.host.BorderRect(w.id)
	if !ok || r.Empty() {
		return
	}

	index := s.host.DrawTextureIndex(w.id)
	s.host.SetDrawTextureIndex(w.id, paint.DrawIndexLast)
	defer s.host.SetDrawTextureIndex(w.id, index)

	s.host.SetBlend(true, paint.BlendOne, paint.BlendOneMinusSrcAlpha)
	s.host.SetTexEnvMode(paint.TexEnvModulate)
	defer func() {
		s.host.SetTexEnvMode(paint.TexEnvReplace)
		s.host.SetBlend(false, paint.BlendOne, paint.BlendOneMinusSrcAlpha)
	}()

	shadeAttrib := attrib
	shadeAttrib.Opacity = uint16(w.shadeProgress)

	region := paint.RegionOf(r)
	for _, tex := range textures {
		g := paint.Geometry{
			Matrices:    []paint.TexMatrix{tex.Matrix().Cover(r)},
			Region:      region,
			MinVertices: 0,
			MaxVertices: 4,
		}
		s.host.BeginGeometry(w.id)
		s.host.AddGeometry(w.id, g, paint.InfiniteRegion)
		if s.host.EndGeometry(w.id) {
			s.host.DrawTexture(w.id, tex, transform, shadeAttrib, mask)
		}
	}
}

func (s *Screen) drawTransients(w *Window, transform paint.Matrix, mask paint.Mask) {
	output := s.host.Output()
	for _, tid := range w.transients {
		t, ok := s.windows[tid]
		if !ok || t.isAnimated {
			continue
		}
		if !s.host.BindTextures(tid) {
			continue
		}

		collector := paint.NewPaintInfoCollector(s.host, tid)
		collector.Collect(output)

		tt := transform
		if t.offset != (platform.Point{}) {
			pos := t.interpolatedPos(w.shadeProgress)
			tt = transform.Translate(float32(pos.X-t.targetPos.X), float32(pos.Y-t.targetPos.Y), 0)
		}
		collector.DrawGeometriesForWindow(w.id, tt, mask)
	}
}
