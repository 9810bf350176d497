package paint

import (
	"errors"
	"image/color"
	"testing"

	"github.com/1broseidon/unitydialog/internal/platform"
)

type fakeTexture struct{ name string }

func (t *fakeTexture) Matrix() TexMatrix { return TexMatrix{XX: 1, YY: 1} }
func (t *fakeTexture) Size() (int, int) { return 1, 1 }

type drawCall struct {
	win     platform.WindowID
	tex     Texture
	batches int
	opacity uint16
	mask    Mask
}

// fakeGL records replayed geometry and texture draws. Painting a window
// replays its script into whatever sink is redirected for it.
type fakeGL struct {
	scripts   map[platform.WindowID]func(s Sink)
	redirects map[platform.WindowID]Sink
	restored  int
	open      map[platform.WindowID]int
	draws     []drawCall
	attrib    Attrib
}

func newFakeGL() *fakeGL {
	return &fakeGL{
		scripts:   map[platform.WindowID]func(s Sink){},
		redirects: map[platform.WindowID]Sink{},
		open:      map[platform.WindowID]int{},
		attrib:    DefaultAttrib(),
	}
}

func (g *fakeGL) DrawWindow(platform.WindowID, Matrix, Attrib, Region, Mask) bool { return true }

func (g *fakeGL) PaintWindow(win platform.WindowID, _ Attrib, _ Matrix, _ Region, _ Mask) bool {
	sink, ok := g.redirects[win]
	if !ok {
		return true
	}
	if script := g.scripts[win]; script != nil {
		script(sink)
	}
	return true
}

func (g *fakeGL) BeginGeometry(win platform.WindowID) { g.open[win] = 0 }
func (g *fakeGL) AddGeometry(win platform.WindowID, _ Geometry, _ Region) {
	g.open[win]++
}
func (g *fakeGL) EndGeometry(platform.WindowID) bool { return true }
func (g *fakeGL) DrawTexture(win platform.WindowID, tex Texture, _ Matrix, attrib Attrib, mask Mask) {
	g.draws = append(g.draws, drawCall{win: win, tex: tex, batches: g.open[win], opacity: attrib.Opacity, mask: mask})
}
func (g *fakeGL) DrawTextureIndex(platform.WindowID) int { return 0 }
func (g *fakeGL) SetDrawTextureIndex(platform.WindowID, int) {}
func (g *fakeGL) PaintAttrib(platform.WindowID) Attrib { return g.attrib }
func (g *fakeGL) LastPaintAttrib(platform.WindowID) Attrib { return g.attrib }
func (g *fakeGL) BindTextures(platform.WindowID) bool { return true }
func (g *fakeGL) SetBlend(bool, BlendFactor, BlendFactor) {}
func (g *fakeGL) SetTexEnvMode(TexEnvMode) {}
func (g *fakeGL) Redirect(win platform.WindowID, sink Sink) func() {
	g.redirects[win] = sink
	return func() {
		delete(g.redirects, win)
		g.restored++
	}
}

func batch() Geometry {
	return Geometry{
		Matrices: []TexMatrix{{XX: 1, YY: 1}},
		Region:   Region{{X: 0, Y: 0, Width: 10, Height: 10}},
	}
}

func TestPaintInfoCollectorGroupsByTextureDraw(t *testing.T) {
	a := &fakeTexture{name: "a"}
	b := &fakeTexture{name: "b"}

	tests := []struct {
		name    string
		script  func(s Sink)
		want    []drawCall
		nGroups int
	}{
		{
			name: "one texture",
			script: func(s Sink) {
				s.AddGeometry(batch())
				s.AddGeometry(batch())
				s.DrawTexture(a)
			},
			nGroups: 1,
			want:    []drawCall{{win: 7, tex: a, batches: 2}},
		},
		{
			name: "two textures keep their own batches",
			script: func(s Sink) {
				s.AddGeometry(batch())
				s.DrawTexture(a)
				s.AddGeometry(batch())
				s.AddGeometry(batch())
				s.AddGeometry(batch())
				s.DrawTexture(b)
			},
			nGroups: 2,
			want: []drawCall{
				{win: 7, tex: a, batches: 1},
				{win: 7, tex: b, batches: 3},
			},
		},
		{
			name: "trailing geometry dropped",
			script: func(s Sink) {
				s.AddGeometry(batch())
				s.DrawTexture(a)
				s.AddGeometry(batch())
			},
			nGroups: 1,
			want:    []drawCall{{win: 7, tex: a, batches: 1}},
		},
		{
			name: "texture without geometry is not drawn",
			script: func(s Sink) {
				s.DrawTexture(a)
			},
			nGroups: 1,
		},
		{
			name:   "nothing painted",
			script: func(Sink) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl := newFakeGL()
			gl.scripts[3] = tt.script

			c := NewPaintInfoCollector(gl, 3)
			c.Collect(platform.Rect{Width: 1024, Height: 768})

			if gl.restored != 1 {
				t.Fatalf("restore called %d times, want 1", gl.restored)
			}
			if len(gl.redirects) != 0 {
				t.Fatalf("redirect still installed after Collect")
			}
			if c.Groups() != tt.nGroups {
				t.Fatalf("Groups() = %d, want %d", c.Groups(), tt.nGroups)
			}

			c.DrawGeometriesForWindow(7, Identity(), OverlayMask)
			if len(gl.draws) != len(tt.want) {
				t.Fatalf("draws = %+v, want %+v", gl.draws, tt.want)
			}
			for i, want := range tt.want {
				got := gl.draws[i]
				if got.win != want.win || got.tex != want.tex || got.batches != want.batches {
					t.Fatalf("draw %d = %+v, want %+v", i, got, want)
				}
				if got.mask != OverlayMask {
					t.Fatalf("draw %d mask = %#x, want %#x", i, got.mask, OverlayMask)
				}
			}
		})
	}
}

func TestGeometryCollectionStatus(t *testing.T) {
	var c GeometryCollection
	if c.Status() {
		t.Fatalf("empty collection reported usable")
	}
	c.AddGeometry(Geometry{Region: Region{{Width: 1, Height: 1}}})
	if c.Status() {
		t.Fatalf("batch without matrices reported usable")
	}

	var ok GeometryCollection
	ok.AddGeometry(batch())
	if !ok.Status() {
		t.Fatalf("valid batch reported unusable")
	}
}

func TestGeometryCollectionCopiesInput(t *testing.T) {
	var c GeometryCollection
	g := batch()
	c.AddGeometry(g)
	g.Matrices[0].XX = 42

	if c.batches[0].Matrices[0].XX != 1 {
		t.Fatalf("collection aliases caller matrices")
	}
}

type fakeFactory struct {
	created  []color.NRGBA
	released int
	err      error
}

func (f *fakeFactory) SolidTexture(c color.NRGBA) ([]Texture, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, c)
	return []Texture{&fakeTexture{name: colorString(c)}}, nil
}

func (f *fakeFactory) Release([]Texture) { f.released++ }

func TestShadeTextureRender(t *testing.T) {
	f := &fakeFactory{}
	s := NewShadeTexture(f, nil)

	s.Render(color.NRGBA{R: 200, G: 100, B: 0, A: 255}, 0.5)
	if len(s.Textures()) != 1 {
		t.Fatalf("Textures() = %d, want 1", len(s.Textures()))
	}
	want := color.NRGBA{R: 100, G: 50, B: 0, A: 127}
	if s.Color() != want {
		t.Fatalf("Color() = %+v, want %+v", s.Color(), want)
	}

	s.Render(color.NRGBA{R: 200, G: 100, B: 0, A: 255}, 0.5)
	if len(f.created) != 1 {
		t.Fatalf("unchanged render re-created the texture")
	}

	s.Render(color.Black, 0.25)
	if len(f.created) != 2 || f.released != 1 {
		t.Fatalf("created=%d released=%d, want 2/1", len(f.created), f.released)
	}
}

func TestShadeTextureRenderFailureLeavesEmptyList(t *testing.T) {
	f := &fakeFactory{err: errors.New("no pixmap")}
	s := NewShadeTexture(f, nil)
	s.Render(color.Black, 0.5)
	if len(s.Textures()) != 0 {
		t.Fatalf("Textures() = %d after failure, want 0", len(s.Textures()))
	}
}

func TestTexMatrixCover(t *testing.T) {
	m := TexMatrix{XX: 1, YY: 1}.Cover(platform.Rect{X: 128, Y: 64, Width: 256, Height: 128})
	if got := m.X(128, 64); got != 0 {
		t.Fatalf("X at origin = %v, want 0", got)
	}
	if got := m.X(384, 192); got != 1 {
		t.Fatalf("X at far edge = %v, want 1", got)
	}
	if got := m.Y(384, 192); got != 1 {
		t.Fatalf("Y at far edge = %v, want 1", got)
	}
}

func TestMatrixTranslate(t *testing.T) {
	m := Identity().Translate(10, -5, 0)
	x, y := m.Apply(1, 1)
	if x != 11 || y != -4 {
		t.Fatalf("Apply = (%v, %v), want (11, -4)", x, y)
	}
}
