package match

import (
	"errors"
	"testing"

	"github.com/1broseidon/unitydialog/internal/platform"
)

type testWindow struct {
	id    platform.WindowID
	props map[string]string
}

func (w testWindow) ID() platform.WindowID { return w.id }

func (w testWindow) Property(key string) (string, bool) {
	v, ok := w.props[key]
	return v, ok
}

func TestParseAndMatch(t *testing.T) {
	gimp := testWindow{id: 0x2a00003, props: map[string]string{
		"class": "Gimp",
		"name":  "gimp",
		"title": "Export Image as PNG",
		"type":  "Dialog",
		"role":  "gimp-file-export",
	}}
	term := testWindow{id: 0x1400007, props: map[string]string{
		"class": "Alacritty",
		"title": "~/src",
		"type":  "Normal",
	}}

	tests := []struct {
		expr string
		win  testWindow
		want bool
	}{
		{"", gimp, false},
		{"any", term, true},
		{"none", gimp, false},
		{"class=Gimp", gimp, true},
		{"class=gimp", gimp, false},
		{"type=dialog", gimp, true},
		{"title=^Export", gimp, true},
		{"title=^Export", term, false},
		{"role=file-export$", gimp, true},
		{"xid=0x2a00003", gimp, true},
		{"xid=0x2a00003", term, false},
		{"class=Gimp & type=Dialog", gimp, true},
		{"class=Gimp & !type=Dialog", gimp, false},
		{"class=Gimp | class=Alacritty", term, true},
		{"!(class=Gimp | class=Alacritty)", term, false},
		{"(class=Gimp & type=Normal) | title=~/src", term, true},
		{`title=Export Image as PNG`, gimp, true},
		{`title=a\|b`, testWindow{props: map[string]string{"title": "a|b"}}, true},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := p.Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.expr, err)
			}
			if got := expr.Match(tt.win); got != tt.want {
				t.Fatalf("Parse(%q).Match = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"class",
		"color=red",
		"(class=Gimp",
		"class=Gimp )",
		"class=Gimp &",
		"title=(",
		"xid=window",
		`title=abc\`,
	}

	p := NewParser()
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			if _, err := p.Parse(expr); err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", expr)
			}
		})
	}
}

func TestRegisteredKey(t *testing.T) {
	p := NewParser()
	p.Register("transient-dialog", func(value string) (Predicate, error) {
		switch value {
		case "1":
			return func(w Window) bool { return w.ID() == 5 }, nil
		case "0":
			return func(w Window) bool { return w.ID() != 5 }, nil
		}
		return nil, errors.New("expected 0 or 1")
	})

	expr, err := p.Parse("transient-dialog=1 & class=Gimp")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !expr.Match(testWindow{id: 5, props: map[string]string{"class": "Gimp"}}) {
		t.Fatalf("expected window 5 to match")
	}
	if expr.Match(testWindow{id: 6, props: map[string]string{"class": "Gimp"}}) {
		t.Fatalf("expected window 6 not to match")
	}

	if _, err := p.Parse("transient-dialog=2"); err == nil {
		t.Fatalf("expected error for invalid registered value")
	}
}

func TestString(t *testing.T) {
	p := NewParser()
	expr, err := p.Parse("class=A & (class=B | class=C)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got, want := expr.String(), "class=A & (class=B | class=C)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
