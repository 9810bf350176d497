// Package match implements the window match expressions used to select
// windows in configuration, e.g. "class=Gimp & !type=Dialog".
//
// Grammar:
//
//	expr  = and { "|" and }
//	and   = unary { "&" unary }
//	unary = "!" unary | "(" expr ")" | term
//	term  = "any" | "all" | "none" | key "=" value
//
// Values run up to the next operator or parenthesis; a backslash escapes
// the character that follows it.
package match

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/1broseidon/unitydialog/internal/platform"
)

// Window is what an expression is evaluated against.
type Window interface {
	ID() platform.WindowID
	// Property returns a string property such as "class" or "title".
	Property(key string) (string, bool)
}

// Predicate is a compiled term.
type Predicate func(w Window) bool

// InitFunc compiles the value of a term for a registered key.
type InitFunc func(value string) (Predicate, error)

// Expr is a compiled match expression.
type Expr interface {
	Match(w Window) bool
	String() string
}

// Parser compiles expressions. Keys other than the built-in ones must be
// registered before use.
type Parser struct {
	custom map[string]InitFunc
}

// NewParser returns a parser that knows the built-in keys.
func NewParser() *Parser {
	return &Parser{custom: make(map[string]InitFunc)}
}

// Register adds a key handled by fn. Registering a built-in key overrides it.
func (p *Parser) Register(key string, fn InitFunc) {
	p.custom[key] = fn
}

// Parse compiles s. The empty expression matches nothing.
func (p *Parser) Parse(s string) (Expr, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return constant{value: false, text: ""}, nil
	}
	ps := &parseState{parser: p, toks: toks}
	expr, err := ps.parseOr()
	if err != nil {
		return nil, err
	}
	if ps.pos < len(ps.toks) {
		return nil, fmt.Errorf("unexpected %q at offset %d", ps.toks[ps.pos].text, ps.toks[ps.pos].offset)
	}
	return expr, nil
}

func (p *Parser) compileTerm(text string, offset int) (Expr, error) {
	switch text {
	case "any", "all":
		return constant{value: true, text: text}, nil
	case "none":
		return constant{value: false, text: text}, nil
	}

	key, value, ok := strings.Cut(text, "=")
	if !ok {
		return nil, fmt.Errorf("term %q at offset %d: expected key=value", text, offset)
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if fn, ok := p.custom[key]; ok {
		pred, err := fn(value)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", text, err)
		}
		return term{text: text, pred: pred}, nil
	}

	pred, err := builtin(key, value)
	if err != nil {
		return nil, fmt.Errorf("term %q at offset %d: %w", text, offset, err)
	}
	return term{text: text, pred: pred}, nil
}

func builtin(key, value string) (Predicate, error) {
	switch key {
	case "class", "name":
		return func(w Window) bool {
			got, ok := w.Property(key)
			return ok && got == value
		}, nil
	case "type":
		return func(w Window) bool {
			got, ok := w.Property(key)
			return ok && strings.EqualFold(got, value)
		}, nil
	case "title", "role":
		re, err := regexp.Compile(value)
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression: %w", err)
		}
		return func(w Window) bool {
			got, ok := w.Property(key)
			return ok && re.MatchString(got)
		}, nil
	case "xid":
		id, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid window id: %w", err)
		}
		return func(w Window) bool {
			return w.ID() == platform.WindowID(id)
		}, nil
	default:
		return nil, fmt.Errorf("unknown key %q", key)
	}
}

type constant struct {
	value bool
	text  string
}

func (c constant) Match(Window) bool { return c.value }
func (c constant) String() string { return c.text }

type term struct {
	text string
	pred Predicate
}

func (t term) Match(w Window) bool { return t.pred(w) }
func (t term) String() string { return t.text }

type not struct{ inner Expr }

func (n not) Match(w Window) bool { return !n.inner.Match(w) }
func (n not) String() string { return "!" + n.inner.String() }

type and struct{ parts []Expr }

func (a and) Match(w Window) bool {
	for _, p := range a.parts {
		if !p.Match(w) {
			return false
		}
	}
	return true
}

func (a and) String() string { return join(a.parts, " & ") }

type or struct{ parts []Expr }

func (o or) Match(w Window) bool {
	for _, p := range o.parts {
		if p.Match(w) {
			return true
		}
	}
	return false
}

func (o or) String() string { return join(o.parts, " | ") }

func join(parts []Expr, sep string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		s := p.String()
		switch p.(type) {
		case and, or:
			s = "(" + s + ")"
		}
		out[i] = s
	}
	return strings.Join(out, sep)
}
