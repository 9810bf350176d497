package match

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokTerm tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokOpen
	tokClose
)

type token struct {
	kind   tokenKind
	text   string
	offset int
}

func tokenize(s string) ([]token, error) {
	var (
		toks  []token
		buf   strings.Builder
		start = -1
	)
	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			toks = append(toks, token{kind: tokTerm, text: text, offset: start})
		}
		buf.Reset()
		start = -1
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		var kind tokenKind
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("dangling escape at offset %d", i)
			}
			if start < 0 {
				start = i
			}
			i++
			buf.WriteByte(s[i])
			continue
		case '&':
			kind = tokAnd
		case '|':
			kind = tokOr
		case '!':
			if strings.TrimSpace(buf.String()) != "" {
				buf.WriteByte(c)
				continue
			}
			kind = tokNot
		case '(':
			kind = tokOpen
		case ')':
			kind = tokClose
		default:
			if start < 0 && c != ' ' && c != '\t' {
				start = i
			}
			buf.WriteByte(c)
			continue
		}
		flush()
		toks = append(toks, token{kind: kind, text: string(c), offset: i})
	}
	flush()
	return toks, nil
}

type parseState struct {
	parser *Parser
	toks   []token
	pos    int
}

func (ps *parseState) peek() (token, bool) {
	if ps.pos >= len(ps.toks) {
		return token{}, false
	}
	return ps.toks[ps.pos], true
}

func (ps *parseState) parseOr() (Expr, error) {
	first, err := ps.parseAnd()
	if err != nil {
		return nil, err
	}
	parts := []Expr{first}
	for {
		tok, ok := ps.peek()
		if !ok || tok.kind != tokOr {
			break
		}
		ps.pos++
		next, err := ps.parseAnd()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}
	if len(parts) == 1 {
		return first, nil
	}
	return or{parts: parts}, nil
}

func (ps *parseState) parseAnd() (Expr, error) {
	first, err := ps.parseUnary()
	if err != nil {
		return nil, err
	}
	parts := []Expr{first}
	for {
		tok, ok := ps.peek()
		if !ok || tok.kind != tokAnd {
			break
		}
		ps.pos++
		next, err := ps.parseUnary()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}
	if len(parts) == 1 {
		return first, nil
	}
	return and{parts: parts}, nil
}

func (ps *parseState) parseUnary() (Expr, error) {
	tok, ok := ps.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	ps.pos++
	switch tok.kind {
	case tokNot:
		inner, err := ps.parseUnary()
		if err != nil {
			return nil, err
		}
		return not{inner: inner}, nil
	case tokOpen:
		inner, err := ps.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := ps.peek()
		if !ok || closing.kind != tokClose {
			return nil, fmt.Errorf("missing ')' for '(' at offset %d", tok.offset)
		}
		ps.pos++
		return inner, nil
	case tokTerm:
		return ps.parser.compileTerm(tok.text, tok.offset)
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", tok.text, tok.offset)
	}
}
