// Package script evaluates tagger scripts against track metadata.
//
// A script is plain text with two kinds of substitutions: %name% expands to
// the value of a tag and $func(arg,...) calls a function. A backslash
// escapes the next character. The text a script produces is discarded; only
// the side effects of functions such as $set are kept.
package script

import (
	"fmt"
	"strings"
)

// SyntaxError reports where a script failed to parse.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

type node interface {
	eval(ctx *env) (string, error)
}

// expr is a sequence of nodes whose results are concatenated.
type expr []node

type text string

type variable string

type call struct {
	name string
	args []expr
	pos  int
}

type parser struct {
	src []rune
	pos int
}

func parse(src string) (expr, error) {
	p := &parser{src: []rune(src)}
	e, err := p.expr(false)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}
	return e, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

// expr parses until the end of input or, inside an argument list, until an
// unescaped ',' or ')'.
func (p *parser) expr(inArgs bool) (expr, error) {
	var e expr
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			e = append(e, text(lit.String()))
			lit.Reset()
		}
	}

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return nil, p.errorf("trailing backslash")
			}
			lit.WriteRune(p.src[p.pos+1])
			p.pos += 2
		case c == '%':
			flush()
			v, err := p.variable()
			if err != nil {
				return nil, err
			}
			e = append(e, v)
		case c == '$':
			flush()
			fn, err := p.call()
			if err != nil {
				return nil, err
			}
			e = append(e, fn)
		case inArgs && (c == ',' || c == ')'):
			flush()
			return e, nil
		default:
			lit.WriteRune(c)
			p.pos++
		}
	}
	flush()
	return e, nil
}

func (p *parser) variable() (node, error) {
	start := p.pos
	p.pos++
	end := p.pos
	for end < len(p.src) && p.src[end] != '%' {
		if !isNameRune(p.src[end]) {
			p.pos = end
			return nil, p.errorf("invalid character %q in variable name", p.src[end])
		}
		end++
	}
	if end >= len(p.src) {
		p.pos = start
		return nil, p.errorf("unterminated variable")
	}
	name := string(p.src[p.pos:end])
	p.pos = end + 1
	return variable(strings.ToLower(name)), nil
}

func (p *parser) call() (node, error) {
	start := p.pos
	p.pos++
	nameStart := p.pos
	for p.pos < len(p.src) && isFuncRune(p.src[p.pos]) {
		p.pos++
	}
	name := string(p.src[nameStart:p.pos])
	if name == "" {
		return nil, p.errorf("missing function name")
	}
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return nil, p.errorf("expected '(' after $%s", name)
	}
	p.pos++

	fn := call{name: name, pos: start}
	for {
		arg, err := p.expr(true)
		if err != nil {
			return nil, err
		}
		fn.args = append(fn.args, arg)
		if p.pos >= len(p.src) {
			p.pos = start
			return nil, p.errorf("unterminated call to $%s", name)
		}
		sep := p.src[p.pos]
		p.pos++
		if sep == ')' {
			break
		}
	}
	// $f() has no arguments rather than one empty one.
	if len(fn.args) == 1 && len(fn.args[0]) == 0 {
		fn.args = nil
	}
	return fn, nil
}

func isNameRune(r rune) bool {
	return r == '_' || r == '~' || r == ':' || r == '-' ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

func isFuncRune(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}
