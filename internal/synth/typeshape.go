package synth

import (
	"fmt"
	"strings"
	"unicode"
)

// primitives can be constructed unconstrained by the backend.
var primitives = map[string]bool{
	"bool": true, "char": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"f32": true, "f64": true,
}

// unsupportedError names the part of a type that has no unconstrained constructor.
type unsupportedError struct {
	what string
}

func (e *unsupportedError) Error() string {
	return e.what + " is not supported"
}

// malformedError reports a type string outside the parameter type grammar.
type malformedError struct {
	src    string
	detail string
}

func (e *malformedError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("malformed type %q", e.src)
	}
	return fmt.Sprintf("malformed type %q: %s", e.src, e.detail)
}

// typeChecker decides whether a parameter type can be built from nondeterministic
// values. The grammar covers the shapes a compiler toolchain prints for
// parameter types: paths with generic arguments, references, raw pointers,
// tuples, arrays, and slices.
type typeChecker struct {
	arbitrary map[string]bool
}

// check returns nil when typ is supported.
func (tc *typeChecker) check(typ string) error {
	p := &typeParser{src: typ, tc: tc}
	if err := p.parseType(); err != nil {
		return err
	}
	p.skipSpace()
	if !p.eof() {
		return &malformedError{src: typ}
	}
	return nil
}

func (tc *typeChecker) nominal(path string, args int) error {
	last := path
	if i := strings.LastIndex(path, "::"); i >= 0 {
		last = path[i+2:]
	}

	switch {
	case args == 0 && primitives[path]:
		return nil
	case last == "str":
		return &unsupportedError{what: "str"}
	case last == "String":
		return &unsupportedError{what: "String"}
	case last == "Option" && args == 1:
		return nil
	case last == "Result" && args == 2:
		return nil
	case tc.arbitrary[path] || tc.arbitrary[last]:
		return nil
	}
	return &unsupportedError{what: fmt.Sprintf("type %s without an Arbitrary implementation", path)}
}

type typeParser struct {
	src string
	pos int
	tc  *typeChecker
}

func (p *typeParser) eof() bool { return p.pos >= len(p.src) }

func (p *typeParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) skipSpace() {
	for !p.eof() && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return &malformedError{src: p.src, detail: fmt.Sprintf("expected %q at offset %d", c, p.pos)}
	}
	p.pos++
	return nil
}

func (p *typeParser) ident() string {
	start := p.pos
	for !p.eof() {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		if c == ':' && strings.HasPrefix(p.src[p.pos:], "::") {
			p.pos += 2
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

// keyword consumes word if it is the next token.
func (p *typeParser) keyword(word string) bool {
	p.skipSpace()
	rest := p.src[p.pos:]
	if !strings.HasPrefix(rest, word) {
		return false
	}
	if len(rest) > len(word) {
		c := rune(rest[len(word)])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			return false
		}
	}
	p.pos += len(word)
	return true
}

func (p *typeParser) parseType() error {
	p.skipSpace()
	start := p.pos

	switch p.peek() {
	case 0:
		return &malformedError{src: p.src, detail: "unexpected end"}

	case '&':
		p.pos++
		p.skipSpace()
		if p.peek() == '\'' {
			p.pos++
			p.ident()
		}
		p.keyword("mut")
		return p.parseType()

	case '*':
		p.pos++
		if !p.keyword("const") && !p.keyword("mut") {
			return &malformedError{src: p.src, detail: "raw pointer without const or mut"}
		}
		_ = p.parseType()
		return &unsupportedError{what: "raw pointer " + strings.TrimSpace(p.src[start:p.pos])}

	case '(':
		p.pos++
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			return nil
		}
		for {
			if err := p.parseType(); err != nil {
				return err
			}
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				p.skipSpace()
				if p.peek() == ')' {
					p.pos++
					return nil
				}
				continue
			}
			return p.expect(')')
		}

	case '[':
		p.pos++
		if err := p.parseType(); err != nil {
			return err
		}
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return &unsupportedError{what: "slice " + p.src[start:p.pos]}
		}
		if err := p.expect(';'); err != nil {
			return err
		}
		p.skipSpace()
		if p.ident() == "" {
			return &malformedError{src: p.src, detail: "missing array length"}
		}
		return p.expect(']')

	case '!':
		return &unsupportedError{what: "never type"}
	}

	if p.keyword("dyn") || p.keyword("impl") {
		return &unsupportedError{what: "trait object " + strings.TrimSpace(p.src[start:])}
	}
	if p.keyword("fn") || p.keyword("unsafe") || p.keyword("extern") {
		return &unsupportedError{what: "function pointer " + strings.TrimSpace(p.src[start:])}
	}

	path := p.ident()
	if path == "" {
		return &malformedError{src: p.src, detail: fmt.Sprintf("unexpected %q at offset %d", p.peek(), p.pos)}
	}

	args := 0
	p.skipSpace()
	if p.peek() == '<' {
		p.pos++
		for {
			p.skipSpace()
			if p.peek() == '>' {
				p.pos++
				break
			}
			if err := p.parseType(); err != nil {
				return err
			}
			args++
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			if err := p.expect('>'); err != nil {
				return err
			}
			break
		}
	}

	return p.tc.nominal(path, args)
}
