package wat

import (
	"fmt"
	"strings"

	"github.com/wasmkit/watc/ast"
)

// maxNestingDepth bounds parenthesis nesting so pathological input fails
// deterministically instead of exhausting the call stack.
const maxNestingDepth = 512

// parser is a cursor over the token stream. Grammar routines disambiguate
// with one or two tokens of lookahead and never backtrack: probes only peek,
// and once a branch commits it consumes unconditionally.
type parser struct {
	source []byte
	tokens []token
	// pos indexes the current (unconsumed) token. The stream always ends
	// with tokenEOF, so tok() is total.
	pos   int
	depth int
	diags []Diagnostic
}

func newParser(source []byte) (*parser, *ParseError) {
	tokens, err := lex(source)
	if err != nil {
		return nil, err
	}
	return &parser{source: source, tokens: tokens}, nil
}

// tok returns the current token without consuming it.
func (p *parser) tok() token {
	return p.at(0)
}

// at returns the token i positions ahead of the cursor, saturating at EOF.
func (p *parser) at(i int) token {
	if p.pos+i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+i]
}

// next consumes and returns the current token. EOF is never consumed.
func (p *parser) next() token {
	t := p.tok()
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

// bytes returns the source bytes of a token.
func (p *parser) bytes(t token) []byte {
	return p.source[t.span.Start:t.span.End]
}

// keywordOf returns the structural keyword the current+i token spells, or
// kwNone.
func (p *parser) keywordOf(i int) keyword {
	t := p.at(i)
	if t.kind != tokenKeyword {
		return kwNone
	}
	return keywords[string(p.bytes(t))]
}

// The peek family answers "could the upcoming token(s) start this
// production" without consuming anything.

func (p *parser) peekKind(k tokenKind) bool { return p.tok().kind == k }

func (p *parser) peekLParen() bool { return p.peekKind(tokenLParen) }

func (p *parser) peekUN() bool { return p.peekKind(tokenUN) }

// peekIndex reports whether the next token could be an index: a number or a
// symbolic ID.
func (p *parser) peekIndex() bool {
	return p.peekKind(tokenUN) || p.peekKind(tokenID)
}

func (p *parser) peekKeyword(kw keyword) bool { return p.keywordOf(0) == kw }

// peek2Keyword looks one token further ahead than peekKeyword, for branches
// where the first token alone is ambiguous, ex. a '(' that may open either
// "(table ...)" or "(offset ...)".
func (p *parser) peek2Keyword(kw keyword) bool { return p.keywordOf(1) == kw }

// peekRefType reports whether the next token is an element type.
func (p *parser) peekRefType() bool {
	switch p.keywordOf(0) {
	case kwFuncref, kwExternref, kwAnyfunc:
		return true
	}
	return false
}

// done reports whether the current group (or the input) has no tokens left.
func (p *parser) done() bool {
	k := p.tok().kind
	return k == tokenRParen || k == tokenEOF
}

// expect consumes the current token if it has the wanted kind, or fails.
func (p *parser) expect(k tokenKind, context string) (token, *ParseError) {
	t := p.tok()
	if t.kind != k {
		return t, errAtf(t.span, "expected %s, but found %s", context, p.describe(t))
	}
	return p.next(), nil
}

// describe renders a token for an error message.
func (p *parser) describe(t token) string {
	switch t.kind {
	case tokenLParen, tokenRParen, tokenEOF:
		return t.kind.String()
	default:
		return t.kind.String() + " " + string(p.bytes(t))
	}
}

// expectKeyword consumes the given reserved word or fails.
func (p *parser) expectKeyword(kw keyword, spelling string) (token, *ParseError) {
	t := p.tok()
	if p.keywordOf(0) != kw {
		return t, errAtf(t.span, "expected keyword %q, but found %s", spelling, p.describe(t))
	}
	return p.next(), nil
}

// expectUint32 consumes a tokenUN as a 32-bit value or fails.
func (p *parser) expectUint32(context string) (uint32, *ParseError) {
	t, err := p.expect(tokenUN, context)
	if err != nil {
		return 0, err
	}
	v, ok := parseUint32(p.bytes(t))
	if !ok {
		return 0, errAtf(t.span, "%s %s overflows uint32", context, p.bytes(t))
	}
	return v, nil
}

// expectIndex consumes a numeric or symbolic index or fails.
func (p *parser) expectIndex(context string) (ast.Index, *ParseError) {
	t := p.tok()
	switch t.kind {
	case tokenUN:
		v, ok := parseUint32(p.bytes(t))
		if !ok {
			return ast.Index{}, errAtf(t.span, "index %s overflows uint32", p.bytes(t))
		}
		p.next()
		return ast.Index{Numeric: v, Span: t.span}, nil
	case tokenID:
		p.next()
		return ast.Index{ID: stripDollar(p.bytes(t)), Span: t.span}, nil
	default:
		return ast.Index{}, errAtf(t.span, "expected %s index, but found %s", context, p.describe(t))
	}
}

// expectString consumes a string literal and decodes its escapes or fails.
func (p *parser) expectString(context string) ([]byte, *ParseError) {
	t, err := p.expect(tokenString, context)
	if err != nil {
		return nil, err
	}
	s, uerr := unquote(p.bytes(t))
	if uerr != nil {
		return nil, errAtf(t.span, "malformed string literal: %v", uerr)
	}
	return s, nil
}

// maybeName consumes an optional "$id" and returns it without the '$', or
// the empty string.
func (p *parser) maybeName() string {
	if t := p.tok(); t.kind == tokenID {
		p.next()
		return stripDollar(p.bytes(t))
	}
	return ""
}

// parens enters a "(...)" group, runs f on the interior, and fails if
// unconsumed input remains when f returns, so trailing tokens surface as an
// error instead of being silently ignored.
func (p *parser) parens(f func() *ParseError) *ParseError {
	if _, err := p.expect(tokenLParen, "'('"); err != nil {
		return err
	}
	p.depth++
	if p.depth > maxNestingDepth {
		return errAt(p.tok().span, "exceeded maximum nesting depth")
	}
	if err := f(); err != nil {
		return err
	}
	p.depth--
	if t := p.tok(); t.kind != tokenRParen {
		return errAtf(t.span, "expected ')', but found unconsumed %s", p.describe(t))
	}
	p.next()
	return nil
}

// lookahead1 accumulates peek probes so a branchless match produces a single
// "expected one of {...}" error at the offending token. This is the
// disambiguation mechanism used throughout; the grammar never backtracks
// after consuming a token.
type lookahead1 struct {
	p        *parser
	expected []string
}

func (p *parser) lookahead() *lookahead1 {
	return &lookahead1{p: p}
}

// peek records the probe's description and reports whether it matched.
func (l *lookahead1) peek(matched bool, description string) bool {
	if matched {
		return true
	}
	l.expected = append(l.expected, description)
	return false
}

// err synthesizes the failure after every probe came up empty.
func (l *lookahead1) err() *ParseError {
	t := l.p.tok()
	if len(l.expected) == 1 {
		return errAtf(t.span, "expected %s, but found %s", l.expected[0], l.p.describe(t))
	}
	return errAtf(t.span, "expected one of: %s, but found %s", strings.Join(l.expected, ", "), l.p.describe(t))
}

// warnf records a non-fatal diagnostic, ex. a deprecated spelling.
func (p *parser) warnf(span ast.Span, format string, args ...interface{}) {
	p.diags = append(p.diags, Diagnostic{Span: span, Msg: "warning: " + fmt.Sprintf(format, args...)})
}
