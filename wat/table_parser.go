package wat

import (
	"github.com/wasmkit/watc/ast"
)

// parseTable parses the interior of "(table ...)". After the optional name
// and export annotations, the remainder is disambiguated by its first token
// class, in priority order:
//
//	elemtype (elem ...)   inline contents, sized by the payload
//	limits elemtype       a plain table type
//	(import "m" "n") ...  an inline import followed by a table type
//
// The first and second forms can look similar at a glance; what separates
// them is whether the next token is an element-type keyword or a bare
// integer, and the grammar commits to a branch only after confirming which
// class it saw.
func (p *parser) parseTable() (*ast.Table, *ParseError) {
	f := &ast.Table{Span: p.tok().span}
	p.next() // table
	f.Name = p.maybeName()
	var err *ParseError
	if f.Exports, err = p.parseInlineExports(); err != nil {
		return nil, err
	}

	l := p.lookahead()
	switch {
	case l.peek(p.peekRefType(), "an element type"):
		elemType, rerr := p.expectRefType()
		if rerr != nil {
			return nil, rerr
		}
		kind := &ast.TableKindInline{ElemType: elemType}
		err = p.parens(func() *ParseError {
			if _, kerr := p.expectKeyword(kwElem, "elem"); kerr != nil {
				return kerr
			}
			// A parenthesized first entry means the payload is typed
			// expressions; otherwise it is plain indices.
			var ty *ast.RefType
			if p.peekLParen() {
				ty = &elemType
			}
			var perr *ParseError
			kind.Payload, perr = p.parseElemPayloadTail(ty)
			return perr
		})
		if err != nil {
			return nil, err
		}
		f.Kind = kind
	case l.peek(p.peekUN(), "a table type"):
		kind := &ast.TableKindNormal{}
		if kind.Type, err = p.parseTableType(); err != nil {
			return nil, err
		}
		f.Kind = kind
	case l.peek(p.peekLParen(), "an import"):
		kind := &ast.TableKindImport{}
		if kind.Import, err = p.parseInlineImport(); err != nil {
			return nil, err
		}
		if kind.Type, err = p.parseTableType(); err != nil {
			return nil, err
		}
		f.Kind = kind
	default:
		return nil, l.err()
	}
	return f, nil
}

// parseElem parses the interior of "(elem ...)".
//
// The segment is active when the next token is a number or opens a
// parenthesis, passive otherwise. Within an active segment, two tokens of
// lookahead pick the target: a nested "(table ...)" carries an explicit
// index, a bare number is that index directly, and otherwise index zero is
// implied. The offset is a required parenthesized constant expression,
// optionally preceded by the decorative "offset" keyword.
func (p *parser) parseElem() (*ast.Elem, *ParseError) {
	f := &ast.Elem{Span: p.tok().span}
	p.next() // elem
	f.Name = p.maybeName()

	if p.peekUN() || p.peekLParen() {
		kind := &ast.ElemKindActive{}
		var err *ParseError
		switch {
		case p.peek2Keyword(kwTable):
			err = p.parens(func() *ParseError {
				p.next() // table
				var ierr *ParseError
				kind.Table, ierr = p.expectIndex("table")
				return ierr
			})
		case p.peekUN():
			kind.Table, err = p.expectIndex("table")
		}
		if err != nil {
			return nil, err
		}
		if kind.Offset, err = p.parseOffsetGroup(); err != nil {
			return nil, err
		}
		f.Kind = kind
	} else {
		f.Kind = &ast.ElemKindPassive{}
	}

	payload, err := p.parseElemPayload()
	if err != nil {
		return nil, err
	}
	f.Payload = payload
	return f, nil
}

// parseOffsetGroup parses "(offset expr)" or the abbreviation "(expr)"; the
// keyword is purely decorative and discarded.
func (p *parser) parseOffsetGroup() (ast.Expression, *ParseError) {
	var expr ast.Expression
	err := p.parens(func() *ParseError {
		if p.peekKeyword(kwOffset) {
			p.next()
		}
		var perr *ParseError
		expr, perr = p.parseExpressionTail()
		return perr
	})
	return expr, err
}

// parseElemPayload parses a standalone segment payload: an optional element
// type selects the expression-list sub-form.
func (p *parser) parseElemPayload() (ast.ElemPayload, *ParseError) {
	var ty *ast.RefType
	if p.peekRefType() {
		t, err := p.expectRefType()
		if err != nil {
			return nil, err
		}
		ty = &t
	}
	return p.parseElemPayloadTail(ty)
}

// parseElemPayloadTail parses the payload entries given whether an element
// type was already established by the caller. It is shared between
// standalone segments and the inline-contents table form so the two sites
// cannot drift apart.
//
// With a type, each entry is "(ref.func idx)" or "(ref.null t)" (absent);
// without, an optional leading "func" keyword precedes a flat index list.
// The payload is empty when the group immediately closes.
func (p *parser) parseElemPayloadTail(ty *ast.RefType) (ast.ElemPayload, *ParseError) {
	if ty != nil {
		payload := &ast.ElemPayloadExprs{Type: *ty, Exprs: []*ast.Index{}}
		for !p.done() {
			var entry *ast.Index
			err := p.parens(func() *ParseError {
				l := p.lookahead()
				switch {
				case l.peek(p.peekKeyword(kwRefNull), "ref.null"):
					p.next()
					// The heap type is optional here, ex. both
					// "(ref.null)" and "(ref.null func)" denote absence.
					if !p.done() {
						if _, err := p.expectHeapType(); err != nil {
							return err
						}
					}
					entry = nil
				case l.peek(p.peekKeyword(kwRefFunc), "ref.func"):
					p.next()
					idx, ierr := p.expectIndex("function")
					if ierr != nil {
						return ierr
					}
					entry = &idx
				default:
					return l.err()
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			payload.Exprs = append(payload.Exprs, entry)
		}
		return payload, nil
	}

	if p.peekKeyword(kwFunc) {
		p.next()
	}
	payload := &ast.ElemPayloadIndices{Indices: []ast.Index{}}
	for !p.done() {
		idx, err := p.expectIndex("function")
		if err != nil {
			return nil, err
		}
		payload.Indices = append(payload.Indices, idx)
	}
	return payload, nil
}

// expectHeapType consumes the heap-type spelling used by ref.null: "func",
// "extern", or a full element type.
func (p *parser) expectHeapType() (ast.RefType, *ParseError) {
	t := p.tok()
	if t.kind == tokenKeyword {
		switch string(p.bytes(t)) {
		case "func":
			p.next()
			return ast.RefTypeFuncref, nil
		case "extern":
			p.next()
			return ast.RefTypeExternref, nil
		}
	}
	return p.expectRefType()
}
