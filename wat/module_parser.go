package wat

import (
	"fmt"

	"github.com/wasmkit/watc/ast"
)

// Parse parses WebAssembly text into a module tree, along with any non-fatal
// diagnostics. Both "(module ...)" sources and the bare field-sequence
// abbreviation are accepted. Symbolic indices are left unresolved; see Bind.
//
// The first failure aborts the parse: no partial tree is returned.
func Parse(source []byte) (*ast.Module, []Diagnostic, error) {
	p, perr := newParser(source)
	if perr != nil {
		return nil, nil, perr
	}

	m := &ast.Module{Span: p.tok().span}
	if p.peekLParen() && p.peek2Keyword(kwModule) {
		perr = p.parens(func() *ParseError {
			m.Span = p.tok().span
			p.next() // module
			m.Name = p.maybeName()
			return p.parseFields(m)
		})
	} else {
		perr = p.parseFields(m)
	}
	if perr == nil && !p.peekKind(tokenEOF) {
		t := p.tok()
		perr = errAtf(t.span, "unexpected %s after module", p.describe(t))
	}
	if perr != nil {
		return nil, nil, perr
	}
	return m, p.diags, nil
}

// parseFields parses zero or more "(field ...)" groups into m.
func (p *parser) parseFields(m *ast.Module) *ParseError {
	counts := map[string]int{}
	for p.peekLParen() {
		var field ast.ModuleField
		var name string
		err := p.parens(func() *ParseError {
			t := p.tok()
			var ferr *ParseError
			switch p.keywordOf(0) {
			case kwType:
				name = "type"
				field, ferr = p.parseTypeDef()
			case kwImport:
				name = "import"
				field, ferr = p.parseImport()
			case kwFunc:
				name = "func"
				field, ferr = p.parseFunc()
			case kwTable:
				name = "table"
				field, ferr = p.parseTable()
			case kwMemory:
				name = "memory"
				field, ferr = p.parseMemory()
			case kwGlobal:
				name = "global"
				field, ferr = p.parseGlobal()
			case kwExport:
				name = "export"
				field, ferr = p.parseExport()
			case kwStart:
				name = "start"
				field, ferr = p.parseStart()
			case kwElem:
				name = "elem"
				field, ferr = p.parseElem()
			case kwData:
				name = "data"
				field, ferr = p.parseData()
			default:
				if t.kind == tokenKeyword {
					switch string(p.bytes(t)) {
					case "tag", "event", "rec", "sub", "component", "instance", "shared":
						// Later-proposal syntax is rejected explicitly rather
						// than mis-parsed.
						return errAtf(t.span, "unsupported construct: %s", p.bytes(t))
					}
					return errAtf(t.span, "unexpected field: %s", p.bytes(t))
				}
				return errAtf(t.span, "expected a field keyword, but found %s", p.describe(t))
			}
			return ferr
		})
		if err != nil {
			if err.Context == "" && name != "" {
				err.Context = fmt.Sprintf("module.%s[%d]", name, counts[name])
			}
			return err
		}
		counts[name]++
		m.Fields = append(m.Fields, field)
	}
	return nil
}

// parseTypeDef parses the interior of "(type $id? (func ...))".
func (p *parser) parseTypeDef() (*ast.TypeDef, *ParseError) {
	f := &ast.TypeDef{Span: p.tok().span}
	p.next() // type
	f.Name = p.maybeName()
	err := p.parens(func() *ParseError {
		if _, err := p.expectKeyword(kwFunc, "func"); err != nil {
			return err
		}
		ft, _, err := p.parseFuncSignature()
		if err != nil {
			return err
		}
		f.Func = ft
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// parseImport parses the interior of a standalone import, ex.
// "(import "Math" "PI" (global $pi f64))".
func (p *parser) parseImport() (*ast.Import, *ParseError) {
	f := &ast.Import{Span: p.tok().span}
	p.next() // import
	var err *ParseError
	if f.Module, err = p.expectStringValue("module name"); err != nil {
		return nil, err
	}
	if f.Name, err = p.expectStringValue("import name"); err != nil {
		return nil, err
	}
	err = p.parens(func() *ParseError {
		l := p.lookahead()
		switch {
		case l.peek(p.peekKeyword(kwFunc), "func"):
			p.next()
			d := &ast.ImportFunc{Name: p.maybeName()}
			tu, terr := p.parseTypeUse()
			if terr != nil {
				return terr
			}
			d.Type = tu
			f.Desc = d
		case l.peek(p.peekKeyword(kwTable), "table"):
			p.next()
			d := &ast.ImportTable{Name: p.maybeName()}
			tt, terr := p.parseTableType()
			if terr != nil {
				return terr
			}
			d.Type = tt
			f.Desc = d
		case l.peek(p.peekKeyword(kwMemory), "memory"):
			p.next()
			d := &ast.ImportMemory{Name: p.maybeName()}
			lim, lerr := p.parseLimits()
			if lerr != nil {
				return lerr
			}
			d.Type = lim
			f.Desc = d
		case l.peek(p.peekKeyword(kwGlobal), "global"):
			p.next()
			d := &ast.ImportGlobal{Name: p.maybeName()}
			gt, gerr := p.parseGlobalType()
			if gerr != nil {
				return gerr
			}
			d.Type = gt
			f.Desc = d
		default:
			return l.err()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// parseMemory parses the interior of "(memory ...)": an inline import, the
// inline "(data ...)" contents form, or plain limits.
func (p *parser) parseMemory() (*ast.Memory, *ParseError) {
	f := &ast.Memory{Span: p.tok().span}
	p.next() // memory
	f.Name = p.maybeName()
	var err *ParseError
	if f.Exports, err = p.parseInlineExports(); err != nil {
		return nil, err
	}

	l := p.lookahead()
	switch {
	case l.peek(p.peekLParen() && p.peek2Keyword(kwImport), "an import"):
		kind := &ast.MemoryKindImport{}
		if kind.Import, err = p.parseInlineImport(); err != nil {
			return nil, err
		}
		if kind.Type, err = p.parseLimits(); err != nil {
			return nil, err
		}
		f.Kind = kind
	case l.peek(p.peekLParen() && p.peek2Keyword(kwData), "inline data"):
		kind := &ast.MemoryKindInline{}
		err = p.parens(func() *ParseError {
			p.next() // data
			for !p.done() {
				s, serr := p.expectString("data contents")
				if serr != nil {
					return serr
				}
				kind.Data = append(kind.Data, s...)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		f.Kind = kind
	case l.peek(p.peekUN(), "memory limits"):
		kind := &ast.MemoryKindNormal{}
		if kind.Type, err = p.parseLimits(); err != nil {
			return nil, err
		}
		f.Kind = kind
	default:
		return nil, l.err()
	}
	return f, nil
}

// parseGlobal parses the interior of "(global ...)".
func (p *parser) parseGlobal() (*ast.Global, *ParseError) {
	f := &ast.Global{Span: p.tok().span}
	p.next() // global
	f.Name = p.maybeName()
	var err *ParseError
	if f.Exports, err = p.parseInlineExports(); err != nil {
		return nil, err
	}

	if p.peekLParen() && p.peek2Keyword(kwImport) {
		kind := &ast.GlobalKindImport{}
		if kind.Import, err = p.parseInlineImport(); err != nil {
			return nil, err
		}
		if kind.Type, err = p.parseGlobalType(); err != nil {
			return nil, err
		}
		f.Kind = kind
		return f, nil
	}

	kind := &ast.GlobalKindNormal{}
	if kind.Type, err = p.parseGlobalType(); err != nil {
		return nil, err
	}
	if kind.Init, err = p.parseExpression(); err != nil {
		return nil, err
	}
	f.Kind = kind
	return f, nil
}

// parseExport parses the interior of "(export "name" (kind idx))".
func (p *parser) parseExport() (*ast.Export, *ParseError) {
	f := &ast.Export{Span: p.tok().span}
	p.next() // export
	var err *ParseError
	if f.Name, err = p.expectStringValue("export name"); err != nil {
		return nil, err
	}
	err = p.parens(func() *ParseError {
		l := p.lookahead()
		switch {
		case l.peek(p.peekKeyword(kwFunc), "func"):
			f.Kind = ast.ExternTypeFunc
		case l.peek(p.peekKeyword(kwTable), "table"):
			f.Kind = ast.ExternTypeTable
		case l.peek(p.peekKeyword(kwMemory), "memory"):
			f.Kind = ast.ExternTypeMemory
		case l.peek(p.peekKeyword(kwGlobal), "global"):
			f.Kind = ast.ExternTypeGlobal
		default:
			return l.err()
		}
		p.next()
		var ierr *ParseError
		f.Index, ierr = p.expectIndex("export")
		return ierr
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// parseStart parses the interior of "(start $main)".
func (p *parser) parseStart() (*ast.Start, *ParseError) {
	f := &ast.Start{Span: p.tok().span}
	p.next() // start
	var err *ParseError
	if f.Index, err = p.expectIndex("start function"); err != nil {
		return nil, err
	}
	return f, nil
}

// parseData parses the interior of "(data ...)". Like an element segment,
// the segment is active when a number or parenthesis precedes the contents,
// and the memory index defaults to zero when omitted.
func (p *parser) parseData() (*ast.Data, *ParseError) {
	f := &ast.Data{Span: p.tok().span}
	p.next() // data
	f.Name = p.maybeName()

	if p.peekUN() || p.peekLParen() {
		kind := &ast.DataKindActive{}
		var err *ParseError
		switch {
		case p.peekLParen() && p.peek2Keyword(kwMemory):
			err = p.parens(func() *ParseError {
				p.next() // memory
				var ierr *ParseError
				kind.Memory, ierr = p.expectIndex("memory")
				return ierr
			})
		case p.peekUN():
			kind.Memory, err = p.expectIndex("memory")
		}
		if err != nil {
			return nil, err
		}
		if kind.Offset, err = p.parseOffsetGroup(); err != nil {
			return nil, err
		}
		f.Kind = kind
	} else {
		f.Kind = &ast.DataKindPassive{}
	}

	for !p.done() {
		s, err := p.expectString("data contents")
		if err != nil {
			return nil, err
		}
		f.Bytes = append(f.Bytes, s...)
	}
	return f, nil
}

// parseInlineExports parses zero or more "(export "name")" annotations.
func (p *parser) parseInlineExports() ([]string, *ParseError) {
	var out []string
	for p.peekLParen() && p.peek2Keyword(kwExport) {
		err := p.parens(func() *ParseError {
			p.next() // export
			name, serr := p.expectStringValue("export name")
			if serr != nil {
				return serr
			}
			out = append(out, name)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parseInlineImport parses the "(import "m" "n")" abbreviation.
func (p *parser) parseInlineImport() (ast.InlineImport, *ParseError) {
	var imp ast.InlineImport
	err := p.parens(func() *ParseError {
		if _, kerr := p.expectKeyword(kwImport, "import"); kerr != nil {
			return kerr
		}
		var serr *ParseError
		if imp.Module, serr = p.expectStringValue("module name"); serr != nil {
			return serr
		}
		imp.Name, serr = p.expectStringValue("import name")
		return serr
	})
	return imp, err
}

func (p *parser) expectStringValue(context string) (string, *ParseError) {
	s, err := p.expectString(context)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// parseLimits parses "min max?".
func (p *parser) parseLimits() (ast.Limits, *ParseError) {
	var l ast.Limits
	var err *ParseError
	if l.Min, err = p.expectUint32("min"); err != nil {
		return l, err
	}
	if p.peekUN() {
		max, merr := p.expectUint32("max")
		if merr != nil {
			return l, merr
		}
		l.Max = &max
	}
	return l, nil
}

// parseTableType parses "limits elemtype".
func (p *parser) parseTableType() (ast.TableType, *ParseError) {
	var tt ast.TableType
	var err *ParseError
	if tt.Limits, err = p.parseLimits(); err != nil {
		return tt, err
	}
	tt.ElemType, err = p.expectRefType()
	return tt, err
}

// expectRefType consumes an element type. The pre-standard "anyfunc"
// spelling of funcref is accepted with a deprecation warning.
func (p *parser) expectRefType() (ast.RefType, *ParseError) {
	t := p.tok()
	switch p.keywordOf(0) {
	case kwFuncref:
		p.next()
		return ast.RefTypeFuncref, nil
	case kwExternref:
		p.next()
		return ast.RefTypeExternref, nil
	case kwAnyfunc:
		p.next()
		p.warnf(t.span, "anyfunc is deprecated, use funcref")
		return ast.RefTypeFuncref, nil
	}
	return 0, errAtf(t.span, "expected an element type, but found %s", p.describe(t))
}

// expectValType consumes one of i32, i64, f32 or f64.
func (p *parser) expectValType() (ast.ValueType, *ParseError) {
	t := p.tok()
	if t.kind == tokenKeyword {
		switch string(p.bytes(t)) {
		case "i32":
			p.next()
			return ast.ValueTypeI32, nil
		case "i64":
			p.next()
			return ast.ValueTypeI64, nil
		case "f32":
			p.next()
			return ast.ValueTypeF32, nil
		case "f64":
			p.next()
			return ast.ValueTypeF64, nil
		case "v128", "funcref", "externref":
			return 0, errAtf(t.span, "unsupported value type: %s", p.bytes(t))
		}
	}
	return 0, errAtf(t.span, "expected a value type, but found %s", p.describe(t))
}

// parseGlobalType parses "valtype" or "(mut valtype)".
func (p *parser) parseGlobalType() (ast.GlobalType, *ParseError) {
	var gt ast.GlobalType
	if p.peekLParen() && p.peek2Keyword(kwMut) {
		err := p.parens(func() *ParseError {
			p.next() // mut
			gt.Mutable = true
			var verr *ParseError
			gt.ValType, verr = p.expectValType()
			return verr
		})
		return gt, err
	}
	var err *ParseError
	gt.ValType, err = p.expectValType()
	return gt, err
}
