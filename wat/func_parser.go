package wat

import (
	"strings"

	"github.com/wasmkit/watc/ast"
)

// parseFuncSignature parses zero or more "(param ...)" groups followed by
// zero or more "(result ...)" groups. The returned names are
// index-coordinated with the params; entries are empty for unnamed params.
func (p *parser) parseFuncSignature() (*ast.FuncType, []string, *ParseError) {
	ft := &ast.FuncType{}
	var names []string
	for p.peekLParen() && p.peek2Keyword(kwParam) {
		err := p.parens(func() *ParseError {
			p.next() // param
			if p.peekKind(tokenID) {
				// A named param declares exactly one value.
				name := p.maybeName()
				vt, verr := p.expectValType()
				if verr != nil {
					return verr
				}
				ft.Params = append(ft.Params, vt)
				names = append(names, name)
				return nil
			}
			for !p.done() {
				vt, verr := p.expectValType()
				if verr != nil {
					return verr
				}
				ft.Params = append(ft.Params, vt)
				names = append(names, "")
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	for p.peekLParen() && p.peek2Keyword(kwResult) {
		err := p.parens(func() *ParseError {
			p.next() // result
			for !p.done() {
				vt, verr := p.expectValType()
				if verr != nil {
					return verr
				}
				ft.Results = append(ft.Results, vt)
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return ft, names, nil
}

// parseTypeUse parses "(type idx)?" plus any inline "(param)(result)"
// signature. When neither is present the use denotes the empty signature.
func (p *parser) parseTypeUse() (ast.TypeUse, *ParseError) {
	var tu ast.TypeUse
	if p.peekLParen() && p.peek2Keyword(kwType) {
		err := p.parens(func() *ParseError {
			p.next() // type
			idx, ierr := p.expectIndex("type")
			if ierr != nil {
				return ierr
			}
			tu.Index = &idx
			return nil
		})
		if err != nil {
			return tu, err
		}
	}
	inline := p.peekLParen() && (p.peek2Keyword(kwParam) || p.peek2Keyword(kwResult))
	if inline || tu.Index == nil {
		ft, names, err := p.parseFuncSignature()
		if err != nil {
			return tu, err
		}
		tu.Type = ft
		tu.ParamNames = names
	}
	return tu, nil
}

// parseFunc parses the interior of "(func ...)".
func (p *parser) parseFunc() (*ast.Func, *ParseError) {
	f := &ast.Func{Span: p.tok().span}
	p.next() // func
	f.Name = p.maybeName()
	var err *ParseError
	if f.Exports, err = p.parseInlineExports(); err != nil {
		return nil, err
	}

	if p.peekLParen() && p.peek2Keyword(kwImport) {
		imp, ierr := p.parseInlineImport()
		if ierr != nil {
			return nil, ierr
		}
		f.Import = &imp
	}

	if f.Type, err = p.parseTypeUse(); err != nil {
		return nil, err
	}
	if f.Import != nil {
		// The enclosing parens call rejects any trailing body tokens.
		return f, nil
	}

	// Locals; names resolve within this function only.
	locals := append([]string{}, f.Type.ParamNames...)
	for p.peekLParen() && p.peek2Keyword(kwLocal) {
		lerr := p.parens(func() *ParseError {
			p.next() // local
			if p.peekKind(tokenID) {
				name := p.maybeName()
				vt, verr := p.expectValType()
				if verr != nil {
					return verr
				}
				f.Locals = append(f.Locals, ast.Local{Name: name, Type: vt})
				locals = append(locals, name)
				return nil
			}
			for !p.done() {
				vt, verr := p.expectValType()
				if verr != nil {
					return verr
				}
				f.Locals = append(f.Locals, ast.Local{Type: vt})
				locals = append(locals, "")
			}
			return nil
		})
		if lerr != nil {
			return nil, lerr
		}
	}

	c := &codeParser{p: p, locals: locals}
	if err = c.parseBody(&f.Body); err != nil {
		return nil, err
	}
	return f, nil
}

// parseExpression parses a constant expression: folded or plain instructions
// running to the end of the enclosing group.
func (p *parser) parseExpression() (ast.Expression, *ParseError) {
	return p.parseExpressionTail()
}

func (p *parser) parseExpressionTail() (ast.Expression, *ParseError) {
	expr := ast.Expression{Span: p.tok().span}
	c := &codeParser{p: p}
	if err := c.parseBody(&expr.Instrs); err != nil {
		return expr, err
	}
	return expr, nil
}

// parseBody parses instructions to the end of the enclosing group and
// verifies every plain block was closed by a matching "end".
func (c *codeParser) parseBody(out *[]ast.Instruction) *ParseError {
	if err := c.parseInstrs(out); err != nil {
		return err
	}
	return c.checkClosed(0)
}

// codeParser parses instruction sequences. Label and local names are
// lexically scoped, so they resolve here rather than in the binding pass.
type codeParser struct {
	p *parser
	// locals are the param names followed by local names of the enclosing
	// function; empty entries are unnamed.
	locals []string
	// labels of enclosing blocks, innermost last.
	labels []blockLabel
}

// blockLabel is one enclosing block: its optional label name, the opcode
// that opened it, and whether the folded form opened it. A plain "end" may
// only close a plain block; folded blocks close with their group.
type blockLabel struct {
	name   string
	op     ast.Opcode
	folded bool
}

// parseInstrs parses plain and folded instructions until the current group
// (or the input) ends.
func (c *codeParser) parseInstrs(out *[]ast.Instruction) *ParseError {
	for !c.p.done() {
		if c.p.peekLParen() {
			if err := c.parseFolded(out); err != nil {
				return err
			}
			continue
		}
		if err := c.parsePlain(out); err != nil {
			return err
		}
	}
	return nil
}

// parsePlain parses one instruction in linear form.
func (c *codeParser) parsePlain(out *[]ast.Instruction) *ParseError {
	t := c.p.tok()
	if t.kind != tokenKeyword {
		return errAtf(t.span, "expected an instruction, but found %s", c.p.describe(t))
	}
	switch string(c.p.bytes(t)) {
	case "block", "loop", "if":
		return c.parsePlainBlock(out, false)
	case "else":
		if n := len(c.labels); n == 0 || c.labels[n-1].op != ast.OpcodeIf || c.labels[n-1].folded {
			return errAt(t.span, "mismatched else")
		}
		c.p.next()
		c.p.maybeName() // an optional label repeat, checked nowhere
		*out = append(*out, ast.Instruction{Span: t.span, Name: "else", Opcode: ast.OpcodeElse})
		return nil
	case "end":
		if n := len(c.labels); n == 0 || c.labels[n-1].folded {
			return errAt(t.span, "mismatched end")
		}
		c.p.next()
		c.p.maybeName()
		c.labels = c.labels[:len(c.labels)-1]
		*out = append(*out, ast.Instruction{Span: t.span, Name: "end", Opcode: ast.OpcodeEnd})
		return nil
	}
	in, err := c.parseInstr()
	if err != nil {
		return err
	}
	*out = append(*out, in)
	return nil
}

// parsePlainBlock parses "block|loop|if label? blocktype?". In linear form
// the matching "end" pops the label; the folded forms pop it themselves when
// their group closes.
func (c *codeParser) parsePlainBlock(out *[]ast.Instruction, folded bool) *ParseError {
	t := c.p.next()
	name := string(c.p.bytes(t))
	var op ast.Opcode
	switch name {
	case "block":
		op = ast.OpcodeBlock
	case "loop":
		op = ast.OpcodeLoop
	default:
		op = ast.OpcodeIf
	}
	label := c.p.maybeName()
	bt, err := c.parseBlockType()
	if err != nil {
		return err
	}
	c.labels = append(c.labels, blockLabel{name: label, op: op, folded: folded})
	*out = append(*out, ast.Instruction{Span: t.span, Name: name, Opcode: op, Block: bt})
	return nil
}

// checkClosed fails unless every block opened past depth has been closed by
// a matching "end".
func (c *codeParser) checkClosed(depth int) *ParseError {
	if len(c.labels) == depth {
		return nil
	}
	t := c.p.tok()
	return errAtf(t.span, "expected 'end', but found %s", c.p.describe(t))
}

// parseFolded parses one parenthesized instruction, emitting folded operands
// before the instruction itself.
func (c *codeParser) parseFolded(out *[]ast.Instruction) *ParseError {
	return c.p.parens(func() *ParseError {
		t := c.p.tok()
		if t.kind != tokenKeyword {
			return errAtf(t.span, "expected an instruction, but found %s", c.p.describe(t))
		}
		switch string(c.p.bytes(t)) {
		case "block", "loop":
			if err := c.parsePlainBlock(out, true); err != nil {
				return err
			}
			depth := len(c.labels)
			if err := c.parseInstrs(out); err != nil {
				return err
			}
			if err := c.checkClosed(depth); err != nil {
				return err
			}
			c.labels = c.labels[:depth-1]
			*out = append(*out, ast.Instruction{Span: t.span, Name: "end", Opcode: ast.OpcodeEnd})
			return nil
		case "if":
			return c.parseFoldedIf(out)
		}

		in, err := c.parseInstr()
		if err != nil {
			return err
		}
		// Folded operands evaluate before the instruction consuming them.
		for !c.p.done() {
			if !c.p.peekLParen() {
				u := c.p.tok()
				return errAtf(u.span, "expected a folded operand, but found %s", c.p.describe(u))
			}
			if err := c.parseFolded(out); err != nil {
				return err
			}
		}
		*out = append(*out, in)
		return nil
	})
}

// parseFoldedIf parses "(if label? blocktype? cond* (then ...) (else ...)?)".
// The condition instructions emit before the if opcode.
func (c *codeParser) parseFoldedIf(out *[]ast.Instruction) *ParseError {
	t := c.p.next() // if
	label := c.p.maybeName()
	bt, err := c.parseBlockType()
	if err != nil {
		return err
	}

	for c.p.peekLParen() && !c.p.peek2Keyword(kwThen) {
		if err := c.parseFolded(out); err != nil {
			return err
		}
	}

	*out = append(*out, ast.Instruction{Span: t.span, Name: "if", Opcode: ast.OpcodeIf, Block: bt})
	c.labels = append(c.labels, blockLabel{name: label, op: ast.OpcodeIf, folded: true})
	depth := len(c.labels)

	err = c.p.parens(func() *ParseError {
		if _, kerr := c.p.expectKeyword(kwThen, "then"); kerr != nil {
			return kerr
		}
		if terr := c.parseInstrs(out); terr != nil {
			return terr
		}
		return c.checkClosed(depth)
	})
	if err != nil {
		return err
	}

	if c.p.peekLParen() && c.p.peek2Keyword(kwElse) {
		err = c.p.parens(func() *ParseError {
			et := c.p.next() // else
			*out = append(*out, ast.Instruction{Span: et.span, Name: "else", Opcode: ast.OpcodeElse})
			if eerr := c.parseInstrs(out); eerr != nil {
				return eerr
			}
			return c.checkClosed(depth)
		})
		if err != nil {
			return err
		}
	}

	c.labels = c.labels[:depth-1]
	*out = append(*out, ast.Instruction{Span: t.span, Name: "end", Opcode: ast.OpcodeEnd})
	return nil
}

// parseBlockType parses an optional "(result t)" annotation. Multi-value and
// type-use block types are rejected explicitly.
func (c *codeParser) parseBlockType() (*ast.BlockType, *ParseError) {
	bt := &ast.BlockType{}
	if !c.p.peekLParen() {
		return bt, nil
	}
	switch {
	case c.p.peek2Keyword(kwResult):
		err := c.p.parens(func() *ParseError {
			p := c.p
			p.next() // result
			if p.done() {
				return nil
			}
			vt, verr := p.expectValType()
			if verr != nil {
				return verr
			}
			bt.Result = &vt
			if !p.done() {
				return errAt(p.tok().span, "unsupported construct: multi-value block type")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	case c.p.peek2Keyword(kwParam), c.p.peek2Keyword(kwType):
		return nil, errAt(c.p.at(1).span, "unsupported construct: block type use")
	}
	return bt, nil
}

// parseInstr parses one non-block instruction and its immediates.
func (c *codeParser) parseInstr() (ast.Instruction, *ParseError) {
	t := c.p.tok()
	name := string(c.p.bytes(t))
	def, ok := instrTable[name]
	if !ok {
		if isUnsupportedInstr(name) {
			return ast.Instruction{}, errAtf(t.span, "unsupported instruction: %s", name)
		}
		return ast.Instruction{}, errAtf(t.span, "unknown instruction: %s", name)
	}
	c.p.next()
	in := ast.Instruction{Span: t.span, Name: name, Opcode: def.opcode, Misc: def.misc}

	switch def.imm {
	case immNone:

	case immLabel:
		idx, err := c.label()
		if err != nil {
			return in, err
		}
		in.Idx = &idx

	case immLabelTable:
		var targets []ast.Index
		for c.p.peekIndex() {
			idx, err := c.label()
			if err != nil {
				return in, err
			}
			targets = append(targets, idx)
		}
		if len(targets) == 0 {
			return in, errAtf(c.p.tok().span, "expected a label for %s", name)
		}
		// The last label is the default target.
		dflt := targets[len(targets)-1]
		in.Targets = targets[:len(targets)-1]
		in.Idx = &dflt

	case immFunc, immGlobal, immType:
		idx, err := c.p.expectIndex(name)
		if err != nil {
			return in, err
		}
		in.Idx = &idx

	case immLocal:
		idx, err := c.local(name)
		if err != nil {
			return in, err
		}
		in.Idx = &idx

	case immCallIndirect:
		// Optional table index, then the type use. Inline signatures are
		// not supported here; reference the type by index instead.
		if c.p.peekIndex() {
			idx, err := c.p.expectIndex("table")
			if err != nil {
				return in, err
			}
			in.Idx2 = &idx
		}
		tu, err := c.p.parseTypeUse()
		if err != nil {
			return in, err
		}
		if tu.Index == nil {
			return in, errAt(in.Span, "call_indirect requires (type ...); inline signatures are not supported")
		}
		in.Idx = tu.Index

	case immTable:
		// Optional; index zero is implied.
		if c.p.peekIndex() {
			idx, err := c.p.expectIndex("table")
			if err != nil {
				return in, err
			}
			in.Idx = &idx
		}

	case immTableInit:
		// "table.init t? e": with one index the table defaults to zero.
		first, err := c.p.expectIndex("element segment")
		if err != nil {
			return in, err
		}
		if c.p.peekIndex() {
			second, serr := c.p.expectIndex("element segment")
			if serr != nil {
				return in, serr
			}
			in.Idx2 = &first // table
			in.Idx = &second // segment
		} else {
			in.Idx = &first
		}

	case immElemDrop:
		idx, err := c.p.expectIndex("element segment")
		if err != nil {
			return in, err
		}
		in.Idx = &idx

	case immTableCopy:
		// Optional "dst src" pair; both default to zero.
		if c.p.peekIndex() {
			dst, err := c.p.expectIndex("table")
			if err != nil {
				return in, err
			}
			src, serr := c.p.expectIndex("table")
			if serr != nil {
				return in, serr
			}
			in.Idx = &dst
			in.Idx2 = &src
		}

	case immMemoryInit:
		idx, err := c.p.expectIndex("data segment")
		if err != nil {
			return in, err
		}
		in.Idx = &idx

	case immDataDrop:
		idx, err := c.p.expectIndex("data segment")
		if err != nil {
			return in, err
		}
		in.Idx = &idx

	case immMemarg:
		if err := c.parseMemarg(&in, def.naturalAlign); err != nil {
			return in, err
		}

	case immI32:
		tk := c.p.tok()
		if tk.kind != tokenUN && tk.kind != tokenSN {
			return in, errAtf(tk.span, "expected an i32, but found %s", c.p.describe(tk))
		}
		v, ok := parseInt32(c.p.bytes(tk))
		if !ok {
			return in, errAtf(tk.span, "i32 constant out of range: %s", c.p.bytes(tk))
		}
		c.p.next()
		in.I32 = v

	case immI64:
		tk := c.p.tok()
		if tk.kind != tokenUN && tk.kind != tokenSN {
			return in, errAtf(tk.span, "expected an i64, but found %s", c.p.describe(tk))
		}
		v, ok := parseInt64(c.p.bytes(tk))
		if !ok {
			return in, errAtf(tk.span, "i64 constant out of range: %s", c.p.bytes(tk))
		}
		c.p.next()
		in.I64 = v

	case immF32:
		tk := c.p.tok()
		if tk.kind != tokenUN && tk.kind != tokenSN && tk.kind != tokenFN {
			return in, errAtf(tk.span, "expected an f32, but found %s", c.p.describe(tk))
		}
		bits, ok := parseFloat32Bits(c.p.bytes(tk))
		if !ok {
			return in, errAtf(tk.span, "malformed f32 constant: %s", c.p.bytes(tk))
		}
		c.p.next()
		in.F32 = bits

	case immF64:
		tk := c.p.tok()
		if tk.kind != tokenUN && tk.kind != tokenSN && tk.kind != tokenFN {
			return in, errAtf(tk.span, "expected an f64, but found %s", c.p.describe(tk))
		}
		bits, ok := parseFloat64Bits(c.p.bytes(tk))
		if !ok {
			return in, errAtf(tk.span, "malformed f64 constant: %s", c.p.bytes(tk))
		}
		c.p.next()
		in.F64 = bits

	case immRefNull:
		rt, err := c.p.expectHeapType()
		if err != nil {
			return in, err
		}
		in.RefType = rt
	}
	return in, nil
}

// label consumes a label index, resolving a symbolic name against the
// enclosing blocks: the innermost label is relative depth zero.
func (c *codeParser) label() (ast.Index, *ParseError) {
	idx, err := c.p.expectIndex("label")
	if err != nil {
		return idx, err
	}
	if idx.Resolved() {
		return idx, nil
	}
	for i := len(c.labels) - 1; i >= 0; i-- {
		if c.labels[i].name != "" && c.labels[i].name == idx.ID {
			return ast.Index{Numeric: uint32(len(c.labels) - 1 - i), Span: idx.Span}, nil
		}
	}
	return idx, errAtf(idx.Span, "unknown label: $%s", idx.ID)
}

// local consumes a local index, resolving a symbolic name against the
// enclosing function's params and locals.
func (c *codeParser) local(context string) (ast.Index, *ParseError) {
	idx, err := c.p.expectIndex(context)
	if err != nil {
		return idx, err
	}
	if idx.Resolved() {
		return idx, nil
	}
	for i, name := range c.locals {
		if name != "" && name == idx.ID {
			return ast.Index{Numeric: uint32(i), Span: idx.Span}, nil
		}
	}
	return idx, errAtf(idx.Span, "unknown local: $%s", idx.ID)
}

// parseMemarg parses the optional "offset=N" and "align=N" immediates of a
// load or store. The alignment must be a power of two and is recorded as its
// base-2 logarithm, defaulting to the access width.
func (c *codeParser) parseMemarg(in *ast.Instruction, naturalAlign uint32) *ParseError {
	in.AlignLog2 = log2(naturalAlign)
	if t := c.p.tok(); t.kind == tokenKeyword && strings.HasPrefix(string(c.p.bytes(t)), "offset=") {
		v, ok := parseUint32(c.p.bytes(t)[len("offset="):])
		if !ok {
			return errAtf(t.span, "offset out of range: %s", c.p.bytes(t))
		}
		c.p.next()
		in.Offset = v
	}
	if t := c.p.tok(); t.kind == tokenKeyword && strings.HasPrefix(string(c.p.bytes(t)), "align=") {
		v, ok := parseUint32(c.p.bytes(t)[len("align="):])
		if !ok || v == 0 || v&(v-1) != 0 {
			return errAtf(t.span, "alignment must be a power of two: %s", c.p.bytes(t))
		}
		c.p.next()
		in.AlignLog2 = log2(v)
	}
	return nil
}

func log2(v uint32) (n uint32) {
	for v > 1 {
		v >>= 1
		n++
	}
	return
}

// isUnsupportedInstr reports whether the spelling belongs to a proposal this
// front-end intentionally rejects rather than risks mis-parsing.
func isUnsupportedInstr(name string) bool {
	switch {
	case strings.HasPrefix(name, "v128.") || strings.Contains(name, "x16.") ||
		strings.HasPrefix(name, "i8x16") || strings.HasPrefix(name, "i16x8") ||
		strings.HasPrefix(name, "i32x4") || strings.HasPrefix(name, "i64x2") ||
		strings.HasPrefix(name, "f32x4") || strings.HasPrefix(name, "f64x2"):
		return true // SIMD
	case strings.Contains(name, ".atomic"), name == "memory.atomic.notify":
		return true // threads
	case name == "throw", name == "rethrow", name == "try", name == "catch",
		name == "catch_all", name == "delegate":
		return true // exception handling
	case strings.HasPrefix(name, "struct."), strings.HasPrefix(name, "array."),
		strings.HasPrefix(name, "ref.cast"), strings.HasPrefix(name, "ref.test"):
		return true // GC
	}
	return false
}
