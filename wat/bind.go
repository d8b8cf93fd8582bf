package wat

import (
	"github.com/wasmkit/watc/ast"
)

// Bind resolves every module-level symbolic index to its ordinal and interns
// inline function signatures into the type index space, appending synthesized
// type definitions to the module. On return every ast.Index reachable from
// the module is numeric, which the encoder requires.
//
// Label and local names are lexically scoped and were already resolved during
// parsing; Bind handles the seven module-level index spaces.
func Bind(m *ast.Module) error {
	b := &binder{m: m}
	if err := b.populate(); err != nil {
		return err
	}
	if err := b.resolveAll(); err != nil {
		return err
	}
	return nil
}

// namespace is one index space: the mapping from "$name" to ordinal plus the
// running total of definitions, named or not.
type namespace struct {
	kind  string
	names map[string]uint32
	count uint32
}

// register assigns the next ordinal, recording the name when one was given.
func (ns *namespace) register(name string, span ast.Span) *ParseError {
	if name != "" {
		if ns.names == nil {
			ns.names = map[string]uint32{}
		}
		if _, dup := ns.names[name]; dup {
			return errAtf(span, "duplicate %s name: $%s", ns.kind, name)
		}
		ns.names[name] = ns.count
	}
	ns.count++
	return nil
}

// resolve rewrites a symbolic index in place to its ordinal.
func (ns *namespace) resolve(idx *ast.Index) *ParseError {
	if idx == nil || idx.Resolved() {
		return nil
	}
	n, ok := ns.names[idx.ID]
	if !ok {
		return errAtf(idx.Span, "unknown %s: $%s", ns.kind, idx.ID)
	}
	*idx = ast.Index{Numeric: n, Span: idx.Span}
	return nil
}

type binder struct {
	m *ast.Module

	types, funcs, tables, memories, globals, elems, datas namespace

	// typeDefs are the function signatures in type index space order,
	// including ones synthesized while interning inline signatures.
	typeDefs []*ast.FuncType
	// defined tracks, per import-capable namespace, whether a non-import
	// definition was seen; the binary format cannot represent an import
	// following one.
	defined map[*namespace]bool
}

// populate walks the fields once, assigning ordinals in source order so
// forward references resolve.
func (b *binder) populate() *ParseError {
	b.types = namespace{kind: "type"}
	b.funcs = namespace{kind: "function"}
	b.tables = namespace{kind: "table"}
	b.memories = namespace{kind: "memory"}
	b.globals = namespace{kind: "global"}
	b.elems = namespace{kind: "element segment"}
	b.datas = namespace{kind: "data segment"}
	b.defined = map[*namespace]bool{}

	for _, field := range b.m.Fields {
		switch f := field.(type) {
		case *ast.TypeDef:
			if err := b.types.register(f.Name, f.Span); err != nil {
				return err
			}
			b.typeDefs = append(b.typeDefs, f.Func)
		case *ast.Import:
			ns := b.namespaceFor(f.Desc)
			if err := b.checkImportOrder(ns, f.Span); err != nil {
				return err
			}
			if err := ns.register(f.Desc.DescName(), f.Span); err != nil {
				return err
			}
		case *ast.Func:
			if err := b.registerMaybeImport(&b.funcs, f.Import != nil, f.Name, f.Span); err != nil {
				return err
			}
		case *ast.Table:
			_, imported := f.Kind.(*ast.TableKindImport)
			if err := b.registerMaybeImport(&b.tables, imported, f.Name, f.Span); err != nil {
				return err
			}
		case *ast.Memory:
			_, imported := f.Kind.(*ast.MemoryKindImport)
			if err := b.registerMaybeImport(&b.memories, imported, f.Name, f.Span); err != nil {
				return err
			}
		case *ast.Global:
			_, imported := f.Kind.(*ast.GlobalKindImport)
			if err := b.registerMaybeImport(&b.globals, imported, f.Name, f.Span); err != nil {
				return err
			}
		case *ast.Elem:
			if err := b.elems.register(f.Name, f.Span); err != nil {
				return err
			}
		case *ast.Data:
			if err := b.datas.register(f.Name, f.Span); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *binder) namespaceFor(desc ast.ImportDesc) *namespace {
	switch desc.(type) {
	case *ast.ImportFunc:
		return &b.funcs
	case *ast.ImportTable:
		return &b.tables
	case *ast.ImportMemory:
		return &b.memories
	default:
		return &b.globals
	}
}

// checkImportOrder rejects an import that appears after a definition of the
// same kind, which the binary section layout cannot express.
func (b *binder) checkImportOrder(ns *namespace, span ast.Span) *ParseError {
	if b.defined[ns] {
		return errAtf(span, "%s import after %s definition", ns.kind, ns.kind)
	}
	return nil
}

func (b *binder) registerMaybeImport(ns *namespace, imported bool, name string, span ast.Span) *ParseError {
	if imported {
		if err := b.checkImportOrder(ns, span); err != nil {
			return err
		}
	} else {
		b.defined[ns] = true
	}
	return ns.register(name, span)
}

// resolveAll rewrites symbolic references field by field.
func (b *binder) resolveAll() *ParseError {
	for _, field := range b.m.Fields {
		var err *ParseError
		switch f := field.(type) {
		case *ast.Import:
			if d, ok := f.Desc.(*ast.ImportFunc); ok {
				err = b.internTypeUse(&d.Type)
			}
		case *ast.Func:
			if err = b.internTypeUse(&f.Type); err != nil {
				break
			}
			err = b.resolveInstrs(f.Body)
		case *ast.Table:
			if k, ok := f.Kind.(*ast.TableKindInline); ok {
				err = b.resolvePayload(k.Payload)
			}
		case *ast.Global:
			if k, ok := f.Kind.(*ast.GlobalKindNormal); ok {
				err = b.resolveInstrs(k.Init.Instrs)
			}
		case *ast.Export:
			err = b.exportNamespace(f.Kind).resolve(&f.Index)
		case *ast.Start:
			err = b.funcs.resolve(&f.Index)
		case *ast.Elem:
			if k, ok := f.Kind.(*ast.ElemKindActive); ok {
				if err = b.tables.resolve(&k.Table); err != nil {
					break
				}
				if err = b.resolveInstrs(k.Offset.Instrs); err != nil {
					break
				}
			}
			err = b.resolvePayload(f.Payload)
		case *ast.Data:
			if k, ok := f.Kind.(*ast.DataKindActive); ok {
				if err = b.memories.resolve(&k.Memory); err != nil {
					break
				}
				err = b.resolveInstrs(k.Offset.Instrs)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *binder) exportNamespace(kind ast.ExternType) *namespace {
	switch kind {
	case ast.ExternTypeFunc:
		return &b.funcs
	case ast.ExternTypeTable:
		return &b.tables
	case ast.ExternTypeMemory:
		return &b.memories
	default:
		return &b.globals
	}
}

func (b *binder) resolvePayload(p ast.ElemPayload) *ParseError {
	switch pl := p.(type) {
	case *ast.ElemPayloadIndices:
		for i := range pl.Indices {
			if err := b.funcs.resolve(&pl.Indices[i]); err != nil {
				return err
			}
		}
	case *ast.ElemPayloadExprs:
		for _, idx := range pl.Exprs {
			if err := b.funcs.resolve(idx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *binder) resolveInstrs(instrs []ast.Instruction) *ParseError {
	for i := range instrs {
		in := &instrs[i]
		var err *ParseError
		switch in.Opcode {
		case ast.OpcodeCall, ast.OpcodeRefFunc:
			err = b.funcs.resolve(in.Idx)
		case ast.OpcodeGlobalGet, ast.OpcodeGlobalSet:
			err = b.globals.resolve(in.Idx)
		case ast.OpcodeTableGet, ast.OpcodeTableSet:
			err = b.tables.resolve(in.Idx)
		case ast.OpcodeCallIndirect:
			if err = b.types.resolve(in.Idx); err != nil {
				break
			}
			err = b.tables.resolve(in.Idx2)
		case ast.OpcodeMiscPrefix:
			err = b.resolveMisc(in)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *binder) resolveMisc(in *ast.Instruction) *ParseError {
	switch in.Misc {
	case ast.MiscTableSize, ast.MiscTableGrow, ast.MiscTableFill:
		return b.tables.resolve(in.Idx)
	case ast.MiscTableInit:
		if err := b.elems.resolve(in.Idx); err != nil {
			return err
		}
		return b.tables.resolve(in.Idx2)
	case ast.MiscTableCopy:
		if err := b.tables.resolve(in.Idx); err != nil {
			return err
		}
		return b.tables.resolve(in.Idx2)
	case ast.MiscElemDrop:
		return b.elems.resolve(in.Idx)
	case ast.MiscMemoryInit, ast.MiscDataDrop:
		return b.datas.resolve(in.Idx)
	}
	return nil
}

// internTypeUse resolves a type use to a concrete type index. An inline
// signature reuses an existing identical type definition or appends a new
// one; an explicit "(type $t)" with an inline signature must agree with the
// definition it references.
func (b *binder) internTypeUse(tu *ast.TypeUse) *ParseError {
	if tu.Index != nil {
		if err := b.types.resolve(tu.Index); err != nil {
			return err
		}
		n := tu.Index.Numeric
		if int(n) >= len(b.typeDefs) {
			return errAtf(tu.Index.Span, "type index out of range: %d", n)
		}
		if tu.Type != nil && len(tu.Type.Params)+len(tu.Type.Results) > 0 &&
			!tu.Type.Equal(b.typeDefs[n]) {
			return errAt(tu.Index.Span, "inline signature disagrees with type definition")
		}
		return nil
	}

	sig := tu.Type
	if sig == nil {
		sig = &ast.FuncType{}
	}
	for i, ft := range b.typeDefs {
		if ft.Equal(sig) {
			tu.Index = &ast.Index{Numeric: uint32(i)}
			return nil
		}
	}
	n := uint32(len(b.typeDefs))
	b.typeDefs = append(b.typeDefs, sig)
	b.m.Fields = append(b.m.Fields, &ast.TypeDef{Func: sig})
	b.types.count++
	tu.Index = &ast.Index{Numeric: n}
	return nil
}
