package binary

import (
	"errors"
	"fmt"

	"github.com/wasmkit/watc/ast"
)

// importEntry is one import section entry, already flattened from either a
// standalone "(import ...)" field or an inline-import abbreviation.
type importEntry struct {
	module, name string
	kind         ast.ExternType

	typeIdx uint32        // kind == func
	table   ast.TableType // kind == table
	mem     ast.Limits    // kind == memory
	global  ast.GlobalType
}

type exportEntry struct {
	name string
	kind ast.ExternType
	idx  uint32
}

// elemSeg is a normalized element segment: explicit element segments and the
// one synthesized for each inline-payload table both land here.
type elemSeg struct {
	active bool
	table  uint32
	offset []ast.Instruction

	// indices is the plain function-index payload. When isExprs is true the
	// payload is exprs instead, nil entries meaning a null reference.
	indices []ast.Index
	isExprs bool
	exprs   []*ast.Index
	refType ast.RefType
}

type dataSeg struct {
	active bool
	memory uint32
	offset []ast.Instruction
	bytes  []byte
}

type nameAssoc struct {
	idx  uint32
	name string
}

// moduleEncoder holds the module contents bucketed by binary section.
type moduleEncoder struct {
	moduleName string

	types   []*ast.FuncType
	imports []importEntry
	funcs   []*ast.Func // non-import definitions only
	tables  []ast.TableType
	mems    []ast.Limits
	globals []*ast.GlobalKindNormal
	exports []exportEntry
	start   *ast.Index
	elems   []elemSeg
	datas   []dataSeg

	funcNames  []nameAssoc
	localNames []localNameAssoc
}

type localNameAssoc struct {
	funcIdx uint32
	locals  []nameAssoc
}

// bucket distributes module fields into binary sections. Fields are visited
// in source order, so per-kind ordinals assigned here agree with the ones the
// binding pass resolved names against.
func (e *moduleEncoder) bucket(m *ast.Module) error {
	e.moduleName = m.Name

	// Running index per space, advanced by imports and definitions alike.
	var nFuncs, nTables, nMems, nGlobals uint32

	for _, field := range m.Fields {
		switch f := field.(type) {
		case *ast.TypeDef:
			e.types = append(e.types, f.Func)

		case *ast.Import:
			if err := e.bucketImport(f, &nFuncs, &nTables, &nMems, &nGlobals); err != nil {
				return err
			}

		case *ast.Func:
			idx := nFuncs
			nFuncs++
			if f.Name != "" {
				e.funcNames = append(e.funcNames, nameAssoc{idx, f.Name})
			}
			e.bucketLocalNames(idx, f)
			e.addExports(f.Exports, ast.ExternTypeFunc, idx)
			if f.Import != nil {
				typeIdx, err := idxOf(f.Type.Index)
				if err != nil {
					return err
				}
				e.imports = append(e.imports, importEntry{
					module: f.Import.Module, name: f.Import.Name,
					kind: ast.ExternTypeFunc, typeIdx: typeIdx,
				})
				continue
			}
			e.funcs = append(e.funcs, f)

		case *ast.Table:
			idx := nTables
			nTables++
			e.addExports(f.Exports, ast.ExternTypeTable, idx)
			switch k := f.Kind.(type) {
			case *ast.TableKindImport:
				e.imports = append(e.imports, importEntry{
					module: k.Import.Module, name: k.Import.Name,
					kind: ast.ExternTypeTable, table: k.Type,
				})
			case *ast.TableKindNormal:
				e.tables = append(e.tables, k.Type)
			case *ast.TableKindInline:
				// The payload length fixes the table size, and the contents
				// become an active segment at offset zero.
				n := uint32(payloadLen(k.Payload))
				max := n
				e.tables = append(e.tables, ast.TableType{
					ElemType: k.ElemType,
					Limits:   ast.Limits{Min: n, Max: &max},
				})
				seg := elemSeg{
					active: true,
					table:  idx,
					offset: []ast.Instruction{{Opcode: ast.OpcodeI32Const}},
				}
				seg.setPayload(k.Payload, k.ElemType)
				e.elems = append(e.elems, seg)
			}

		case *ast.Memory:
			idx := nMems
			nMems++
			e.addExports(f.Exports, ast.ExternTypeMemory, idx)
			switch k := f.Kind.(type) {
			case *ast.MemoryKindImport:
				e.imports = append(e.imports, importEntry{
					module: k.Import.Module, name: k.Import.Name,
					kind: ast.ExternTypeMemory, mem: k.Type,
				})
			case *ast.MemoryKindNormal:
				e.mems = append(e.mems, k.Type)
			case *ast.MemoryKindInline:
				pages := uint32((len(k.Data) + memoryPageSize - 1) / memoryPageSize)
				max := pages
				e.mems = append(e.mems, ast.Limits{Min: pages, Max: &max})
				e.datas = append(e.datas, dataSeg{
					active: true,
					memory: idx,
					offset: []ast.Instruction{{Opcode: ast.OpcodeI32Const}},
					bytes:  k.Data,
				})
			}

		case *ast.Global:
			idx := nGlobals
			nGlobals++
			e.addExports(f.Exports, ast.ExternTypeGlobal, idx)
			switch k := f.Kind.(type) {
			case *ast.GlobalKindImport:
				e.imports = append(e.imports, importEntry{
					module: k.Import.Module, name: k.Import.Name,
					kind: ast.ExternTypeGlobal, global: k.Type,
				})
			case *ast.GlobalKindNormal:
				e.globals = append(e.globals, k)
			}

		case *ast.Export:
			idx, err := idxOf(&f.Index)
			if err != nil {
				return err
			}
			e.exports = append(e.exports, exportEntry{f.Name, f.Kind, idx})

		case *ast.Start:
			if e.start != nil {
				return errors.New("encode: multiple start functions")
			}
			idx := f.Index
			e.start = &idx

		case *ast.Elem:
			seg := elemSeg{}
			if k, ok := f.Kind.(*ast.ElemKindActive); ok {
				table, err := idxOf(&k.Table)
				if err != nil {
					return err
				}
				seg.active = true
				seg.table = table
				seg.offset = k.Offset.Instrs
			}
			seg.setPayload(f.Payload, ast.RefTypeFuncref)
			e.elems = append(e.elems, seg)

		case *ast.Data:
			seg := dataSeg{bytes: f.Bytes}
			if k, ok := f.Kind.(*ast.DataKindActive); ok {
				memory, err := idxOf(&k.Memory)
				if err != nil {
					return err
				}
				seg.active = true
				seg.memory = memory
				seg.offset = k.Offset.Instrs
			}
			e.datas = append(e.datas, seg)

		default:
			return fmt.Errorf("encode: unhandled module field %T", field)
		}
	}
	return nil
}

const memoryPageSize = 65536

func (e *moduleEncoder) bucketImport(f *ast.Import, nFuncs, nTables, nMems, nGlobals *uint32) error {
	entry := importEntry{module: f.Module, name: f.Name}
	switch d := f.Desc.(type) {
	case *ast.ImportFunc:
		typeIdx, err := idxOf(d.Type.Index)
		if err != nil {
			return err
		}
		entry.kind = ast.ExternTypeFunc
		entry.typeIdx = typeIdx
		if d.Name != "" {
			e.funcNames = append(e.funcNames, nameAssoc{*nFuncs, d.Name})
		}
		*nFuncs++
	case *ast.ImportTable:
		entry.kind = ast.ExternTypeTable
		entry.table = d.Type
		*nTables++
	case *ast.ImportMemory:
		entry.kind = ast.ExternTypeMemory
		entry.mem = d.Type
		*nMems++
	case *ast.ImportGlobal:
		entry.kind = ast.ExternTypeGlobal
		entry.global = d.Type
		*nGlobals++
	}
	e.imports = append(e.imports, entry)
	return nil
}

func (e *moduleEncoder) addExports(names []string, kind ast.ExternType, idx uint32) {
	for _, name := range names {
		e.exports = append(e.exports, exportEntry{name, kind, idx})
	}
}

func (e *moduleEncoder) bucketLocalNames(funcIdx uint32, f *ast.Func) {
	var locals []nameAssoc
	for i, name := range f.Type.ParamNames {
		if name != "" {
			locals = append(locals, nameAssoc{uint32(i), name})
		}
	}
	base := uint32(len(f.Type.ParamNames))
	for i, l := range f.Locals {
		if l.Name != "" {
			locals = append(locals, nameAssoc{base + uint32(i), l.Name})
		}
	}
	if locals != nil {
		e.localNames = append(e.localNames, localNameAssoc{funcIdx, locals})
	}
}

func (s *elemSeg) setPayload(p ast.ElemPayload, defaultType ast.RefType) {
	switch pl := p.(type) {
	case *ast.ElemPayloadIndices:
		s.indices = pl.Indices
		if s.indices == nil {
			s.indices = []ast.Index{}
		}
	case *ast.ElemPayloadExprs:
		s.isExprs = true
		s.exprs = pl.Exprs
		s.refType = pl.Type
		if s.refType == 0 {
			s.refType = defaultType
		}
	}
}

func payloadLen(p ast.ElemPayload) int {
	switch pl := p.(type) {
	case *ast.ElemPayloadIndices:
		return len(pl.Indices)
	case *ast.ElemPayloadExprs:
		return len(pl.Exprs)
	}
	return 0
}
