package binary

import (
	"github.com/wasmkit/watc/ast"
	"github.com/wasmkit/watc/leb128"
)

func (e *moduleEncoder) appendTypeSection(out []byte) ([]byte, error) {
	if len(e.types) == 0 {
		return out, nil
	}
	var contents []byte
	for _, ft := range e.types {
		contents = append(contents, 0x60) // functype
		contents = append(contents, leb128.EncodeUint32(uint32(len(ft.Params)))...)
		contents = append(contents, ft.Params...)
		contents = append(contents, leb128.EncodeUint32(uint32(len(ft.Results)))...)
		contents = append(contents, ft.Results...)
	}
	return section(out, sectionType, vec(len(e.types), contents)), nil
}

func (e *moduleEncoder) appendImportSection(out []byte) ([]byte, error) {
	if len(e.imports) == 0 {
		return out, nil
	}
	var contents []byte
	for _, imp := range e.imports {
		contents = appendName(contents, imp.module)
		contents = appendName(contents, imp.name)
		contents = append(contents, imp.kind)
		switch imp.kind {
		case ast.ExternTypeFunc:
			contents = append(contents, leb128.EncodeUint32(imp.typeIdx)...)
		case ast.ExternTypeTable:
			contents = appendTableType(contents, imp.table)
		case ast.ExternTypeMemory:
			contents = appendLimits(contents, imp.mem)
		case ast.ExternTypeGlobal:
			contents = append(contents, imp.global.ValType, mutFlag(imp.global.Mutable))
		}
	}
	return section(out, sectionImport, vec(len(e.imports), contents)), nil
}

func (e *moduleEncoder) appendFunctionSection(out []byte) ([]byte, error) {
	if len(e.funcs) == 0 {
		return out, nil
	}
	var contents []byte
	for _, f := range e.funcs {
		typeIdx, err := idxOf(f.Type.Index)
		if err != nil {
			return nil, err
		}
		contents = append(contents, leb128.EncodeUint32(typeIdx)...)
	}
	return section(out, sectionFunction, vec(len(e.funcs), contents)), nil
}

func (e *moduleEncoder) appendTableSection(out []byte) []byte {
	if len(e.tables) == 0 {
		return out
	}
	var contents []byte
	for _, tt := range e.tables {
		contents = appendTableType(contents, tt)
	}
	return section(out, sectionTable, vec(len(e.tables), contents))
}

func (e *moduleEncoder) appendMemorySection(out []byte) []byte {
	if len(e.mems) == 0 {
		return out
	}
	var contents []byte
	for _, lim := range e.mems {
		contents = appendLimits(contents, lim)
	}
	return section(out, sectionMemory, vec(len(e.mems), contents))
}

func (e *moduleEncoder) appendGlobalSection(out []byte) ([]byte, error) {
	if len(e.globals) == 0 {
		return out, nil
	}
	var contents []byte
	for _, g := range e.globals {
		contents = append(contents, g.Type.ValType, mutFlag(g.Type.Mutable))
		var err error
		if contents, err = appendConstExpr(contents, g.Init.Instrs); err != nil {
			return nil, err
		}
	}
	return section(out, sectionGlobal, vec(len(e.globals), contents)), nil
}

func (e *moduleEncoder) appendExportSection(out []byte) ([]byte, error) {
	if len(e.exports) == 0 {
		return out, nil
	}
	var contents []byte
	for _, exp := range e.exports {
		contents = appendName(contents, exp.name)
		contents = append(contents, exp.kind)
		contents = append(contents, leb128.EncodeUint32(exp.idx)...)
	}
	return section(out, sectionExport, vec(len(e.exports), contents)), nil
}

func (e *moduleEncoder) appendStartSection(out []byte) ([]byte, error) {
	if e.start == nil {
		return out, nil
	}
	idx, err := idxOf(e.start)
	if err != nil {
		return nil, err
	}
	return section(out, sectionStart, leb128.EncodeUint32(idx)), nil
}

// appendDataCountSection emits section 12 only when some function uses
// memory.init or data.drop: those instructions validate against the segment
// count before the data section has been read.
func (e *moduleEncoder) appendDataCountSection(out []byte) []byte {
	if !e.needsDataCount() {
		return out
	}
	return section(out, sectionDataCount, leb128.EncodeUint32(uint32(len(e.datas))))
}

func (e *moduleEncoder) needsDataCount() bool {
	for _, f := range e.funcs {
		for i := range f.Body {
			in := &f.Body[i]
			if in.Opcode != ast.OpcodeMiscPrefix {
				continue
			}
			if in.Misc == ast.MiscMemoryInit || in.Misc == ast.MiscDataDrop {
				return true
			}
		}
	}
	return false
}

func (e *moduleEncoder) appendCodeSection(out []byte) ([]byte, error) {
	if len(e.funcs) == 0 {
		return out, nil
	}
	var contents []byte
	for _, f := range e.funcs {
		body, err := encodeFuncBody(f)
		if err != nil {
			return nil, err
		}
		contents = append(contents, leb128.EncodeUint32(uint32(len(body)))...)
		contents = append(contents, body...)
	}
	return section(out, sectionCode, vec(len(e.funcs), contents)), nil
}

// encodeFuncBody encodes the locals declaration followed by the instruction
// sequence and its terminating end. Adjacent locals of one type compress into
// a single run.
func encodeFuncBody(f *ast.Func) ([]byte, error) {
	type localRun struct {
		count uint32
		typ   ast.ValueType
	}
	var runs []localRun
	for _, l := range f.Locals {
		if n := len(runs); n > 0 && runs[n-1].typ == l.Type {
			runs[n-1].count++
			continue
		}
		runs = append(runs, localRun{1, l.Type})
	}

	body := leb128.EncodeUint32(uint32(len(runs)))
	for _, r := range runs {
		body = append(body, leb128.EncodeUint32(r.count)...)
		body = append(body, r.typ)
	}
	var err error
	for i := range f.Body {
		if body, err = appendInstr(body, &f.Body[i]); err != nil {
			return nil, err
		}
	}
	return append(body, ast.OpcodeEnd), nil
}

func (e *moduleEncoder) appendDataSection(out []byte) ([]byte, error) {
	if len(e.datas) == 0 {
		return out, nil
	}
	var contents []byte
	for _, seg := range e.datas {
		var err error
		switch {
		case !seg.active:
			contents = append(contents, 0x01)
		case seg.memory == 0:
			contents = append(contents, 0x00)
			if contents, err = appendConstExpr(contents, seg.offset); err != nil {
				return nil, err
			}
		default:
			contents = append(contents, 0x02)
			contents = append(contents, leb128.EncodeUint32(seg.memory)...)
			if contents, err = appendConstExpr(contents, seg.offset); err != nil {
				return nil, err
			}
		}
		contents = append(contents, leb128.EncodeUint32(uint32(len(seg.bytes)))...)
		contents = append(contents, seg.bytes...)
	}
	return section(out, sectionData, vec(len(e.datas), contents)), nil
}

func appendTableType(out []byte, tt ast.TableType) []byte {
	out = append(out, tt.ElemType)
	return appendLimits(out, tt.Limits)
}

func appendLimits(out []byte, l ast.Limits) []byte {
	if l.Max == nil {
		out = append(out, 0x00)
		return append(out, leb128.EncodeUint32(l.Min)...)
	}
	out = append(out, 0x01)
	out = append(out, leb128.EncodeUint32(l.Min)...)
	return append(out, leb128.EncodeUint32(*l.Max)...)
}

func mutFlag(mutable bool) byte {
	if mutable {
		return 0x01
	}
	return 0x00
}
