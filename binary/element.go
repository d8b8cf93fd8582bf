package binary

import (
	"github.com/wasmkit/watc/ast"
	"github.com/wasmkit/watc/leb128"
)

// Element segment encodings are selected by a leading flags integer. Bit 0
// clear means active; bit 1 then selects an explicit table index. Bit 2
// selects the expression payload over the function-index payload.
//
// See https://www.w3.org/TR/wasm-core-2/#element-section
const (
	elemFlagPassive     uint32 = 0x01
	elemFlagHasTableIdx uint32 = 0x02
	elemFlagExprs       uint32 = 0x04
)

// elemKindFuncref is the only elemkind defined, written in the segment forms
// that predate typed references.
const elemKindFuncref byte = 0x00

func (e *moduleEncoder) appendElementSection(out []byte) ([]byte, error) {
	if len(e.elems) == 0 {
		return out, nil
	}
	var contents []byte
	for i := range e.elems {
		var err error
		if contents, err = appendElemSeg(contents, &e.elems[i]); err != nil {
			return nil, err
		}
	}
	return section(out, sectionElement, vec(len(e.elems), contents)), nil
}

func appendElemSeg(out []byte, seg *elemSeg) ([]byte, error) {
	var flags uint32
	if !seg.active {
		flags |= elemFlagPassive
	} else if seg.table != 0 {
		flags |= elemFlagHasTableIdx
	}
	if seg.isExprs {
		flags |= elemFlagExprs
		// The short active form implies funcref, so any other reference type
		// needs the explicit-table form even for table zero.
		if seg.active && seg.refType != ast.RefTypeFuncref {
			flags |= elemFlagHasTableIdx
		}
	}
	out = append(out, leb128.EncodeUint32(flags)...)

	if flags&elemFlagHasTableIdx != 0 {
		out = append(out, leb128.EncodeUint32(seg.table)...)
	}
	if seg.active {
		var err error
		if out, err = appendConstExpr(out, seg.offset); err != nil {
			return nil, err
		}
	}

	if !seg.isExprs {
		// Flag 0 implies both funcref and elemkind zero; the other forms
		// spell the elemkind out.
		if flags != 0 {
			out = append(out, elemKindFuncref)
		}
		out = append(out, leb128.EncodeUint32(uint32(len(seg.indices)))...)
		for i := range seg.indices {
			idx, err := idxOf(&seg.indices[i])
			if err != nil {
				return nil, err
			}
			out = append(out, leb128.EncodeUint32(idx)...)
		}
		return out, nil
	}

	// Flag 4 implies funcref; flags 5 and 6 carry the reference type.
	if flags != elemFlagExprs {
		out = append(out, seg.refType)
	}
	out = append(out, leb128.EncodeUint32(uint32(len(seg.exprs)))...)
	for _, idx := range seg.exprs {
		if idx == nil {
			out = append(out, ast.OpcodeRefNull, seg.refType, ast.OpcodeEnd)
			continue
		}
		n, err := idxOf(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, ast.OpcodeRefFunc)
		out = append(out, leb128.EncodeUint32(n)...)
		out = append(out, ast.OpcodeEnd)
	}
	return out, nil
}
