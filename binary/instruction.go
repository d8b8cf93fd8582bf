package binary

import (
	"encoding/binary"

	"github.com/wasmkit/watc/ast"
	"github.com/wasmkit/watc/leb128"
)

// appendConstExpr encodes an initializer or offset expression with its
// terminating end opcode.
func appendConstExpr(out []byte, instrs []ast.Instruction) ([]byte, error) {
	var err error
	for i := range instrs {
		if out, err = appendInstr(out, &instrs[i]); err != nil {
			return nil, err
		}
	}
	return append(out, ast.OpcodeEnd), nil
}

// appendInstr encodes one instruction with its immediates.
func appendInstr(out []byte, in *ast.Instruction) ([]byte, error) {
	out = append(out, in.Opcode)
	if in.Opcode == ast.OpcodeMiscPrefix {
		out = append(out, leb128.EncodeUint32(in.Misc)...)
		return appendMiscImm(out, in)
	}

	switch in.Opcode {
	case ast.OpcodeBlock, ast.OpcodeLoop, ast.OpcodeIf:
		out = appendBlockType(out, in.Block)

	case ast.OpcodeBr, ast.OpcodeBrIf,
		ast.OpcodeCall, ast.OpcodeRefFunc,
		ast.OpcodeLocalGet, ast.OpcodeLocalSet, ast.OpcodeLocalTee,
		ast.OpcodeGlobalGet, ast.OpcodeGlobalSet,
		ast.OpcodeTableGet, ast.OpcodeTableSet:
		idx, err := idxOf(in.Idx)
		if err != nil {
			return nil, err
		}
		out = append(out, leb128.EncodeUint32(idx)...)

	case ast.OpcodeBrTable:
		out = append(out, leb128.EncodeUint32(uint32(len(in.Targets)))...)
		for i := range in.Targets {
			idx, err := idxOf(&in.Targets[i])
			if err != nil {
				return nil, err
			}
			out = append(out, leb128.EncodeUint32(idx)...)
		}
		dflt, err := idxOf(in.Idx)
		if err != nil {
			return nil, err
		}
		out = append(out, leb128.EncodeUint32(dflt)...)

	case ast.OpcodeCallIndirect:
		typeIdx, err := idxOf(in.Idx)
		if err != nil {
			return nil, err
		}
		tableIdx, err := idxOf(in.Idx2)
		if err != nil {
			return nil, err
		}
		out = append(out, leb128.EncodeUint32(typeIdx)...)
		out = append(out, leb128.EncodeUint32(tableIdx)...)

	case ast.OpcodeMemorySize, ast.OpcodeMemoryGrow:
		out = append(out, 0x00) // memory index, always zero

	case ast.OpcodeI32Const:
		out = append(out, leb128.EncodeInt32(in.I32)...)
	case ast.OpcodeI64Const:
		out = append(out, leb128.EncodeInt64(in.I64)...)
	case ast.OpcodeF32Const:
		out = binary.LittleEndian.AppendUint32(out, in.F32)
	case ast.OpcodeF64Const:
		out = binary.LittleEndian.AppendUint64(out, in.F64)

	case ast.OpcodeRefNull:
		out = append(out, in.RefType)

	default:
		if isMemAccess(in.Opcode) {
			out = append(out, leb128.EncodeUint32(in.AlignLog2)...)
			out = append(out, leb128.EncodeUint32(in.Offset)...)
		}
	}
	return out, nil
}

func appendMiscImm(out []byte, in *ast.Instruction) ([]byte, error) {
	switch in.Misc {
	case ast.MiscMemoryInit:
		idx, err := idxOf(in.Idx)
		if err != nil {
			return nil, err
		}
		out = append(out, leb128.EncodeUint32(idx)...)
		out = append(out, 0x00) // memory index

	case ast.MiscDataDrop, ast.MiscElemDrop:
		idx, err := idxOf(in.Idx)
		if err != nil {
			return nil, err
		}
		out = append(out, leb128.EncodeUint32(idx)...)

	case ast.MiscMemoryCopy:
		out = append(out, 0x00, 0x00) // destination and source memory

	case ast.MiscMemoryFill:
		out = append(out, 0x00)

	case ast.MiscTableInit:
		elemIdx, err := idxOf(in.Idx)
		if err != nil {
			return nil, err
		}
		tableIdx, err := idxOf(in.Idx2)
		if err != nil {
			return nil, err
		}
		out = append(out, leb128.EncodeUint32(elemIdx)...)
		out = append(out, leb128.EncodeUint32(tableIdx)...)

	case ast.MiscTableCopy:
		dst, err := idxOf(in.Idx)
		if err != nil {
			return nil, err
		}
		src, err := idxOf(in.Idx2)
		if err != nil {
			return nil, err
		}
		out = append(out, leb128.EncodeUint32(dst)...)
		out = append(out, leb128.EncodeUint32(src)...)

	case ast.MiscTableGrow, ast.MiscTableSize, ast.MiscTableFill:
		idx, err := idxOf(in.Idx)
		if err != nil {
			return nil, err
		}
		out = append(out, leb128.EncodeUint32(idx)...)
	}
	return out, nil
}

func appendBlockType(out []byte, bt *ast.BlockType) []byte {
	if bt == nil || bt.Result == nil {
		return append(out, 0x40) // empty
	}
	return append(out, *bt.Result)
}

// isMemAccess reports whether the opcode is a load or store carrying a
// memarg. These occupy the contiguous range 0x28..0x3e.
func isMemAccess(op ast.Opcode) bool {
	return op >= ast.OpcodeI32Load && op <= ast.OpcodeI64Store32
}
