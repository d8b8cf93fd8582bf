package wat

import "github.com/wasmkit/watc/ast"

// immKind selects how an instruction's immediates parse.
type immKind byte

const (
	immNone immKind = iota
	immLabel
	immLabelTable
	immFunc
	immLocal
	immGlobal
	immType
	immTable
	immCallIndirect
	immMemarg
	immI32
	immI64
	immF32
	immF64
	immRefNull
	immMemoryInit
	immDataDrop
	immTableInit
	immElemDrop
	immTableCopy
)

type instrDef struct {
	opcode ast.Opcode
	misc   uint32
	imm    immKind
	// naturalAlign is the access width in bytes of a load or store, the
	// default when no align= immediate is written.
	naturalAlign uint32
}

func op(o ast.Opcode) instrDef               { return instrDef{opcode: o} }
func opImm(o ast.Opcode, k immKind) instrDef { return instrDef{opcode: o, imm: k} }
func opMem(o ast.Opcode, align uint32) instrDef {
	return instrDef{opcode: o, imm: immMemarg, naturalAlign: align}
}
func opMisc(m uint32, k immKind) instrDef {
	return instrDef{opcode: ast.OpcodeMiscPrefix, misc: m, imm: k}
}

// instrTable maps textual spellings to opcodes and immediate shapes.
// block, loop, if, else and end are handled structurally and do not appear.
var instrTable = map[string]instrDef{
	"unreachable": op(ast.OpcodeUnreachable),
	"nop":         op(ast.OpcodeNop),
	"br":          opImm(ast.OpcodeBr, immLabel),
	"br_if":       opImm(ast.OpcodeBrIf, immLabel),
	"br_table":    opImm(ast.OpcodeBrTable, immLabelTable),
	"return":      op(ast.OpcodeReturn),
	"call":        opImm(ast.OpcodeCall, immFunc),
	"call_indirect": opImm(ast.OpcodeCallIndirect, immCallIndirect),

	"drop":   op(ast.OpcodeDrop),
	"select": op(ast.OpcodeSelect),

	"local.get":  opImm(ast.OpcodeLocalGet, immLocal),
	"local.set":  opImm(ast.OpcodeLocalSet, immLocal),
	"local.tee":  opImm(ast.OpcodeLocalTee, immLocal),
	"global.get": opImm(ast.OpcodeGlobalGet, immGlobal),
	"global.set": opImm(ast.OpcodeGlobalSet, immGlobal),

	"table.get":  opImm(ast.OpcodeTableGet, immTable),
	"table.set":  opImm(ast.OpcodeTableSet, immTable),
	"table.size": opMisc(ast.MiscTableSize, immTable),
	"table.grow": opMisc(ast.MiscTableGrow, immTable),
	"table.fill": opMisc(ast.MiscTableFill, immTable),
	"table.init": opMisc(ast.MiscTableInit, immTableInit),
	"table.copy": opMisc(ast.MiscTableCopy, immTableCopy),
	"elem.drop":  opMisc(ast.MiscElemDrop, immElemDrop),

	"i32.load":     opMem(ast.OpcodeI32Load, 4),
	"i64.load":     opMem(ast.OpcodeI64Load, 8),
	"f32.load":     opMem(ast.OpcodeF32Load, 4),
	"f64.load":     opMem(ast.OpcodeF64Load, 8),
	"i32.load8_s":  opMem(ast.OpcodeI32Load8S, 1),
	"i32.load8_u":  opMem(ast.OpcodeI32Load8U, 1),
	"i32.load16_s": opMem(ast.OpcodeI32Load16S, 2),
	"i32.load16_u": opMem(ast.OpcodeI32Load16U, 2),
	"i64.load8_s":  opMem(ast.OpcodeI64Load8S, 1),
	"i64.load8_u":  opMem(ast.OpcodeI64Load8U, 1),
	"i64.load16_s": opMem(ast.OpcodeI64Load16S, 2),
	"i64.load16_u": opMem(ast.OpcodeI64Load16U, 2),
	"i64.load32_s": opMem(ast.OpcodeI64Load32S, 4),
	"i64.load32_u": opMem(ast.OpcodeI64Load32U, 4),
	"i32.store":    opMem(ast.OpcodeI32Store, 4),
	"i64.store":    opMem(ast.OpcodeI64Store, 8),
	"f32.store":    opMem(ast.OpcodeF32Store, 4),
	"f64.store":    opMem(ast.OpcodeF64Store, 8),
	"i32.store8":   opMem(ast.OpcodeI32Store8, 1),
	"i32.store16":  opMem(ast.OpcodeI32Store16, 2),
	"i64.store8":   opMem(ast.OpcodeI64Store8, 1),
	"i64.store16":  opMem(ast.OpcodeI64Store16, 2),
	"i64.store32":  opMem(ast.OpcodeI64Store32, 4),

	"memory.size": op(ast.OpcodeMemorySize),
	"memory.grow": op(ast.OpcodeMemoryGrow),
	"memory.init": opMisc(ast.MiscMemoryInit, immMemoryInit),
	"data.drop":   opMisc(ast.MiscDataDrop, immDataDrop),
	"memory.copy": opMisc(ast.MiscMemoryCopy, immNone),
	"memory.fill": opMisc(ast.MiscMemoryFill, immNone),

	"i32.const": opImm(ast.OpcodeI32Const, immI32),
	"i64.const": opImm(ast.OpcodeI64Const, immI64),
	"f32.const": opImm(ast.OpcodeF32Const, immF32),
	"f64.const": opImm(ast.OpcodeF64Const, immF64),

	"i32.eqz":  op(ast.OpcodeI32Eqz),
	"i32.eq":   op(ast.OpcodeI32Eq),
	"i32.ne":   op(ast.OpcodeI32Ne),
	"i32.lt_s": op(ast.OpcodeI32LtS),
	"i32.lt_u": op(ast.OpcodeI32LtU),
	"i32.gt_s": op(ast.OpcodeI32GtS),
	"i32.gt_u": op(ast.OpcodeI32GtU),
	"i32.le_s": op(ast.OpcodeI32LeS),
	"i32.le_u": op(ast.OpcodeI32LeU),
	"i32.ge_s": op(ast.OpcodeI32GeS),
	"i32.ge_u": op(ast.OpcodeI32GeU),

	"i64.eqz":  op(ast.OpcodeI64Eqz),
	"i64.eq":   op(ast.OpcodeI64Eq),
	"i64.ne":   op(ast.OpcodeI64Ne),
	"i64.lt_s": op(ast.OpcodeI64LtS),
	"i64.lt_u": op(ast.OpcodeI64LtU),
	"i64.gt_s": op(ast.OpcodeI64GtS),
	"i64.gt_u": op(ast.OpcodeI64GtU),
	"i64.le_s": op(ast.OpcodeI64LeS),
	"i64.le_u": op(ast.OpcodeI64LeU),
	"i64.ge_s": op(ast.OpcodeI64GeS),
	"i64.ge_u": op(ast.OpcodeI64GeU),

	"f32.eq": op(ast.OpcodeF32Eq),
	"f32.ne": op(ast.OpcodeF32Ne),
	"f32.lt": op(ast.OpcodeF32Lt),
	"f32.gt": op(ast.OpcodeF32Gt),
	"f32.le": op(ast.OpcodeF32Le),
	"f32.ge": op(ast.OpcodeF32Ge),

	"f64.eq": op(ast.OpcodeF64Eq),
	"f64.ne": op(ast.OpcodeF64Ne),
	"f64.lt": op(ast.OpcodeF64Lt),
	"f64.gt": op(ast.OpcodeF64Gt),
	"f64.le": op(ast.OpcodeF64Le),
	"f64.ge": op(ast.OpcodeF64Ge),

	"i32.clz":    op(ast.OpcodeI32Clz),
	"i32.ctz":    op(ast.OpcodeI32Ctz),
	"i32.popcnt": op(ast.OpcodeI32Popcnt),
	"i32.add":    op(ast.OpcodeI32Add),
	"i32.sub":    op(ast.OpcodeI32Sub),
	"i32.mul":    op(ast.OpcodeI32Mul),
	"i32.div_s":  op(ast.OpcodeI32DivS),
	"i32.div_u":  op(ast.OpcodeI32DivU),
	"i32.rem_s":  op(ast.OpcodeI32RemS),
	"i32.rem_u":  op(ast.OpcodeI32RemU),
	"i32.and":    op(ast.OpcodeI32And),
	"i32.or":     op(ast.OpcodeI32Or),
	"i32.xor":    op(ast.OpcodeI32Xor),
	"i32.shl":    op(ast.OpcodeI32Shl),
	"i32.shr_s":  op(ast.OpcodeI32ShrS),
	"i32.shr_u":  op(ast.OpcodeI32ShrU),
	"i32.rotl":   op(ast.OpcodeI32Rotl),
	"i32.rotr":   op(ast.OpcodeI32Rotr),

	"i64.clz":    op(ast.OpcodeI64Clz),
	"i64.ctz":    op(ast.OpcodeI64Ctz),
	"i64.popcnt": op(ast.OpcodeI64Popcnt),
	"i64.add":    op(ast.OpcodeI64Add),
	"i64.sub":    op(ast.OpcodeI64Sub),
	"i64.mul":    op(ast.OpcodeI64Mul),
	"i64.div_s":  op(ast.OpcodeI64DivS),
	"i64.div_u":  op(ast.OpcodeI64DivU),
	"i64.rem_s":  op(ast.OpcodeI64RemS),
	"i64.rem_u":  op(ast.OpcodeI64RemU),
	"i64.and":    op(ast.OpcodeI64And),
	"i64.or":     op(ast.OpcodeI64Or),
	"i64.xor":    op(ast.OpcodeI64Xor),
	"i64.shl":    op(ast.OpcodeI64Shl),
	"i64.shr_s":  op(ast.OpcodeI64ShrS),
	"i64.shr_u":  op(ast.OpcodeI64ShrU),
	"i64.rotl":   op(ast.OpcodeI64Rotl),
	"i64.rotr":   op(ast.OpcodeI64Rotr),

	"f32.abs":      op(ast.OpcodeF32Abs),
	"f32.neg":      op(ast.OpcodeF32Neg),
	"f32.ceil":     op(ast.OpcodeF32Ceil),
	"f32.floor":    op(ast.OpcodeF32Floor),
	"f32.trunc":    op(ast.OpcodeF32Trunc),
	"f32.nearest":  op(ast.OpcodeF32Nearest),
	"f32.sqrt":     op(ast.OpcodeF32Sqrt),
	"f32.add":      op(ast.OpcodeF32Add),
	"f32.sub":      op(ast.OpcodeF32Sub),
	"f32.mul":      op(ast.OpcodeF32Mul),
	"f32.div":      op(ast.OpcodeF32Div),
	"f32.min":      op(ast.OpcodeF32Min),
	"f32.max":      op(ast.OpcodeF32Max),
	"f32.copysign": op(ast.OpcodeF32Copysign),

	"f64.abs":      op(ast.OpcodeF64Abs),
	"f64.neg":      op(ast.OpcodeF64Neg),
	"f64.ceil":     op(ast.OpcodeF64Ceil),
	"f64.floor":    op(ast.OpcodeF64Floor),
	"f64.trunc":    op(ast.OpcodeF64Trunc),
	"f64.nearest":  op(ast.OpcodeF64Nearest),
	"f64.sqrt":     op(ast.OpcodeF64Sqrt),
	"f64.add":      op(ast.OpcodeF64Add),
	"f64.sub":      op(ast.OpcodeF64Sub),
	"f64.mul":      op(ast.OpcodeF64Mul),
	"f64.div":      op(ast.OpcodeF64Div),
	"f64.min":      op(ast.OpcodeF64Min),
	"f64.max":      op(ast.OpcodeF64Max),
	"f64.copysign": op(ast.OpcodeF64Copysign),

	"i32.wrap_i64":        op(ast.OpcodeI32WrapI64),
	"i32.trunc_f32_s":     op(ast.OpcodeI32TruncF32S),
	"i32.trunc_f32_u":     op(ast.OpcodeI32TruncF32U),
	"i32.trunc_f64_s":     op(ast.OpcodeI32TruncF64S),
	"i32.trunc_f64_u":     op(ast.OpcodeI32TruncF64U),
	"i64.extend_i32_s":    op(ast.OpcodeI64ExtendI32S),
	"i64.extend_i32_u":    op(ast.OpcodeI64ExtendI32U),
	"i64.trunc_f32_s":     op(ast.OpcodeI64TruncF32S),
	"i64.trunc_f32_u":     op(ast.OpcodeI64TruncF32U),
	"i64.trunc_f64_s":     op(ast.OpcodeI64TruncF64S),
	"i64.trunc_f64_u":     op(ast.OpcodeI64TruncF64U),
	"f32.convert_i32_s":   op(ast.OpcodeF32ConvertI32S),
	"f32.convert_i32_u":   op(ast.OpcodeF32ConvertI32U),
	"f32.convert_i64_s":   op(ast.OpcodeF32ConvertI64S),
	"f32.convert_i64_u":   op(ast.OpcodeF32ConvertI64U),
	"f32.demote_f64":      op(ast.OpcodeF32DemoteF64),
	"f64.convert_i32_s":   op(ast.OpcodeF64ConvertI32S),
	"f64.convert_i32_u":   op(ast.OpcodeF64ConvertI32U),
	"f64.convert_i64_s":   op(ast.OpcodeF64ConvertI64S),
	"f64.convert_i64_u":   op(ast.OpcodeF64ConvertI64U),
	"f64.promote_f32":     op(ast.OpcodeF64PromoteF32),
	"i32.reinterpret_f32": op(ast.OpcodeI32ReinterpretF32),
	"i64.reinterpret_f64": op(ast.OpcodeI64ReinterpretF64),
	"f32.reinterpret_i32": op(ast.OpcodeF32ReinterpretI32),
	"f64.reinterpret_i64": op(ast.OpcodeF64ReinterpretI64),

	"i32.extend8_s":  op(ast.OpcodeI32Extend8S),
	"i32.extend16_s": op(ast.OpcodeI32Extend16S),
	"i64.extend8_s":  op(ast.OpcodeI64Extend8S),
	"i64.extend16_s": op(ast.OpcodeI64Extend16S),
	"i64.extend32_s": op(ast.OpcodeI64Extend32S),

	"i32.trunc_sat_f32_s": opMisc(ast.MiscI32TruncSatF32S, immNone),
	"i32.trunc_sat_f32_u": opMisc(ast.MiscI32TruncSatF32U, immNone),
	"i32.trunc_sat_f64_s": opMisc(ast.MiscI32TruncSatF64S, immNone),
	"i32.trunc_sat_f64_u": opMisc(ast.MiscI32TruncSatF64U, immNone),
	"i64.trunc_sat_f32_s": opMisc(ast.MiscI64TruncSatF32S, immNone),
	"i64.trunc_sat_f32_u": opMisc(ast.MiscI64TruncSatF32U, immNone),
	"i64.trunc_sat_f64_s": opMisc(ast.MiscI64TruncSatF64S, immNone),
	"i64.trunc_sat_f64_u": opMisc(ast.MiscI64TruncSatF64U, immNone),

	"ref.null":    opImm(ast.OpcodeRefNull, immRefNull),
	"ref.is_null": op(ast.OpcodeRefIsNull),
	"ref.func":    opImm(ast.OpcodeRefFunc, immFunc),
}
