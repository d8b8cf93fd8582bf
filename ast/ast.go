// Package ast models the constructs of the WebAssembly text format as an
// immutable tree. Every node is constructed once by the parser and consumed
// by the binary encoder; indices are back-references by value, so the tree
// contains no cycles.
package ast

// Span is a half-open byte range [Start, End) into the original source text.
// It is used only for diagnostics and never affects parsing decisions.
type Span struct {
	Start int
	End   int
}

// Index is a reference to another definition: either a resolved ordinal
// number or an unresolved symbolic ID, such as "main" from "$main".
//
// Both variants coexist until the binding pass rewrites symbolic IDs to
// ordinals. The encoder requires indices to already be numeric.
type Index struct {
	// ID is the symbolic name without its '$' prefix, or empty once resolved.
	ID string

	// Numeric is the ordinal. Only read this when ID is empty, as zero is a
	// valid index.
	Numeric uint32

	// Span locates the index token in source for diagnostics.
	Span Span
}

// Resolved returns true once this index refers to a definition by ordinal.
func (i Index) Resolved() bool {
	return i.ID == ""
}

// ValueType is a binary type code for a value a function or global can use.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// RefType is the binary type code for a reference, usable as a table element
// type.
type RefType = byte

const (
	// RefTypeFuncref is spelled "funcref" in the text format (historically
	// also "anyfunc").
	RefTypeFuncref RefType = 0x70
	// RefTypeExternref is spelled "externref" in the text format.
	RefTypeExternref RefType = 0x6f
)

// Limits describe the size range of a table or memory.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A6
type Limits struct {
	Min uint32
	// Max is nil when the upper bound is unspecified.
	Max *uint32
}

// TableType is the element type and size limits of a table.
type TableType struct {
	ElemType RefType
	Limits   Limits
}

// GlobalType is the value type and mutability of a global.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// Equal returns true if the receiver has the same parameters and results as
// the argument. Used to intern inline type uses into the type section.
func (f *FuncType) Equal(other *FuncType) bool {
	if len(f.Params) != len(other.Params) || len(f.Results) != len(other.Results) {
		return false
	}
	for i, p := range f.Params {
		if p != other.Params[i] {
			return false
		}
	}
	for i, r := range f.Results {
		if r != other.Results[i] {
			return false
		}
	}
	return true
}

// Module is the root of the tree: an optional name and the module fields in
// source order. Nothing is required; `(module)` is valid.
type Module struct {
	Span   Span
	Name   string
	Fields []ModuleField
}

// ModuleField is one top-level definition inside a module body. It is a
// closed sum: the set of implementations in this package is complete.
type ModuleField interface {
	// FieldSpan locates the field in source.
	FieldSpan() Span
	moduleField()
}

// TypeDef is a "(type ...)" definition of a function signature.
type TypeDef struct {
	Span Span
	Name string
	Func *FuncType
}

// TypeUse references a function signature by index, inline declaration, or
// both. When both are present the binding pass checks they agree.
type TypeUse struct {
	// Index is nil when only an inline signature was written.
	Index *Index
	// Type is nil when only "(type $t)" was written. ParamNames is
	// index-coordinated with Type.Params; entries are empty for unnamed
	// params.
	Type       *FuncType
	ParamNames []string
}

// Import is a standalone "(import "m" "n" (desc...))" field.
type Import struct {
	Span   Span
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc describes what an Import binds: a func, table, memory or global.
type ImportDesc interface {
	importDesc()
	// DescName returns the optional "$id" given to the imported definition.
	DescName() string
}

type ImportFunc struct {
	Name string
	Type TypeUse
}

type ImportTable struct {
	Name string
	Type TableType
}

type ImportMemory struct {
	Name string
	Type Limits
}

type ImportGlobal struct {
	Name string
	Type GlobalType
}

func (d *ImportFunc) importDesc()   {}
func (d *ImportTable) importDesc()  {}
func (d *ImportMemory) importDesc() {}
func (d *ImportGlobal) importDesc() {}

func (d *ImportFunc) DescName() string   { return d.Name }
func (d *ImportTable) DescName() string  { return d.Name }
func (d *ImportMemory) DescName() string { return d.Name }
func (d *ImportGlobal) DescName() string { return d.Name }

// InlineImport is the "(import "m" "n")" abbreviation inside a definition.
type InlineImport struct {
	Module string
	Name   string
}

// Func is a "(func ...)" definition or inline import.
type Func struct {
	Span    Span
	Name    string
	Exports []string
	// Import is set for the inline-import abbreviation; Locals and Body must
	// then be empty.
	Import *InlineImport
	Type   TypeUse
	Locals []Local
	Body   []Instruction
}

// Local is one entry of a "(local ...)" declaration.
type Local struct {
	Name string
	Type ValueType
}

// Memory is a "(memory ...)" definition.
type Memory struct {
	Span    Span
	Name    string
	Exports []string
	Kind    MemoryKind
}

// MemoryKind is how the memory is textually defined: imported, normal, or
// inline-with-contents. Exactly one implementation is populated per Memory.
type MemoryKind interface{ memoryKind() }

type MemoryKindImport struct {
	Import InlineImport
	Type   Limits
}

type MemoryKindNormal struct {
	Type Limits
}

// MemoryKindInline is "(memory (data "..."))": the minimum and maximum are
// implied by the data length rounded up to a page.
type MemoryKindInline struct {
	Data []byte
}

func (k *MemoryKindImport) memoryKind() {}
func (k *MemoryKindNormal) memoryKind() {}
func (k *MemoryKindInline) memoryKind() {}

// Global is a "(global ...)" definition.
type Global struct {
	Span    Span
	Name    string
	Exports []string
	Kind    GlobalKind
}

type GlobalKind interface{ globalKind() }

type GlobalKindImport struct {
	Import InlineImport
	Type   GlobalType
}

type GlobalKindNormal struct {
	Type GlobalType
	Init Expression
}

func (k *GlobalKindImport) globalKind() {}
func (k *GlobalKindNormal) globalKind() {}

// ExternType distinguishes what an Export or Import refers to.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-exportdesc
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// Export is a standalone "(export "n" (kind idx))" field.
type Export struct {
	Span  Span
	Name  string
	Kind  ExternType
	Index Index
}

// Start names the function invoked when the module is instantiated.
type Start struct {
	Span  Span
	Index Index
}

// Data is a "(data ...)" segment.
type Data struct {
	Span Span
	Name string
	Kind DataKind
	// Bytes is the concatenation of the segment's string literals.
	Bytes []byte
}

type DataKind interface{ dataKind() }

// DataKindPassive segments are applied later by memory.init.
type DataKindPassive struct{}

// DataKindActive segments initialize Memory at Offset on instantiation.
type DataKindActive struct {
	Memory Index
	Offset Expression
}

func (k *DataKindPassive) dataKind() {}
func (k *DataKindActive) dataKind()  {}

// Expression is a constant expression, such as a segment offset or global
// initializer.
type Expression struct {
	Span   Span
	Instrs []Instruction
}

func (f *TypeDef) FieldSpan() Span { return f.Span }
func (f *Import) FieldSpan() Span  { return f.Span }
func (f *Func) FieldSpan() Span    { return f.Span }
func (f *Table) FieldSpan() Span   { return f.Span }
func (f *Memory) FieldSpan() Span  { return f.Span }
func (f *Global) FieldSpan() Span  { return f.Span }
func (f *Export) FieldSpan() Span  { return f.Span }
func (f *Start) FieldSpan() Span   { return f.Span }
func (f *Elem) FieldSpan() Span    { return f.Span }
func (f *Data) FieldSpan() Span    { return f.Span }

func (f *TypeDef) moduleField() {}
func (f *Import) moduleField()  {}
func (f *Func) moduleField()    {}
func (f *Table) moduleField()   {}
func (f *Memory) moduleField()  {}
func (f *Global) moduleField()  {}
func (f *Export) moduleField()  {}
func (f *Start) moduleField()   {}
func (f *Elem) moduleField()    {}
func (f *Data) moduleField()    {}
