package ast

// Table is a "(table ...)" definition.
type Table struct {
	Span    Span
	Name    string
	Exports []string
	// Kind is how the table is textually defined. Exactly one implementation
	// is populated; the grammar prevents an import from also carrying inline
	// contents.
	Kind TableKind
}

// TableKind is one of the three textual forms of a table definition.
type TableKind interface{ tableKind() }

// TableKindImport is "(table $t (import "m" "n") 1 2 funcref)": the table is
// provided by the host rather than defined locally.
type TableKindImport struct {
	Import InlineImport
	Type   TableType
}

// TableKindNormal is "(table $t 1 2 funcref)": limits and element type with
// no inline contents.
type TableKindNormal struct {
	Type TableType
}

// TableKindInline is "(table $t funcref (elem ...))": the table size is the
// payload length, and the contents are listed at the definition site.
type TableKindInline struct {
	ElemType RefType
	Payload  ElemPayload
}

func (k *TableKindImport) tableKind() {}
func (k *TableKindNormal) tableKind() {}
func (k *TableKindInline) tableKind() {}

// Elem is an "(elem ...)" segment: a list of possibly-absent function
// references used to pre-populate or bulk-initialize a table.
type Elem struct {
	Span    Span
	Name    string
	Kind    ElemKind
	Payload ElemPayload
}

// ElemKind is how the segment applies to a table.
type ElemKind interface{ elemKind() }

// ElemKindPassive segments are not tied to any table; they are applied later
// by table.init.
type ElemKindPassive struct{}

// ElemKindActive segments initialize a contiguous run of Table starting at
// the position Offset evaluates to.
type ElemKindActive struct {
	// Table defaults to index zero when the source omits it; an explicit
	// "(table 0)" is indistinguishable post-parse.
	Table  Index
	Offset Expression
}

func (k *ElemKindPassive) elemKind() {}
func (k *ElemKindActive) elemKind()  {}

// ElemPayload is the segment contents in one of two textual forms.
type ElemPayload interface{ elemPayload() }

// ElemPayloadIndices is a flat list of function references by ordinal or
// name, ex. "(elem (offset (i32.const 0)) func $a $b)".
type ElemPayloadIndices struct {
	Indices []Index
}

// ElemPayloadExprs is a list of entries that are each either absent (a null
// reference) or a function reference, ex.
// "(elem (offset (i32.const 0)) funcref (ref.func $a) (ref.null func))".
type ElemPayloadExprs struct {
	Type RefType
	// Exprs entries are nil for "(ref.null t)" and the referenced index for
	// "(ref.func i)".
	Exprs []*Index
}

func (p *ElemPayloadIndices) elemPayload() {}
func (p *ElemPayloadExprs) elemPayload()   {}
