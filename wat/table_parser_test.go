package wat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/watc/ast"
)

// parseOneField parses a module expected to hold exactly one field and
// returns it.
func parseOneField(t *testing.T, source string) ast.ModuleField {
	t.Helper()
	m, _, err := Parse([]byte(source))
	require.NoError(t, err)
	require.Equal(t, 1, len(m.Fields))
	return m.Fields[0]
}

func TestParseTable(t *testing.T) {
	two := uint32(2)

	tests := []struct {
		name     string
		source   string
		expected *ast.Table
	}{
		{
			name:   "plain limits",
			source: "(module (table 1 funcref))",
			expected: &ast.Table{
				Kind: &ast.TableKindNormal{
					Type: ast.TableType{ElemType: ast.RefTypeFuncref, Limits: ast.Limits{Min: 1}},
				},
			},
		},
		{
			name:   "limits with max",
			source: "(module (table $t 1 2 funcref))",
			expected: &ast.Table{
				Name: "t",
				Kind: &ast.TableKindNormal{
					Type: ast.TableType{ElemType: ast.RefTypeFuncref, Limits: ast.Limits{Min: 1, Max: &two}},
				},
			},
		},
		{
			name:   "externref",
			source: "(module (table 1 externref))",
			expected: &ast.Table{
				Kind: &ast.TableKindNormal{
					Type: ast.TableType{ElemType: ast.RefTypeExternref, Limits: ast.Limits{Min: 1}},
				},
			},
		},
		{
			name:   "inline import",
			source: `(module (table $t (import "env" "tbl") 1 2 funcref))`,
			expected: &ast.Table{
				Name: "t",
				Kind: &ast.TableKindImport{
					Import: ast.InlineImport{Module: "env", Name: "tbl"},
					Type:   ast.TableType{ElemType: ast.RefTypeFuncref, Limits: ast.Limits{Min: 1, Max: &two}},
				},
			},
		},
		{
			name:   "inline contents with indices",
			source: "(module (table funcref (elem 0 1)))",
			expected: &ast.Table{
				Kind: &ast.TableKindInline{
					ElemType: ast.RefTypeFuncref,
					Payload: &ast.ElemPayloadIndices{
						Indices: []ast.Index{{Numeric: 0}, {Numeric: 1}},
					},
				},
			},
		},
		{
			name:   "inline contents with names",
			source: "(module (table funcref (elem $a $b)))",
			expected: &ast.Table{
				Kind: &ast.TableKindInline{
					ElemType: ast.RefTypeFuncref,
					Payload: &ast.ElemPayloadIndices{
						Indices: []ast.Index{{ID: "a"}, {ID: "b"}},
					},
				},
			},
		},
		{
			name:   "inline contents empty",
			source: "(module (table funcref (elem)))",
			expected: &ast.Table{
				Kind: &ast.TableKindInline{
					ElemType: ast.RefTypeFuncref,
					Payload:  &ast.ElemPayloadIndices{Indices: []ast.Index{}},
				},
			},
		},
		{
			name:   "inline contents with expressions",
			source: "(module (table funcref (elem (ref.func $a) (ref.null func))))",
			expected: &ast.Table{
				Kind: &ast.TableKindInline{
					ElemType: ast.RefTypeFuncref,
					Payload: &ast.ElemPayloadExprs{
						Type:  ast.RefTypeFuncref,
						Exprs: []*ast.Index{{ID: "a"}, nil},
					},
				},
			},
		},
		{
			name:   "inline exports",
			source: `(module (table (export "a") (export "b") 1 funcref))`,
			expected: &ast.Table{
				Exports: []string{"a", "b"},
				Kind: &ast.TableKindNormal{
					Type: ast.TableType{ElemType: ast.RefTypeFuncref, Limits: ast.Limits{Min: 1}},
				},
			},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			f, ok := parseOneField(t, tc.source).(*ast.Table)
			require.True(t, ok)
			clearTableSpans(f)
			require.Equal(t, tc.expected, f)
		})
	}
}

func TestParseTableErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		expMsg string
	}{
		{
			name:   "nothing after name",
			source: "(module (table $t))",
			expMsg: "expected one of: an element type, a table type, an import",
		},
		{
			name:   "string instead",
			source: `(module (table "t"))`,
			expMsg: "expected one of: an element type, a table type, an import",
		},
		{
			name:   "anyfunc in payload position",
			source: "(module (table anyfunc 1))",
			expMsg: "expected '(', but found uN",
		},
		{
			name:   "import without table type",
			source: `(module (table (import "a" "b")))`,
			expMsg: "expected min, but found ')'",
		},
		{
			name:   "group that is not an import",
			source: "(module (table (foo 1)))",
			expMsg: `expected keyword "import", but found keyword foo`,
		},
		{
			name:   "trailing token",
			source: "(module (table 1 funcref 2))",
			expMsg: "expected ')', but found unconsumed uN",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tc.source))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expMsg)
		})
	}
}

func TestParseElem(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected *ast.Elem
	}{
		{
			name:   "active with default table",
			source: "(module (elem (i32.const 0) func 1))",
			expected: &ast.Elem{
				Kind: &ast.ElemKindActive{
					Offset: ast.Expression{Instrs: []ast.Instruction{
						{Name: "i32.const", Opcode: ast.OpcodeI32Const, I32: 0},
					}},
				},
				Payload: &ast.ElemPayloadIndices{Indices: []ast.Index{{Numeric: 1}}},
			},
		},
		{
			name:   "active with offset keyword",
			source: "(module (elem (offset i32.const 8) 0 1))",
			expected: &ast.Elem{
				Kind: &ast.ElemKindActive{
					Offset: ast.Expression{Instrs: []ast.Instruction{
						{Name: "i32.const", Opcode: ast.OpcodeI32Const, I32: 8},
					}},
				},
				Payload: &ast.ElemPayloadIndices{Indices: []ast.Index{{Numeric: 0}, {Numeric: 1}}},
			},
		},
		{
			name:   "active with numeric table index",
			source: "(module (elem 2 (i32.const 0) $f))",
			expected: &ast.Elem{
				Kind: &ast.ElemKindActive{
					Table: ast.Index{Numeric: 2},
					Offset: ast.Expression{Instrs: []ast.Instruction{
						{Name: "i32.const", Opcode: ast.OpcodeI32Const, I32: 0},
					}},
				},
				Payload: &ast.ElemPayloadIndices{Indices: []ast.Index{{ID: "f"}}},
			},
		},
		{
			name:   "active with table group",
			source: "(module (elem (table $t) (i32.const 0) func $f))",
			expected: &ast.Elem{
				Kind: &ast.ElemKindActive{
					Table: ast.Index{ID: "t"},
					Offset: ast.Expression{Instrs: []ast.Instruction{
						{Name: "i32.const", Opcode: ast.OpcodeI32Const, I32: 0},
					}},
				},
				Payload: &ast.ElemPayloadIndices{Indices: []ast.Index{{ID: "f"}}},
			},
		},
		{
			name:   "passive with indices",
			source: "(module (elem $seg func 1 2))",
			expected: &ast.Elem{
				Name: "seg",
				Kind: &ast.ElemKindPassive{},
				Payload: &ast.ElemPayloadIndices{
					Indices: []ast.Index{{Numeric: 1}, {Numeric: 2}},
				},
			},
		},
		{
			name:   "passive with expressions",
			source: "(module (elem funcref (ref.func 0) (ref.null func)))",
			expected: &ast.Elem{
				Kind: &ast.ElemKindPassive{},
				Payload: &ast.ElemPayloadExprs{
					Type:  ast.RefTypeFuncref,
					Exprs: []*ast.Index{{Numeric: 0}, nil},
				},
			},
		},
		{
			name:   "passive externref",
			source: "(module (elem externref (ref.null extern)))",
			expected: &ast.Elem{
				Kind: &ast.ElemKindPassive{},
				Payload: &ast.ElemPayloadExprs{
					Type:  ast.RefTypeExternref,
					Exprs: []*ast.Index{nil},
				},
			},
		},
		{
			name:   "empty passive",
			source: "(module (elem))",
			expected: &ast.Elem{
				Kind:    &ast.ElemKindPassive{},
				Payload: &ast.ElemPayloadIndices{Indices: []ast.Index{}},
			},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			f, ok := parseOneField(t, tc.source).(*ast.Elem)
			require.True(t, ok)
			clearElemSpans(f)
			require.Equal(t, tc.expected, f)
		})
	}
}

func TestParseElemErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		expMsg string
	}{
		{
			name:   "active without offset",
			source: "(module (elem (table 0) func 1))",
			expMsg: "expected '(', but found keyword func",
		},
		{
			name:   "numeric table without offset",
			source: "(module (elem 0))",
			expMsg: "expected '(', but found ')'",
		},
		{
			name:   "mixed payload",
			source: "(module (elem funcref 0 1))",
			expMsg: "expected '(', but found uN",
		},
		{
			name:   "bad expression entry",
			source: "(module (elem funcref (i32.const 0)))",
			expMsg: "expected one of: ref.null, ref.func",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tc.source))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expMsg)
		})
	}
}

// Spans depend on exact byte offsets, which these tests are not about.
func clearTableSpans(f *ast.Table) {
	f.Span = ast.Span{}
	if k, ok := f.Kind.(*ast.TableKindInline); ok {
		clearPayloadSpans(k.Payload)
	}
}

func clearElemSpans(f *ast.Elem) {
	f.Span = ast.Span{}
	if k, ok := f.Kind.(*ast.ElemKindActive); ok {
		k.Table.Span = ast.Span{}
		clearExprSpans(&k.Offset)
		f.Kind = k
	}
	clearPayloadSpans(f.Payload)
}

func clearPayloadSpans(p ast.ElemPayload) {
	switch pl := p.(type) {
	case *ast.ElemPayloadIndices:
		for i := range pl.Indices {
			pl.Indices[i].Span = ast.Span{}
		}
	case *ast.ElemPayloadExprs:
		for _, idx := range pl.Exprs {
			if idx != nil {
				idx.Span = ast.Span{}
			}
		}
	}
}

func clearExprSpans(e *ast.Expression) {
	e.Span = ast.Span{}
	for i := range e.Instrs {
		e.Instrs[i].Span = ast.Span{}
	}
}
