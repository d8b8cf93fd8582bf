package wat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/watc/ast"
)

func TestParseModule(t *testing.T) {
	t.Run("empty module", func(t *testing.T) {
		m, diags, err := Parse([]byte("(module)"))
		require.NoError(t, err)
		require.Empty(t, diags)
		require.Equal(t, "", m.Name)
		require.Empty(t, m.Fields)
	})

	t.Run("named module", func(t *testing.T) {
		m, _, err := Parse([]byte("(module $lib)"))
		require.NoError(t, err)
		require.Equal(t, "lib", m.Name)
	})

	t.Run("bare fields abbreviation", func(t *testing.T) {
		m, _, err := Parse([]byte(`(memory 1) (func)`))
		require.NoError(t, err)
		require.Equal(t, 2, len(m.Fields))
	})

	t.Run("empty input", func(t *testing.T) {
		m, _, err := Parse([]byte(""))
		require.NoError(t, err)
		require.Empty(t, m.Fields)
	})

	t.Run("trailing tokens", func(t *testing.T) {
		_, _, err := Parse([]byte("(module) (module)"))
		require.ErrorContains(t, err, "unexpected '(' after module")
	})

	t.Run("field order is retained", func(t *testing.T) {
		m, _, err := Parse([]byte(`
			(module
			  (elem (i32.const 0) func 0)
			  (func)
			  (table 1 funcref))`))
		require.NoError(t, err)
		require.IsType(t, &ast.Elem{}, m.Fields[0])
		require.IsType(t, &ast.Func{}, m.Fields[1])
		require.IsType(t, &ast.Table{}, m.Fields[2])
	})
}

func TestParseModuleErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		expMsg string
	}{
		{
			name:   "unknown field",
			source: "(module (funk))",
			expMsg: "unexpected field: funk",
		},
		{
			name:   "unsupported construct",
			source: "(module (tag $e))",
			expMsg: "unsupported construct: tag",
		},
		{
			name:   "number as field",
			source: "(module (42))",
			expMsg: "expected a field keyword, but found uN 42",
		},
		{
			name:   "error carries field context",
			source: "(module (func) (func (unknown.op)))",
			expMsg: "module.func[1]",
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

func TestParseNestingDepthLimit(t *testing.T) {
	// A pathological file cannot recurse the parser off the stack.
	deep := "(module (func " + strings.Repeat("(block ", 600) +
		strings.Repeat(")", 600) + "))"
	_, _, err := Parse([]byte(deep))
	require.ErrorContains(t, err, "exceeded maximum nesting depth")
}

func TestParseImport(t *testing.T) {
	t.Run("function", func(t *testing.T) {
		f, ok := parseOneField(t, `(module (import "wasi" "clock" (func $clock (result i64))))`).(*ast.Import)
		require.True(t, ok)
		require.Equal(t, "wasi", f.Module)
		require.Equal(t, "clock", f.Name)
		d, ok := f.Desc.(*ast.ImportFunc)
		require.True(t, ok)
		require.Equal(t, "clock", d.Name)
		require.Equal(t, []ast.ValueType{ast.ValueTypeI64}, d.Type.Type.Results)
	})

	t.Run("memory", func(t *testing.T) {
		f, ok := parseOneField(t, `(module (import "env" "mem" (memory 1 4)))`).(*ast.Import)
		require.True(t, ok)
		d, ok := f.Desc.(*ast.ImportMemory)
		require.True(t, ok)
		require.Equal(t, uint32(1), d.Type.Min)
		require.Equal(t, uint32(4), *d.Type.Max)
	})

	t.Run("global", func(t *testing.T) {
		f, ok := parseOneField(t, `(module (import "env" "g" (global $g (mut i32))))`).(*ast.Import)
		require.True(t, ok)
		d, ok := f.Desc.(*ast.ImportGlobal)
		require.True(t, ok)
		require.True(t, d.Type.Mutable)
		require.Equal(t, ast.ValueTypeI32, d.Type.ValType)
	})

	t.Run("unknown descriptor", func(t *testing.T) {
		_, _, err := Parse([]byte(`(module (import "a" "b" (moo)))`))
		require.ErrorContains(t, err, "expected one of: func, table, memory, global")
	})
}

func TestParseMemory(t *testing.T) {
	t.Run("limits", func(t *testing.T) {
		f, ok := parseOneField(t, "(module (memory 1 2))").(*ast.Memory)
		require.True(t, ok)
		k, ok := f.Kind.(*ast.MemoryKindNormal)
		require.True(t, ok)
		require.Equal(t, uint32(1), k.Type.Min)
		require.Equal(t, uint32(2), *k.Type.Max)
	})

	t.Run("inline data", func(t *testing.T) {
		f, ok := parseOneField(t, `(module (memory (data "ab" "cd")))`).(*ast.Memory)
		require.True(t, ok)
		k, ok := f.Kind.(*ast.MemoryKindInline)
		require.True(t, ok)
		require.Equal(t, []byte("abcd"), k.Data)
	})

	t.Run("inline import", func(t *testing.T) {
		f, ok := parseOneField(t, `(module (memory $m (import "env" "mem") 1))`).(*ast.Memory)
		require.True(t, ok)
		k, ok := f.Kind.(*ast.MemoryKindImport)
		require.True(t, ok)
		require.Equal(t, "env", k.Import.Module)
		require.Equal(t, uint32(1), k.Type.Min)
	})
}

func TestParseGlobal(t *testing.T) {
	f, ok := parseOneField(t, `(module (global $g (export "g") (mut i64) (i64.const -1)))`).(*ast.Global)
	require.True(t, ok)
	require.Equal(t, "g", f.Name)
	require.Equal(t, []string{"g"}, f.Exports)
	k, ok := f.Kind.(*ast.GlobalKindNormal)
	require.True(t, ok)
	require.True(t, k.Type.Mutable)
	require.Equal(t, ast.ValueTypeI64, k.Type.ValType)
	require.Equal(t, 1, len(k.Init.Instrs))
	require.Equal(t, int64(-1), k.Init.Instrs[0].I64)
}

func TestParseExportStart(t *testing.T) {
	m, _, err := Parse([]byte(`(module (export "run" (func $main)) (start $main))`))
	require.NoError(t, err)

	exp, ok := m.Fields[0].(*ast.Export)
	require.True(t, ok)
	require.Equal(t, "run", exp.Name)
	require.Equal(t, ast.ExternTypeFunc, exp.Kind)
	require.Equal(t, "main", exp.Index.ID)

	start, ok := m.Fields[1].(*ast.Start)
	require.True(t, ok)
	require.Equal(t, "main", start.Index.ID)
}

func TestParseData(t *testing.T) {
	t.Run("active default memory", func(t *testing.T) {
		f, ok := parseOneField(t, `(module (data (i32.const 8) "hi"))`).(*ast.Data)
		require.True(t, ok)
		k, ok := f.Kind.(*ast.DataKindActive)
		require.True(t, ok)
		require.True(t, k.Memory.Resolved())
		require.Equal(t, uint32(0), k.Memory.Numeric)
		require.Equal(t, []byte("hi"), f.Bytes)
	})

	t.Run("active explicit memory group", func(t *testing.T) {
		f, ok := parseOneField(t, `(module (data (memory 1) (offset (i32.const 0)) "x"))`).(*ast.Data)
		require.True(t, ok)
		k, ok := f.Kind.(*ast.DataKindActive)
		require.True(t, ok)
		require.Equal(t, uint32(1), k.Memory.Numeric)
	})

	t.Run("passive", func(t *testing.T) {
		f, ok := parseOneField(t, `(module (data $seg "abc"))`).(*ast.Data)
		require.True(t, ok)
		require.IsType(t, &ast.DataKindPassive{}, f.Kind)
		require.Equal(t, "seg", f.Name)
		require.Equal(t, []byte("abc"), f.Bytes)
	})
}

func TestAnyfuncDeprecationWarning(t *testing.T) {
	m, diags, err := Parse([]byte("(module (table 1 anyfunc))"))
	require.NoError(t, err)
	require.Equal(t, 1, len(diags))
	require.Contains(t, diags[0].Msg, "anyfunc is deprecated")

	// The deprecated spelling still parses to funcref.
	k := m.Fields[0].(*ast.Table).Kind.(*ast.TableKindNormal)
	require.Equal(t, ast.RefTypeFuncref, k.Type.ElemType)
}
