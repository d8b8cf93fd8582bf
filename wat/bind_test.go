package wat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/watc/ast"
)

func parseAndBind(t *testing.T, source string) *ast.Module {
	t.Helper()
	m, _, err := Parse([]byte(source))
	require.NoError(t, err)
	require.NoError(t, Bind(m))
	return m
}

func TestBindResolvesForwardReferences(t *testing.T) {
	// $main is referenced before it is defined.
	m := parseAndBind(t, `
		(module
		  (start $main)
		  (func $main))`)
	start := m.Fields[0].(*ast.Start)
	require.True(t, start.Index.Resolved())
	require.Equal(t, uint32(0), start.Index.Numeric)
}

func TestBindImportsComeFirst(t *testing.T) {
	m := parseAndBind(t, `
		(module
		  (import "env" "f" (func $imported))
		  (func $defined)
		  (export "d" (func $defined))
		  (export "i" (func $imported)))`)
	require.Equal(t, uint32(1), m.Fields[2].(*ast.Export).Index.Numeric)
	require.Equal(t, uint32(0), m.Fields[3].(*ast.Export).Index.Numeric)
}

func TestBindImportAfterDefinition(t *testing.T) {
	m, _, err := Parse([]byte(`
		(module
		  (func $defined)
		  (import "env" "f" (func $imported)))`))
	require.NoError(t, err)
	require.ErrorContains(t, Bind(m), "function import after function definition")
}

func TestBindElemIndices(t *testing.T) {
	m := parseAndBind(t, `
		(module
		  (table $t 2 funcref)
		  (func $a)
		  (func $b)
		  (elem (table $t) (i32.const 0) func $b $a))`)
	elem := m.Fields[3].(*ast.Elem)
	active := elem.Kind.(*ast.ElemKindActive)
	require.Equal(t, uint32(0), active.Table.Numeric)
	indices := elem.Payload.(*ast.ElemPayloadIndices).Indices
	require.Equal(t, uint32(1), indices[0].Numeric)
	require.Equal(t, uint32(0), indices[1].Numeric)
}

func TestBindElemExprPayload(t *testing.T) {
	m := parseAndBind(t, `
		(module
		  (func $f)
		  (elem funcref (ref.func $f) (ref.null func)))`)
	exprs := m.Fields[1].(*ast.Elem).Payload.(*ast.ElemPayloadExprs).Exprs
	require.Equal(t, uint32(0), exprs[0].Numeric)
	require.Nil(t, exprs[1])
}

func TestBindInstructionIndices(t *testing.T) {
	m := parseAndBind(t, `
		(module
		  (global $g (mut i32) (i32.const 0))
		  (func $inc
		    (global.set $g (i32.add (global.get $g) (i32.const 1)))
		    (call $inc)))`)
	body := m.Fields[1].(*ast.Func).Body
	for i := range body {
		if body[i].Idx != nil {
			require.True(t, body[i].Idx.Resolved(), "instr %d %s", i, body[i].Name)
		}
	}
}

func TestBindUnknownNames(t *testing.T) {
	tests := []struct {
		name   string
		source string
		expMsg string
	}{
		{
			name:   "unknown function",
			source: "(module (start $missing))",
			expMsg: "unknown function: $missing",
		},
		{
			name:   "unknown table",
			source: "(module (elem (table $missing) (i32.const 0) func))",
			expMsg: "unknown table: $missing",
		},
		{
			name:   "unknown global",
			source: "(module (func (drop (global.get $missing))))",
			expMsg: "unknown global: $missing",
		},
		{
			name:   "unknown element segment",
			source: "(module (func (elem.drop $missing)))",
			expMsg: "unknown element segment: $missing",
		},
		{
			name:   "duplicate name",
			source: "(module (func $f) (func $f))",
			expMsg: "duplicate function name: $f",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			m, _, err := Parse([]byte(tc.source))
			require.NoError(t, err)
			require.ErrorContains(t, Bind(m), tc.expMsg)
		})
	}
}

func TestBindTypeInterning(t *testing.T) {
	t.Run("inline signature reuses an equal type", func(t *testing.T) {
		m := parseAndBind(t, `
			(module
			  (type $sig (func (param i32) (result i32)))
			  (func (param i32) (result i32) (local.get 0)))`)
		require.Equal(t, 2, len(m.Fields)) // no synthesized type
		f := m.Fields[1].(*ast.Func)
		require.Equal(t, uint32(0), f.Type.Index.Numeric)
	})

	t.Run("inline signature appends a new type", func(t *testing.T) {
		m := parseAndBind(t, `
			(module
			  (type $sig (func))
			  (func (param f64)))`)
		require.Equal(t, 3, len(m.Fields))
		f := m.Fields[1].(*ast.Func)
		require.Equal(t, uint32(1), f.Type.Index.Numeric)
		added := m.Fields[2].(*ast.TypeDef)
		require.Equal(t, []ast.ValueType{ast.ValueTypeF64}, added.Func.Params)
	})

	t.Run("distinct empty signatures intern once", func(t *testing.T) {
		m := parseAndBind(t, "(module (func) (func))")
		require.Equal(t, 3, len(m.Fields)) // two funcs, one synthesized type
	})

	t.Run("type reference by name", func(t *testing.T) {
		m := parseAndBind(t, `
			(module
			  (type $sig (func (result i32)))
			  (func (type $sig) (i32.const 7)))`)
		f := m.Fields[1].(*ast.Func)
		require.Equal(t, uint32(0), f.Type.Index.Numeric)
	})

	t.Run("disagreeing inline signature", func(t *testing.T) {
		m, _, err := Parse([]byte(`
			(module
			  (type $sig (func (param i32)))
			  (func (type $sig) (param f32)))`))
		require.NoError(t, err)
		require.ErrorContains(t, Bind(m), "inline signature disagrees with type definition")
	})
}

func TestBindTableOpIndices(t *testing.T) {
	m := parseAndBind(t, `
		(module
		  (table $a 1 funcref)
		  (table $b 1 funcref)
		  (elem $seg func)
		  (func
		    (table.init $b $seg (i32.const 0) (i32.const 0) (i32.const 0))
		    (table.copy $b $a (i32.const 0) (i32.const 0) (i32.const 0))))`)
	body := m.Fields[3].(*ast.Func).Body
	var initIn, copyIn *ast.Instruction
	for i := range body {
		switch {
		case body[i].Misc == ast.MiscTableInit && body[i].Opcode == ast.OpcodeMiscPrefix:
			initIn = &body[i]
		case body[i].Misc == ast.MiscTableCopy && body[i].Opcode == ast.OpcodeMiscPrefix:
			copyIn = &body[i]
		}
	}
	require.NotNil(t, initIn)
	require.Equal(t, uint32(1), initIn.Idx2.Numeric) // table $b
	require.Equal(t, uint32(0), initIn.Idx.Numeric)  // segment
	require.NotNil(t, copyIn)
	require.Equal(t, uint32(1), copyIn.Idx.Numeric)  // dst $b
	require.Equal(t, uint32(0), copyIn.Idx2.Numeric) // src $a
}
