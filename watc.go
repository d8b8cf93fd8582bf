// Package watc compiles WebAssembly text format source into the binary
// format. It glues the text front-end to the binary encoder; the pieces are
// usable separately via the wat and binary packages.
package watc

import (
	"github.com/wasmkit/watc/ast"
	"github.com/wasmkit/watc/binary"
	"github.com/wasmkit/watc/wat"
)

// Wat2Wasm compiles text-format source into a binary-format module, along
// with any non-fatal diagnostics raised while parsing. The output carries no
// name section; see Wat2WasmDebug.
func Wat2Wasm(source []byte) ([]byte, []wat.Diagnostic, error) {
	return compile(source, binary.EncodeModule)
}

// Wat2WasmDebug is Wat2Wasm plus a "name" custom section preserving the
// module, function and local names from the source.
func Wat2WasmDebug(source []byte) ([]byte, []wat.Diagnostic, error) {
	return compile(source, binary.EncodeModuleWithNames)
}

func compile(source []byte, enc func(*ast.Module) ([]byte, error)) ([]byte, []wat.Diagnostic, error) {
	m, diags, err := wat.Parse(source)
	if err != nil {
		return nil, nil, err
	}
	if err := wat.Bind(m); err != nil {
		return nil, diags, err
	}
	wasm, err := enc(m)
	if err != nil {
		return nil, diags, err
	}
	return wasm, diags, nil
}
