// Package binary encodes a bound module tree into the WebAssembly binary
// format, release 1.0 plus the bulk-memory and reference-types additions the
// text grammar accepts.
//
// Sections are emitted in the canonical order the specification fixes, no
// matter how the source interleaved its fields. Encoding is deterministic:
// the same tree always produces the same bytes.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-module
package binary

import (
	"errors"
	"fmt"

	"github.com/wasmkit/watc/ast"
	"github.com/wasmkit/watc/leb128"
)

// Magic is the 4 byte preamble of every binary-format module.
var Magic = []byte{0x00, 0x61, 0x73, 0x6D}

// Version is format version 1, the only one defined.
var Version = []byte{0x01, 0x00, 0x00, 0x00}

// Section IDs in canonical order. The data-count section sorts between
// element and code despite its ID.
const (
	sectionCustom    byte = 0
	sectionType      byte = 1
	sectionImport    byte = 2
	sectionFunction  byte = 3
	sectionTable     byte = 4
	sectionMemory    byte = 5
	sectionGlobal    byte = 6
	sectionExport    byte = 7
	sectionStart     byte = 8
	sectionElement   byte = 9
	sectionCode      byte = 10
	sectionData      byte = 11
	sectionDataCount byte = 12
)

// ErrUnboundIndex reports an ast.Index that is still symbolic. The encoder
// requires the tree to have gone through the binding pass first.
var ErrUnboundIndex = errors.New("encode: unresolved symbolic index")

// EncodeModule encodes a bound module without the name custom section.
func EncodeModule(m *ast.Module) ([]byte, error) {
	return encode(m, false)
}

// EncodeModuleWithNames encodes a bound module and appends a "name" custom
// section carrying the module, function and local names from the source.
func EncodeModuleWithNames(m *ast.Module) ([]byte, error) {
	return encode(m, true)
}

func encode(m *ast.Module, debugNames bool) ([]byte, error) {
	e := &moduleEncoder{}
	if err := e.bucket(m); err != nil {
		return nil, err
	}

	out := append([]byte{}, Magic...)
	out = append(out, Version...)

	var err error
	if out, err = e.appendTypeSection(out); err != nil {
		return nil, err
	}
	if out, err = e.appendImportSection(out); err != nil {
		return nil, err
	}
	if out, err = e.appendFunctionSection(out); err != nil {
		return nil, err
	}
	out = e.appendTableSection(out)
	out = e.appendMemorySection(out)
	if out, err = e.appendGlobalSection(out); err != nil {
		return nil, err
	}
	if out, err = e.appendExportSection(out); err != nil {
		return nil, err
	}
	if out, err = e.appendStartSection(out); err != nil {
		return nil, err
	}
	if out, err = e.appendElementSection(out); err != nil {
		return nil, err
	}
	out = e.appendDataCountSection(out)
	if out, err = e.appendCodeSection(out); err != nil {
		return nil, err
	}
	if out, err = e.appendDataSection(out); err != nil {
		return nil, err
	}
	if debugNames {
		out = e.appendNameSection(out)
	}
	return out, nil
}

// section frames contents with the section ID and a LEB128 byte length.
func section(out []byte, id byte, contents []byte) []byte {
	out = append(out, id)
	out = append(out, leb128.EncodeUint32(uint32(len(contents)))...)
	return append(out, contents...)
}

// vec prefixes with the element count; the elements themselves were already
// appended to contents by the caller.
func vec(count int, contents []byte) []byte {
	return append(leb128.EncodeUint32(uint32(count)), contents...)
}

func appendName(out []byte, name string) []byte {
	out = append(out, leb128.EncodeUint32(uint32(len(name)))...)
	return append(out, name...)
}

// idxOf extracts the ordinal of a bound index. A nil index means the source
// omitted it and index zero applies.
func idxOf(idx *ast.Index) (uint32, error) {
	if idx == nil {
		return 0, nil
	}
	if !idx.Resolved() {
		return 0, fmt.Errorf("%w: $%s", ErrUnboundIndex, idx.ID)
	}
	return idx.Numeric, nil
}
