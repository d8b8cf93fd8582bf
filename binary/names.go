package binary

import (
	"github.com/wasmkit/watc/leb128"
)

// Subsection IDs of the "name" custom section.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-namesec
const (
	nameSubsectionModule   byte = 0
	nameSubsectionFunction byte = 1
	nameSubsectionLocal    byte = 2
)

// appendNameSection emits the "name" custom section after the data section,
// carrying whatever "$id" names the source gave. Within each name map the
// associations are already index-ordered because bucketing walked the fields
// in source order.
func (e *moduleEncoder) appendNameSection(out []byte) []byte {
	if e.moduleName == "" && len(e.funcNames) == 0 && len(e.localNames) == 0 {
		return out
	}
	var contents []byte
	contents = appendName(contents, "name")

	if e.moduleName != "" {
		contents = appendSubsection(contents, nameSubsectionModule,
			appendName(nil, e.moduleName))
	}

	if len(e.funcNames) > 0 {
		contents = appendSubsection(contents, nameSubsectionFunction,
			appendNameMap(nil, e.funcNames))
	}

	if len(e.localNames) > 0 {
		var sub []byte
		sub = append(sub, leb128.EncodeUint32(uint32(len(e.localNames)))...)
		for _, assoc := range e.localNames {
			sub = append(sub, leb128.EncodeUint32(assoc.funcIdx)...)
			sub = appendNameMap(sub, assoc.locals)
		}
		contents = appendSubsection(contents, nameSubsectionLocal, sub)
	}

	return section(out, sectionCustom, contents)
}

func appendSubsection(out []byte, id byte, contents []byte) []byte {
	out = append(out, id)
	out = append(out, leb128.EncodeUint32(uint32(len(contents)))...)
	return append(out, contents...)
}

func appendNameMap(out []byte, assocs []nameAssoc) []byte {
	out = append(out, leb128.EncodeUint32(uint32(len(assocs)))...)
	for _, a := range assocs {
		out = append(out, leb128.EncodeUint32(a.idx)...)
		out = appendName(out, a.name)
	}
	return out
}
