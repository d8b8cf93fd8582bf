// Package wat parses the WebAssembly text format into the ast package's
// tree, and binds symbolic indices to ordinals.
package wat

import "github.com/wasmkit/watc/ast"

// tokenKind is the set of tokens defined by the WebAssembly Text Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#tokens%E2%91%A0
type tokenKind byte

const (
	tokenInvalid tokenKind = iota

	// tokenKeyword is a sequence of idChar characters prefixed by a
	// lowercase letter, ex. 'table' or 'i32.const'.
	tokenKeyword

	// tokenUN is an unsigned integer in decimal or hexadecimal notation,
	// optionally separated by underscores, ex. 10, 1_0 or 0x0a.
	tokenUN

	// tokenSN is a signed integer, ex. +10 or -0x0a.
	tokenSN

	// tokenFN is a floating point number in decimal or hexadecimal notation,
	// including the special constants 'inf', 'nan' and 'nan:0x...'.
	tokenFN

	// tokenString is a byte string enclosed by quotation marks. Characters
	// correspond to UTF-8 encoding except the escape forms '\hh' and
	// '\u{...}'.
	tokenString

	// tokenID is a sequence of idChar characters prefixed by '$', ex. $main.
	tokenID

	// tokenLParen is '('.
	tokenLParen

	// tokenRParen is ')'.
	tokenRParen

	// tokenReserved is a sequence of idChar characters that is none of the
	// above, ex. '0$y'.
	tokenReserved

	// tokenEOF is the sentinel after the last real token; its span is the
	// empty range at the end of input.
	tokenEOF
)

// tokenNames is index-coordinated with tokenKind.
var tokenNames = [...]string{
	"invalid",
	"keyword",
	"uN",
	"sN",
	"fN",
	"string",
	"ID",
	"'('",
	"')'",
	"reserved",
	"end of input",
}

func (t tokenKind) String() string {
	return tokenNames[t]
}

// token is one tagged span of source. Immutable once produced; the bytes are
// recovered by slicing the source with the span.
type token struct {
	kind tokenKind
	span ast.Span
}

// keyword enumerates the closed set of structural reserved words. Membership
// is one lookup in the keywords map; instruction names are dispatched by the
// code parser's own table instead.
type keyword byte

const (
	kwNone keyword = iota
	kwModule
	kwType
	kwImport
	kwExport
	kwFunc
	kwTable
	kwMemory
	kwGlobal
	kwStart
	kwElem
	kwData
	kwOffset
	kwItem
	kwDeclare
	kwParam
	kwResult
	kwLocal
	kwMut
	kwFuncref
	kwExternref
	kwAnyfunc
	kwRefNull
	kwRefFunc
	kwThen
	kwElse
)

var keywords = map[string]keyword{
	"module":    kwModule,
	"type":      kwType,
	"import":    kwImport,
	"export":    kwExport,
	"func":      kwFunc,
	"table":     kwTable,
	"memory":    kwMemory,
	"global":    kwGlobal,
	"start":     kwStart,
	"elem":      kwElem,
	"data":      kwData,
	"offset":    kwOffset,
	"item":      kwItem,
	"declare":   kwDeclare,
	"param":     kwParam,
	"result":    kwResult,
	"local":     kwLocal,
	"mut":       kwMut,
	"funcref":   kwFuncref,
	"externref": kwExternref,
	"anyfunc":   kwAnyfunc,
	"ref.null":  kwRefNull,
	"ref.func":  kwRefFunc,
	"then":      kwThen,
	"else":      kwElse,
}

// constants below help format a somewhat readable lookup table that eases
// identification of tokens.
const (
	// xx is an invalid token start byte
	xx = tokenInvalid
	// xs is the start of tokenString ('"')
	xs = tokenString
	// xi is the start of tokenID ('$')
	xi = tokenID
	// lp is the start of tokenLParen ('(')
	lp = tokenLParen
	// rp is the start of tokenRParen (')')
	rp = tokenRParen
	// un is the start of a tokenUN (or tokenFN)
	un = tokenUN
	// sn is the start of a tokenSN (or tokenFN)
	sn = tokenSN
	// xk is the start of a tokenKeyword
	xk = tokenKeyword
	// xr is the start of tokenReserved (valid idChar, but none of the above)
	xr = tokenReserved
)

// firstTokenByte classifies a token by its first byte. All expected token
// starts are ASCII.
var firstTokenByte = [256]tokenKind{
	//   1   2   3   4   5   6   7   8   9   A   B   C   D   E   F
	xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, // 0x00-0x0F
	xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, xx, // 0x10-0x1F
	xx, xr, xs, xr, xi, xr, xr, xr, lp, rp, xr, sn, xx, sn, xr, xr, // 0x20-0x2F
	un, un, un, un, un, un, un, un, un, un, xr, xx, xr, xr, xr, xr, // 0x30-0x3F
	xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, // 0x40-0x4F
	xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, xr, xx, xr, xx, xr, xr, // 0x50-0x5F
	xr, xk, xk, xk, xk, xk, xk, xk, xk, xk, xk, xk, xk, xk, xk, xk, // 0x60-0x6F
	xk, xk, xk, xk, xk, xk, xk, xk, xk, xk, xk, xx, xr, xx, xr, xx, // 0x70-0x7F
}

// idChar is a printable ASCII character that is not a space, quotation mark,
// comma, semicolon, or bracket.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#text-idchar
var idChar = buildIdChars()

func buildIdChars() (result [256]bool) {
	for i := 0; i < 128; i++ {
		result[i] = isIDChar(byte(i))
	}
	return
}

func isIDChar(ch byte) bool {
	switch ch {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '/', ':', '<', '=', '>', '?', '@', '\\', '^', '_', '`', '|', '~':
		return true
	}
	switch {
	case ch >= '0' && ch <= '9':
		return true
	case ch >= 'a' && ch <= 'z':
		return true
	case ch >= 'A' && ch <= 'Z':
		return true
	}
	return false
}

// utf8Size returns the size of the UTF-8 rune based on its first byte, or
// zero for an invalid start byte.
//
// Note: The null byte (0x00) is included as it is valid in string tokens and
// comments. Subsequent bytes are not validated, intentionally, to keep
// lexing allocation free.
var utf8Size = [256]int{
	// 1  2  3  4  5  6  7  8  9  A  B  C  D  E  F
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0x00-0x0F
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0x10-0x1F
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0x20-0x2F
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0x30-0x3F
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0x40-0x4F
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0x50-0x5F
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0x60-0x6F
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, // 0x70-0x7F
	// 1  2  3  4  5  6  7  8  9  A  B  C  D  E  F
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // 0x80-0x8F
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // 0x90-0x9F
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // 0xA0-0xAF
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // 0xB0-0xBF
	0, 0, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, // 0xC0-0xCF
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, // 0xD0-0xDF
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, // 0xE0-0xEF
	4, 4, 4, 4, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // 0xF0-0xFF
}

// stripDollar returns the ID token's bytes without the leading '$'. Names
// read from the text format are stored without it, matching how wabt tools
// round-trip the custom name section.
func stripDollar(tokenBytes []byte) string {
	return string(tokenBytes[1:])
}
