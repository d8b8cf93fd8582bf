package wat

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Numeric tokens allow underscore separators, ex. 1_000 or 0x0_A, which
// strconv doesn't accept, so digits are stripped before conversion. Bit
// length interpretation is not defined at the lexing layer; range is
// enforced here where the parser knows the expected width.

func stripUnderscores(tokenBytes []byte) string {
	if !bytes.ContainsRune(tokenBytes, '_') {
		return string(tokenBytes)
	}
	return strings.ReplaceAll(string(tokenBytes), "_", "")
}

// parseUint64 decodes a tokenUN in decimal or hexadecimal notation.
func parseUint64(tokenBytes []byte) (uint64, bool) {
	s := stripUnderscores(tokenBytes)
	var v uint64
	var err error
	if strings.HasPrefix(s, "0x") {
		v, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	return v, err == nil
}

// parseUint32 decodes a tokenUN or returns false on overflow.
func parseUint32(tokenBytes []byte) (uint32, bool) {
	v, ok := parseUint64(tokenBytes)
	if !ok || v > math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}

// parseInt64 decodes a tokenSN or tokenUN as a 64-bit integer constant.
// An unsigned spelling up to 2^64-1 wraps to the equivalent bit pattern, so
// (i64.const 18446744073709551615) and (i64.const -1) agree.
func parseInt64(tokenBytes []byte) (int64, bool) {
	neg := false
	digits := tokenBytes
	switch tokenBytes[0] {
	case '-':
		neg = true
		digits = digits[1:]
	case '+':
		digits = digits[1:]
	}
	v, ok := parseUint64(digits)
	if !ok {
		return 0, false
	}
	if neg {
		if v > 1<<63 {
			return 0, false
		}
		return -int64(v), true
	}
	if tokenBytes[0] == '+' && v > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

// parseInt32 decodes a tokenSN or tokenUN as a 32-bit integer constant with
// the same wrap rule as parseInt64.
func parseInt32(tokenBytes []byte) (int32, bool) {
	neg := false
	digits := tokenBytes
	switch tokenBytes[0] {
	case '-':
		neg = true
		digits = digits[1:]
	case '+':
		digits = digits[1:]
	}
	v, ok := parseUint64(digits)
	if !ok {
		return 0, false
	}
	if neg {
		if v > 1<<31 {
			return 0, false
		}
		return -int32(v), true
	}
	if v > math.MaxUint32 || (tokenBytes[0] == '+' && v > math.MaxInt32) {
		return 0, false
	}
	return int32(uint32(v)), true
}

// parseFloat64Bits decodes a float constant to its IEEE-754 bits, so NaN
// payloads, ex. nan:0x4000000000000, survive exactly.
func parseFloat64Bits(tokenBytes []byte) (uint64, bool) {
	s := stripUnderscores(tokenBytes)
	sign := uint64(0)
	switch {
	case strings.HasPrefix(s, "-"):
		sign = 1 << 63
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	switch {
	case s == "inf":
		return sign | 0x7ff0000000000000, true
	case s == "nan":
		return sign | 0x7ff8000000000000, true
	case strings.HasPrefix(s, "nan:0x"):
		payload, err := strconv.ParseUint(s[len("nan:0x"):], 16, 64)
		if err != nil || payload == 0 || payload >= 1<<52 {
			return 0, false
		}
		return sign | 0x7ff0000000000000 | payload, true
	}

	// Hexadecimal floats may omit the binary exponent in the text format,
	// but strconv requires one.
	if strings.HasPrefix(s, "0x") && !strings.ContainsAny(s, "pP") {
		s += "p0"
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return sign | math.Float64bits(f), true
}

// parseFloat32Bits is parseFloat64Bits at 32-bit width.
func parseFloat32Bits(tokenBytes []byte) (uint32, bool) {
	s := stripUnderscores(tokenBytes)
	sign := uint32(0)
	switch {
	case strings.HasPrefix(s, "-"):
		sign = 1 << 31
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	switch {
	case s == "inf":
		return sign | 0x7f800000, true
	case s == "nan":
		return sign | 0x7fc00000, true
	case strings.HasPrefix(s, "nan:0x"):
		payload, err := strconv.ParseUint(s[len("nan:0x"):], 16, 32)
		if err != nil || payload == 0 || payload >= 1<<23 {
			return 0, false
		}
		return sign | 0x7f800000 | uint32(payload), true
	}

	if strings.HasPrefix(s, "0x") && !strings.ContainsAny(s, "pP") {
		s += "p0"
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, false
	}
	return sign | math.Float32bits(float32(f)), true
}

// unquote decodes a tokenString, including its enclosing quotes, to the raw
// bytes it denotes. '\hh' contributes a raw byte; '\u{...}' contributes the
// UTF-8 encoding of the scalar value; the single-character escapes are
// \t \n \r \" \' and \\.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#strings%E2%91%A0
func unquote(tokenBytes []byte) ([]byte, error) {
	in := tokenBytes[1 : len(tokenBytes)-1]
	// Fast path: no escapes means the bytes are literal.
	if !bytes.ContainsRune(in, '\\') {
		return append([]byte{}, in...), nil
	}

	out := make([]byte, 0, len(in))
	for i := 0; i < len(in); i++ {
		c := in[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i == len(in) {
			return nil, fmt.Errorf("truncated escape sequence")
		}
		switch e := in[i]; e {
		case 't':
			out = append(out, '\t')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case '"', '\'', '\\':
			out = append(out, e)
		case 'u':
			if i+1 == len(in) || in[i+1] != '{' {
				return nil, fmt.Errorf("expected '{' after \\u")
			}
			close := bytes.IndexByte(in[i+2:], '}')
			if close < 0 {
				return nil, fmt.Errorf("expected '}' to end \\u escape")
			}
			hex := stripUnderscores(in[i+2 : i+2+close])
			v, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || v > 0x10ffff || (v >= 0xd800 && v < 0xe000) {
				return nil, fmt.Errorf("invalid scalar value in \\u escape: %s", hex)
			}
			var buf [4]byte
			n := utf8.EncodeRune(buf[:], rune(v))
			out = append(out, buf[:n]...)
			i += 2 + close
		default:
			hi, ok1 := hexDigit(e)
			if i+1 == len(in) {
				return nil, fmt.Errorf("truncated escape sequence")
			}
			lo, ok2 := hexDigit(in[i+1])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("invalid escape \\%c", e)
			}
			out = append(out, hi<<4|lo)
			i++
		}
	}
	return out, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
