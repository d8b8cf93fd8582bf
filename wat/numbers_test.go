package wat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUint32(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected uint32
		ok       bool
	}{
		{name: "zero", input: "0", expected: 0, ok: true},
		{name: "decimal", input: "306", expected: 306, ok: true},
		{name: "underscores", input: "1_000_000", expected: 1000000, ok: true},
		{name: "hex", input: "0xdead", expected: 0xdead, ok: true},
		{name: "hex underscores", input: "0xde_ad", expected: 0xdead, ok: true},
		{name: "max", input: "4294967295", expected: math.MaxUint32, ok: true},
		{name: "overflow", input: "4294967296", ok: false},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			v, ok := parseUint32([]byte(tc.input))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, v)
		})
	}
}

func TestParseInt32(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int32
		ok       bool
	}{
		{name: "positive", input: "123", expected: 123, ok: true},
		{name: "explicit sign", input: "+123", expected: 123, ok: true},
		{name: "negative", input: "-123", expected: -123, ok: true},
		{name: "min", input: "-2147483648", expected: math.MinInt32, ok: true},
		{name: "below min", input: "-2147483649", ok: false},
		// An unsigned spelling larger than MaxInt32 wraps to the equivalent
		// bit pattern, matching (i32.const 4294967295) == (i32.const -1).
		{name: "unsigned wrap", input: "4294967295", expected: -1, ok: true},
		{name: "hex wrap", input: "0xffffffff", expected: -1, ok: true},
		{name: "unsigned overflow", input: "4294967296", ok: false},
		{name: "signed overflow", input: "+2147483648", ok: false},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			v, ok := parseInt32([]byte(tc.input))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, v)
		})
	}
}

func TestParseInt64(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		ok       bool
	}{
		{name: "positive", input: "9223372036854775807", expected: math.MaxInt64, ok: true},
		{name: "min", input: "-9223372036854775808", expected: math.MinInt64, ok: true},
		{name: "below min", input: "-9223372036854775809", ok: false},
		{name: "unsigned wrap", input: "18446744073709551615", expected: -1, ok: true},
		{name: "signed overflow", input: "+9223372036854775808", ok: false},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			v, ok := parseInt64([]byte(tc.input))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, v)
		})
	}
}

func TestParseFloat32Bits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected uint32
		ok       bool
	}{
		{name: "zero", input: "0", expected: 0, ok: true},
		{name: "negative zero", input: "-0.0", expected: 0x8000_0000, ok: true},
		{name: "one", input: "1", expected: math.Float32bits(1), ok: true},
		{name: "pi-ish", input: "3.14", expected: math.Float32bits(3.14), ok: true},
		{name: "exponent", input: "1e10", expected: math.Float32bits(1e10), ok: true},
		{name: "hex float", input: "0x1.8p4", expected: math.Float32bits(24), ok: true},
		{name: "hex no exponent", input: "0x10", expected: math.Float32bits(16), ok: true},
		{name: "inf", input: "inf", expected: 0x7f80_0000, ok: true},
		{name: "negative inf", input: "-inf", expected: 0xff80_0000, ok: true},
		{name: "canonical nan", input: "nan", expected: 0x7fc0_0000, ok: true},
		{name: "negative nan", input: "-nan", expected: 0xffc0_0000, ok: true},
		// NaN payloads are preserved bit-exactly; they do not canonicalize.
		{name: "nan payload", input: "nan:0x200000", expected: 0x7fa0_0000, ok: true},
		{name: "nan payload underscore", input: "nan:0x7f_ffff", expected: 0x7fff_ffff, ok: true},
		{name: "nan payload zero", input: "nan:0x0", ok: false},
		{name: "nan payload too wide", input: "nan:0x800000", ok: false},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			bits, ok := parseFloat32Bits([]byte(tc.input))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, bits)
		})
	}
}

func TestParseFloat64Bits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected uint64
		ok       bool
	}{
		{name: "one half", input: "0.5", expected: math.Float64bits(0.5), ok: true},
		{name: "negative", input: "-2.5", expected: math.Float64bits(-2.5), ok: true},
		{name: "inf", input: "inf", expected: 0x7ff0_0000_0000_0000, ok: true},
		{name: "canonical nan", input: "nan", expected: 0x7ff8_0000_0000_0000, ok: true},
		{name: "nan payload", input: "nan:0x4000000000000", expected: 0x7ff4_0000_0000_0000, ok: true},
		{name: "hex float", input: "0x1p-1", expected: math.Float64bits(0.5), ok: true},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			bits, ok := parseFloat64Bits([]byte(tc.input))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, bits)
		})
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []byte
		expErr   string
	}{
		{name: "empty", input: `""`, expected: []byte{}},
		{name: "plain", input: `"hello"`, expected: []byte("hello")},
		{name: "escapes", input: `"\t\n\r\"\'\\"`, expected: []byte("\t\n\r\"'\\")},
		{name: "hex bytes", input: `"\de\ad"`, expected: []byte{0xde, 0xad}},
		{name: "unicode escape", input: `"\u{1F600}"`, expected: []byte("\U0001F600")},
		{name: "utf8 literal", input: `"héllo"`, expected: []byte("héllo")},
		{name: "bad escape", input: `"\q_"`, expErr: `invalid escape \q`},
		{name: "surrogate", input: `"\u{d800}"`, expErr: "invalid scalar value"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			out, err := unquote([]byte(tc.input))
			if tc.expErr != "" {
				require.ErrorContains(t, err, tc.expErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, out)
		})
	}
}
