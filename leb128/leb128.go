// Package leb128 implements the variable-length integer encoding used
// throughout the WebAssembly binary format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#integers%E2%91%A4
package leb128

import (
	"fmt"
	"io"
)

// EncodeUint32 appends the unsigned LEB128 encoding of value to a new slice.
func EncodeUint32(value uint32) []byte {
	return EncodeUint64(uint64(value))
}

// EncodeUint64 appends the unsigned LEB128 encoding of value to a new slice.
func EncodeUint64(value uint64) (buf []byte) {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if value == 0 {
			return
		}
	}
}

// EncodeInt32 appends the signed LEB128 encoding of value to a new slice.
func EncodeInt32(value int32) []byte {
	return EncodeInt64(int64(value))
}

// EncodeInt64 appends the signed LEB128 encoding of value to a new slice.
func EncodeInt64(value int64) (buf []byte) {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		// The sign bit of the last encoded byte must agree with the value's sign.
		if (value == 0 && b&0x40 == 0) || (value == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// DecodeUint32 decodes an unsigned LEB128 uint32 from r, returning the value
// and the number of bytes read.
func DecodeUint32(r io.ByteReader) (ret uint32, num uint64, err error) {
	v, n, err := DecodeUint64(r)
	if err != nil {
		return 0, 0, err
	} else if v > 0xffffffff || n > 5 {
		return 0, 0, fmt.Errorf("uint32 overflows 32 bits")
	}
	return uint32(v), n, nil
}

// DecodeUint64 decodes an unsigned LEB128 uint64 from r, returning the value
// and the number of bytes read.
func DecodeUint64(r io.ByteReader) (ret uint64, num uint64, err error) {
	for shift := 0; shift < 64; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return ret, num, nil
		}
	}
	return 0, 0, fmt.Errorf("uint64 overflows 64 bits")
}

// DecodeInt32 decodes a signed LEB128 int32 from r, returning the value and
// the number of bytes read.
func DecodeInt32(r io.ByteReader) (ret int32, num uint64, err error) {
	var shift int
	var b byte
	for shift < 35 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 32 && b&0x40 != 0 {
		ret |= -1 << shift
	}
	return
}

// DecodeInt64 decodes a signed LEB128 int64 from r, returning the value and
// the number of bytes read.
func DecodeInt64(r io.ByteReader) (ret int64, num uint64, err error) {
	var shift int
	var b byte
	for shift < 64 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		ret |= -1 << shift
	}
	return
}
