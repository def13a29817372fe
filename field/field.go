// Package field implements the field codec: encoding and decoding of a
// single typed key/value/timestamp tuple to and from its fixed binary
// layout (spec.md §4.1).
//
// A Field has an 8-byte header (magic, type, key, timestamp) followed by
// a type-specific payload: a fixed 4-byte value for Int, or a
// length-prefixed byte run for Bytes and Str.
package field

import (
	"encoding/binary"
	"fmt"

	"github.com/go-fstable/fstable/errs"
	"github.com/go-fstable/fstable/internal/layout"
)

// Type identifies the shape of a Field's payload.
type Type uint8

const (
	// Int fields carry a single big-endian uint32 value.
	Int Type = 1
	// Bytes fields carry a length-prefixed run of raw bytes.
	Bytes Type = 2
	// Str fields carry a length-prefixed run of UTF-8 bytes. Encoded
	// identically to Bytes except for the type tag; see spec.md §3, §9.
	Str Type = 3
)

func (t Type) String() string {
	switch t {
	case Int:
		return "Int"
	case Bytes:
		return "Bytes"
	case Str:
		return "Str"
	default:
		return "Unknown"
	}
}

// maxValueLen is the largest BYTES/STR payload a field can carry: its
// length prefix is a uint16.
const maxValueLen = 65535

// Field is a single decoded key/value/timestamp tuple.
//
// Only the fields relevant to Type are meaningful: Int for Type == Int,
// Bytes for Type == Bytes or Type == Str.
type Field struct {
	Key   uint16
	Type  Type
	TS    uint32
	Int   uint32
	Bytes []byte
}

// NewInt constructs an Int field. TS is left zero; fieldlist.New/Merge
// stamp it.
func NewInt(key uint16, value uint32) Field {
	return Field{Key: key, Type: Int, Int: value}
}

// NewBytes constructs a Bytes field.
func NewBytes(key uint16, value []byte) Field {
	return Field{Key: key, Type: Bytes, Bytes: value}
}

// NewStr constructs a Str field from a UTF-8 string.
func NewStr(key uint16, value string) Field {
	return Field{Key: key, Type: Str, Bytes: []byte(value)}
}

// EncodedLen returns the number of bytes Encode/AppendEncode would write
// for f, or an error if f's payload violates a precondition (an
// oversized Bytes/Str value).
func EncodedLen(f Field) (int, error) {
	switch f.Type {
	case Int:
		return layout.FieldHeaderSize + 4, nil
	case Bytes, Str:
		if len(f.Bytes) > maxValueLen {
			return 0, fmt.Errorf("field: value length %d exceeds %d: %w", len(f.Bytes), maxValueLen, errs.ErrPrecondition)
		}

		return layout.FieldHeaderSize + 2 + len(f.Bytes), nil
	default:
		return 0, fmt.Errorf("field: unknown type %d: %w", f.Type, errs.ErrPrecondition)
	}
}

// AppendEncode appends the encoded form of f to buf and returns the
// extended slice.
func AppendEncode(buf []byte, f Field) ([]byte, error) {
	n, err := EncodedLen(f)
	if err != nil {
		return buf, err
	}

	start := len(buf)
	if cap(buf)-start < n {
		grown := make([]byte, start, start+n)
		copy(grown, buf)
		buf = grown
	}
	buf = buf[:start+n]

	hdr := buf[start : start+layout.FieldHeaderSize]
	hdr[0] = layout.FieldMagic
	hdr[1] = byte(f.Type)
	binary.BigEndian.PutUint16(hdr[2:4], f.Key)
	binary.BigEndian.PutUint32(hdr[4:8], f.TS)

	payload := buf[start+layout.FieldHeaderSize : start+n]
	switch f.Type {
	case Int:
		binary.BigEndian.PutUint32(payload, f.Int)
	case Bytes, Str:
		binary.BigEndian.PutUint16(payload[0:2], uint16(len(f.Bytes)))
		copy(payload[2:], f.Bytes)
	}

	return buf, nil
}

// Encode returns the encoded form of f as a freshly allocated slice.
func Encode(f Field) ([]byte, error) {
	n, err := EncodedLen(f)
	if err != nil {
		return nil, err
	}

	return AppendEncode(make([]byte, 0, n), f)
}

// Decode reads one field from the start of buf, returning the decoded
// Field and the number of bytes consumed.
//
// Decode fails with errs.ErrCorruptField if the magic or type tag is
// invalid, or if buf is too short to hold the declared payload.
func Decode(buf []byte) (Field, int, error) {
	if len(buf) < layout.FieldHeaderSize {
		return Field{}, 0, fmt.Errorf("field: header truncated: %w", errs.ErrCorruptField)
	}

	if buf[0] != layout.FieldMagic {
		return Field{}, 0, fmt.Errorf("field: bad magic 0x%02x: %w", buf[0], errs.ErrCorruptField)
	}

	typ := Type(buf[1])

	f := Field{
		Type: typ,
		Key:  binary.BigEndian.Uint16(buf[2:4]),
		TS:   binary.BigEndian.Uint32(buf[4:8]),
	}

	payload := buf[layout.FieldHeaderSize:]

	switch typ {
	case Int:
		if len(payload) < 4 {
			return Field{}, 0, fmt.Errorf("field: int payload truncated: %w", errs.ErrCorruptField)
		}
		f.Int = binary.BigEndian.Uint32(payload[:4])

		return f, layout.FieldHeaderSize + 4, nil
	case Bytes, Str:
		if len(payload) < 2 {
			return Field{}, 0, fmt.Errorf("field: length prefix truncated: %w", errs.ErrCorruptField)
		}
		valLen := int(binary.BigEndian.Uint16(payload[0:2]))
		if len(payload) < 2+valLen {
			return Field{}, 0, fmt.Errorf("field: value payload truncated: %w", errs.ErrCorruptField)
		}
		f.Bytes = append([]byte(nil), payload[2:2+valLen]...)

		return f, layout.FieldHeaderSize + 2 + valLen, nil
	default:
		return Field{}, 0, fmt.Errorf("field: unknown type tag %d: %w", buf[1], errs.ErrCorruptField)
	}
}
