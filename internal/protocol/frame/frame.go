// Package frame implements the typed TLV frame variants carried in a frameset.
//
// The variant set is closed: Signature, Opaque, Cstring, Int and Address are
// the only implementations of Frame. A decoded frame never aliases the buffer
// it was decoded from.
package frame

import (
	"bytes"
	"fmt"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/tlv"
)

// Type is the wire tag of a frame.
type Type uint16

// Type tags from the wire contract. Tag 0 is reserved.
const (
	TypeSignature Type = 1
	TypeOpaque    Type = 2
	TypeCstring   Type = 3
	TypeUint8     Type = 4
	TypeUint16    Type = 5
	TypeUint24    Type = 6
	TypeUint32    Type = 7
	TypeUint64    Type = 8
	TypeAddress   Type = 9
)

var typeNames = map[Type]string{
	TypeSignature: "signature",
	TypeOpaque:    "opaque",
	TypeCstring:   "cstring",
	TypeUint8:     "uint8",
	TypeUint16:    "uint16",
	TypeUint24:    "uint24",
	TypeUint32:    "uint32",
	TypeUint64:    "uint64",
	TypeAddress:   "address",
}

// Known reports whether t is part of the closed tag set.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint16(t))
}

// Frame is one typed TLV value.
type Frame interface {
	// Type is the wire tag.
	Type() Type
	// Len is the value length in bytes, excluding the TLV header.
	Len() int
	// Validate checks the variant's structural invariant.
	Validate() error
	// AppendValue appends exactly Len() value bytes to dst.
	AppendValue(dst []byte) []byte
	String() string

	sealed()
}

// EncodedLen is the wire size of f including its TLV header.
func EncodedLen(f Frame) int {
	return tlv.HeaderLen + f.Len()
}

// EncodeTo writes the TLV form of f at the start of dst and returns the number
// of bytes written.
func EncodeTo(dst []byte, f Frame) (int, error) {
	if f == nil {
		return 0, fmt.Errorf("%w: nil frame", protocol.ErrMalformed)
	}
	if err := f.Validate(); err != nil {
		return 0, err
	}
	n := EncodedLen(f)
	if len(dst) < n {
		return 0, fmt.Errorf("%w: %s frame needs %d bytes, %d available",
			protocol.ErrBufferTooSmall, f.Type(), n, len(dst))
	}
	if err := tlv.PutHeader(dst, 0, tlv.Header{Type: uint16(f.Type()), Length: uint32(f.Len())}); err != nil {
		return 0, err
	}
	// capacity is capped at n so the append lands in dst.
	f.AppendValue(dst[tlv.HeaderLen:tlv.HeaderLen:n])
	return n, nil
}

// AppendFrame appends the TLV form of f to dst.
func AppendFrame(dst []byte, f Frame) ([]byte, error) {
	if f == nil {
		return dst, fmt.Errorf("%w: nil frame", protocol.ErrMalformed)
	}
	if err := f.Validate(); err != nil {
		return dst, err
	}
	var head [tlv.HeaderLen]byte
	_ = tlv.PutHeader(head[:], 0, tlv.Header{Type: uint16(f.Type()), Length: uint32(f.Len())})
	dst = append(dst, head[:]...)
	return f.AppendValue(dst), nil
}

// ValidateTLV checks the TLV at the start of buf against its variant rules
// without constructing a Frame.
func ValidateTLV(buf []byte) error {
	h, value, err := tlv.ValueAt(buf, 0)
	if err != nil {
		return err
	}
	t := Type(h.Type)
	if !t.Known() {
		return fmt.Errorf("%w: tag %d", protocol.ErrUnknownFrameType, h.Type)
	}
	return validateValue(t, value)
}

// Decode builds the frame at off and returns the offset following it. Unknown
// tags fail with ErrUnknownFrameType.
func Decode(buf []byte, off int) (Frame, int, error) {
	return decode(buf, off, false)
}

// DecodeLenient is Decode, except that unknown tags are kept as Opaque frames
// carrying their original tag.
func DecodeLenient(buf []byte, off int) (Frame, int, error) {
	return decode(buf, off, true)
}

func decode(buf []byte, off int, lenient bool) (Frame, int, error) {
	h, raw, err := tlv.ValueAt(buf, off)
	if err != nil {
		return nil, off, err
	}
	next := off + tlv.HeaderLen + len(raw)
	t := Type(h.Type)
	if !t.Known() {
		if !lenient {
			return nil, off, fmt.Errorf("%w: tag %d at offset %d", protocol.ErrUnknownFrameType, h.Type, off)
		}
		return &Opaque{tag: t, data: bytes.Clone(raw)}, next, nil
	}
	if err := validateValue(t, raw); err != nil {
		return nil, off, fmt.Errorf("frame at offset %d: %w", off, err)
	}
	f, err := build(t, raw)
	if err != nil {
		return nil, off, fmt.Errorf("frame at offset %d: %w", off, err)
	}
	return f, next, nil
}

// build assumes raw already passed validateValue for t.
func build(t Type, raw []byte) (Frame, error) {
	switch t {
	case TypeSignature:
		return &Signature{digest: bytes.Clone(raw)}, nil
	case TypeOpaque:
		return &Opaque{tag: TypeOpaque, data: bytes.Clone(raw)}, nil
	case TypeCstring:
		return &Cstring{s: string(raw[:len(raw)-1])}, nil
	case TypeUint8, TypeUint16, TypeUint24, TypeUint32, TypeUint64:
		return decodeInt(t, raw)
	case TypeAddress:
		fam, _ := tlv.GetU16(raw, 0)
		return &Address{family: Family(fam), addr: bytes.Clone(raw[2:])}, nil
	default:
		return nil, fmt.Errorf("%w: tag %d", protocol.ErrUnknownFrameType, uint16(t))
	}
}

func validateValue(t Type, v []byte) error {
	switch t {
	case TypeSignature, TypeOpaque:
		return nil
	case TypeCstring:
		return validateCstring(v)
	case TypeUint8, TypeUint16, TypeUint24, TypeUint32, TypeUint64:
		return validateInt(t, v)
	case TypeAddress:
		return validateAddress(v)
	default:
		return fmt.Errorf("%w: tag %d", protocol.ErrUnknownFrameType, uint16(t))
	}
}

// Equal reports whether a and b carry the same tag and value bytes.
func Equal(a, b Frame) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() || a.Len() != b.Len() {
		return false
	}
	return bytes.Equal(a.AppendValue(nil), b.AppendValue(nil))
}
