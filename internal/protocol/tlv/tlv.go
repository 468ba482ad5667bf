package tlv

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/framewire/internal/protocol"
)

// HeaderLen is the wire size of a TLV header: type(2) + length(4).
const HeaderLen = 6

// MaxUint24 is the largest value a 3-byte field can carry.
const MaxUint24 = 0xFFFFFF

// Header is one decoded TLV header.
type Header struct {
	Type   uint16
	Length uint32
}

// Field is one decoded TLV field. Value never aliases the source buffer.
type Field struct {
	Type  uint16
	Value []byte
}

// span reports whether [off, off+n) lies inside buf.
func span(buf []byte, off, n int) bool {
	return off >= 0 && n >= 0 && uint64(off)+uint64(n) <= uint64(len(buf))
}

func outOfBounds(op string, off, width, size int) error {
	return fmt.Errorf("%w: %s at offset %d width %d buffer %d", protocol.ErrOutOfBounds, op, off, width, size)
}

func GetU8(buf []byte, off int) (uint8, error) {
	if !span(buf, off, 1) {
		return 0, outOfBounds("get u8", off, 1, len(buf))
	}
	return buf[off], nil
}

func GetU16(buf []byte, off int) (uint16, error) {
	if !span(buf, off, 2) {
		return 0, outOfBounds("get u16", off, 2, len(buf))
	}
	return binary.BigEndian.Uint16(buf[off : off+2]), nil
}

// GetU24 reads a 3-byte IEEE OUI style integer: (b0<<16) | be16(b1..b2).
func GetU24(buf []byte, off int) (uint32, error) {
	if !span(buf, off, 3) {
		return 0, outOfBounds("get u24", off, 3, len(buf))
	}
	hi := uint32(buf[off]) << 16
	return hi | uint32(binary.BigEndian.Uint16(buf[off+1:off+3])), nil
}

func GetU32(buf []byte, off int) (uint32, error) {
	if !span(buf, off, 4) {
		return 0, outOfBounds("get u32", off, 4, len(buf))
	}
	return binary.BigEndian.Uint32(buf[off : off+4]), nil
}

func GetU64(buf []byte, off int) (uint64, error) {
	if !span(buf, off, 8) {
		return 0, outOfBounds("get u64", off, 8, len(buf))
	}
	return binary.BigEndian.Uint64(buf[off : off+8]), nil
}

func PutU8(buf []byte, off int, v uint8) error {
	if !span(buf, off, 1) {
		return outOfBounds("put u8", off, 1, len(buf))
	}
	buf[off] = v
	return nil
}

func PutU16(buf []byte, off int, v uint16) error {
	if !span(buf, off, 2) {
		return outOfBounds("put u16", off, 2, len(buf))
	}
	binary.BigEndian.PutUint16(buf[off:off+2], v)
	return nil
}

// PutU24 writes the mirror split of GetU24. Values above MaxUint24 are refused
// rather than truncated.
func PutU24(buf []byte, off int, v uint32) error {
	if v > MaxUint24 {
		return fmt.Errorf("%w: value %#x exceeds 24 bits", protocol.ErrOutOfBounds, v)
	}
	if !span(buf, off, 3) {
		return outOfBounds("put u24", off, 3, len(buf))
	}
	buf[off] = byte(v >> 16)
	binary.BigEndian.PutUint16(buf[off+1:off+3], uint16(v&0xFFFF))
	return nil
}

func PutU32(buf []byte, off int, v uint32) error {
	if !span(buf, off, 4) {
		return outOfBounds("put u32", off, 4, len(buf))
	}
	binary.BigEndian.PutUint32(buf[off:off+4], v)
	return nil
}

func PutU64(buf []byte, off int, v uint64) error {
	if !span(buf, off, 8) {
		return outOfBounds("put u64", off, 8, len(buf))
	}
	binary.BigEndian.PutUint64(buf[off:off+8], v)
	return nil
}

// ReadHeader decodes the TLV header at off. A header that does not fit is
// reported as ErrTruncated.
func ReadHeader(buf []byte, off int) (Header, error) {
	if !span(buf, off, HeaderLen) {
		return Header{}, fmt.Errorf("%w: tlv header at offset %d, %d bytes remain",
			protocol.ErrTruncated, off, remaining(buf, off))
	}
	typ, _ := GetU16(buf, off)
	length, _ := GetU32(buf, off+2)
	return Header{Type: typ, Length: length}, nil
}

// PutHeader encodes h at off.
func PutHeader(buf []byte, off int, h Header) error {
	if !span(buf, off, HeaderLen) {
		return fmt.Errorf("%w: tlv header at offset %d needs %d bytes, %d available",
			protocol.ErrBufferTooSmall, off, HeaderLen, remaining(buf, off))
	}
	_ = PutU16(buf, off, h.Type)
	_ = PutU32(buf, off+2, h.Length)
	return nil
}

// ValueAt returns the header at off and a sub-slice over its value. The value
// aliases buf; callers that retain it must copy.
func ValueAt(buf []byte, off int) (Header, []byte, error) {
	h, err := ReadHeader(buf, off)
	if err != nil {
		return Header{}, nil, err
	}
	start := off + HeaderLen
	if uint64(h.Length) > uint64(len(buf)-start) {
		return Header{}, nil, fmt.Errorf("%w: tlv type %d at offset %d declares %d value bytes, %d remain",
			protocol.ErrTruncated, h.Type, off, h.Length, len(buf)-start)
	}
	end := start + int(h.Length)
	return h, buf[start:end:end], nil
}

// Next decodes the field at off and returns the offset of the following field.
func Next(buf []byte, off int) (Field, int, error) {
	h, raw, err := ValueAt(buf, off)
	if err != nil {
		return Field{}, off, err
	}
	val := make([]byte, len(raw))
	copy(val, raw)
	return Field{Type: h.Type, Value: val}, off + HeaderLen + len(raw), nil
}

// EncodedLen is the wire size of f.
func EncodedLen(f Field) int {
	return HeaderLen + len(f.Value)
}

// AppendField appends the wire form of f to dst.
func AppendField(dst []byte, f Field) ([]byte, error) {
	if uint64(len(f.Value)) > uint64(^uint32(0)) {
		return dst, fmt.Errorf("%w: value of %d bytes exceeds u32 length", protocol.ErrMalformed, len(f.Value))
	}
	var head [HeaderLen]byte
	_ = PutHeader(head[:], 0, Header{Type: f.Type, Length: uint32(len(f.Value))})
	dst = append(dst, head[:]...)
	return append(dst, f.Value...), nil
}

func EncodeField(f Field) ([]byte, error) {
	return AppendField(make([]byte, 0, EncodedLen(f)), f)
}

func EncodeFields(fields []Field) ([]byte, error) {
	size := 0
	for _, f := range fields {
		size += EncodedLen(f)
	}
	out := make([]byte, 0, size)
	var err error
	for _, f := range fields {
		if out, err = AppendField(out, f); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeFields walks a flat TLV list. Every field consumes at least HeaderLen
// bytes so the walk is bounded by len(payload)/HeaderLen iterations.
func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0, 4)
	for off := 0; off < len(payload); {
		f, next, err := Next(payload, off)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		off = next
	}
	return fields, nil
}

func remaining(buf []byte, off int) int {
	if off < 0 || off > len(buf) {
		return 0
	}
	return len(buf) - off
}
