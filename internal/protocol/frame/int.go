package frame

import (
	"fmt"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/tlv"
)

// Int is a fixed-width unsigned integer, big-endian on the wire.
type Int struct {
	t Type
	v uint64
}

var intWidths = map[Type]int{
	TypeUint8:  1,
	TypeUint16: 2,
	TypeUint24: 3,
	TypeUint32: 4,
	TypeUint64: 8,
}

func NewUint8(v uint8) *Int   { return &Int{t: TypeUint8, v: uint64(v)} }
func NewUint16(v uint16) *Int { return &Int{t: TypeUint16, v: uint64(v)} }
func NewUint32(v uint32) *Int { return &Int{t: TypeUint32, v: uint64(v)} }
func NewUint64(v uint64) *Int { return &Int{t: TypeUint64, v: v} }

// NewUint24 builds a 3-byte integer frame, used for IEEE OUI values.
func NewUint24(v uint32) (*Int, error) {
	f := &Int{t: TypeUint24, v: uint64(v)}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Int) Type() Type { return f.t }

func (f *Int) Len() int { return intWidths[f.t] }

// Width is the wire width in bits.
func (f *Int) Width() int { return intWidths[f.t] * 8 }

func (f *Int) Value() uint64 { return f.v }

func (f *Int) Validate() error {
	w, ok := intWidths[f.t]
	if !ok {
		return fmt.Errorf("%w: %s is not an integer type", protocol.ErrMalformed, f.t)
	}
	if w < 8 && f.v>>(uint(w)*8) != 0 {
		return fmt.Errorf("%w: %d does not fit in %s", protocol.ErrMalformed, f.v, f.t)
	}
	return nil
}

func (f *Int) AppendValue(dst []byte) []byte {
	var b [8]byte
	switch f.t {
	case TypeUint8:
		_ = tlv.PutU8(b[:], 0, uint8(f.v))
	case TypeUint16:
		_ = tlv.PutU16(b[:], 0, uint16(f.v))
	case TypeUint24:
		_ = tlv.PutU24(b[:], 0, uint32(f.v)&tlv.MaxUint24)
	case TypeUint32:
		_ = tlv.PutU32(b[:], 0, uint32(f.v))
	case TypeUint64:
		_ = tlv.PutU64(b[:], 0, f.v)
	}
	return append(dst, b[:intWidths[f.t]]...)
}

func (f *Int) String() string {
	return fmt.Sprintf("%s(%d)", f.t, f.v)
}

func (*Int) sealed() {}

func validateInt(t Type, v []byte) error {
	if want := intWidths[t]; len(v) != want {
		return fmt.Errorf("%w: %s value is %d bytes, want %d", protocol.ErrMalformed, t, len(v), want)
	}
	return nil
}

func decodeInt(t Type, v []byte) (*Int, error) {
	var (
		n   uint64
		err error
	)
	switch t {
	case TypeUint8:
		var x uint8
		x, err = tlv.GetU8(v, 0)
		n = uint64(x)
	case TypeUint16:
		var x uint16
		x, err = tlv.GetU16(v, 0)
		n = uint64(x)
	case TypeUint24:
		var x uint32
		x, err = tlv.GetU24(v, 0)
		n = uint64(x)
	case TypeUint32:
		var x uint32
		x, err = tlv.GetU32(v, 0)
		n = uint64(x)
	case TypeUint64:
		n, err = tlv.GetU64(v, 0)
	default:
		return nil, fmt.Errorf("%w: %s is not an integer type", protocol.ErrMalformed, t)
	}
	if err != nil {
		return nil, err
	}
	return &Int{t: t, v: n}, nil
}
