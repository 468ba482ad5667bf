package frame

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/danmuck/framewire/internal/protocol"
)

// Opaque carries raw bytes. Frames with tags outside the known set are kept
// as Opaque when decoded leniently; Type then reports the original tag.
type Opaque struct {
	tag  Type
	data []byte
}

func NewOpaque(data []byte) *Opaque {
	return &Opaque{tag: TypeOpaque, data: bytes.Clone(data)}
}

func (f *Opaque) Type() Type { return f.tag }

func (f *Opaque) Len() int { return len(f.data) }

func (f *Opaque) Bytes() []byte { return bytes.Clone(f.data) }

// Unknown reports whether this frame stands in for an unrecognized tag.
func (f *Opaque) Unknown() bool { return !f.tag.Known() }

func (f *Opaque) Validate() error {
	if f.tag == 0 || (f.tag.Known() && f.tag != TypeOpaque) {
		return fmt.Errorf("%w: opaque frame cannot carry tag %s", protocol.ErrMalformed, f.tag)
	}
	if uint64(len(f.data)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: opaque value of %d bytes too large", protocol.ErrMalformed, len(f.data))
	}
	return nil
}

func (f *Opaque) AppendValue(dst []byte) []byte {
	return append(dst, f.data...)
}

func (f *Opaque) String() string {
	const preview = 16
	if len(f.data) > preview {
		return fmt.Sprintf("%s(%d bytes %s...)", f.tag, len(f.data), hex.EncodeToString(f.data[:preview]))
	}
	return fmt.Sprintf("%s(%d bytes %s)", f.tag, len(f.data), hex.EncodeToString(f.data))
}

func (*Opaque) sealed() {}
