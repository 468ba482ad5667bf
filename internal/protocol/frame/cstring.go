package frame

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/framewire/internal/protocol"
)

// Cstring is a NUL terminated string. The terminator is added on the wire and
// is not part of the in-memory value.
type Cstring struct {
	s string
}

func NewCstring(s string) (*Cstring, error) {
	f := &Cstring{s: s}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Cstring) Type() Type { return TypeCstring }

func (f *Cstring) Len() int { return len(f.s) + 1 }

// Value returns the string without its terminator.
func (f *Cstring) Value() string { return f.s }

func (f *Cstring) Validate() error {
	if i := strings.IndexByte(f.s, 0); i >= 0 {
		return fmt.Errorf("%w: cstring has embedded NUL at %d", protocol.ErrMalformed, i)
	}
	return nil
}

func (f *Cstring) AppendValue(dst []byte) []byte {
	dst = append(dst, f.s...)
	return append(dst, 0)
}

func (f *Cstring) String() string {
	return "cstring(" + strconv.Quote(f.s) + ")"
}

func (*Cstring) sealed() {}

// validateCstring requires the only zero byte of v to be its last byte.
func validateCstring(v []byte) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: cstring has no room for a terminator", protocol.ErrMalformed)
	}
	if i := bytes.IndexByte(v, 0); i != len(v)-1 {
		if i < 0 {
			return fmt.Errorf("%w: cstring of %d bytes is not terminated", protocol.ErrMalformed, len(v))
		}
		return fmt.Errorf("%w: cstring NUL at %d, want %d", protocol.ErrMalformed, i, len(v)-1)
	}
	return nil
}
