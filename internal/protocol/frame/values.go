package frame

import (
	"fmt"

	"github.com/danmuck/framewire/internal/protocol"
)

func mismatch(f Frame, want string) error {
	if f == nil {
		return fmt.Errorf("%w: want %s, got nil frame", protocol.ErrMalformed, want)
	}
	return fmt.Errorf("%w: want %s, got %s", protocol.ErrMalformed, want, f.Type())
}

// AsString returns the value of a Cstring frame.
func AsString(f Frame) (string, error) {
	c, ok := f.(*Cstring)
	if !ok {
		return "", mismatch(f, "cstring")
	}
	return c.Value(), nil
}

// AsUint returns the value of an integer frame of any width.
func AsUint(f Frame) (uint64, error) {
	i, ok := f.(*Int)
	if !ok {
		return 0, mismatch(f, "integer")
	}
	return i.Value(), nil
}

// AsBytes returns a copy of an Opaque frame's bytes.
func AsBytes(f Frame) ([]byte, error) {
	o, ok := f.(*Opaque)
	if !ok {
		return nil, mismatch(f, "opaque")
	}
	return o.Bytes(), nil
}

func AsAddress(f Frame) (*Address, error) {
	a, ok := f.(*Address)
	if !ok {
		return nil, mismatch(f, "address")
	}
	return a, nil
}
