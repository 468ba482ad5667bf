// Package frameset assembles frames into one signed message and parses such
// messages back, all-or-nothing.
//
// Wire format, big-endian:
//
//	Frameset := message_type:u16 Frame*
//	Frame    := type:u16 length:u32 value:byte[length]
//
// The first frame is always the signature. Its digest covers the message type
// header followed by every byte after the signature frame.
package frameset

import (
	"fmt"
	"strings"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frame"
)

// HeaderLen is the size of the message type header.
const HeaderLen = 2

// Frameset is an ordered collection of frames forming one message. It is
// built by one producer and frozen once serialized; parsed framesets are
// frozen from the start.
type Frameset struct {
	messageType uint16
	frames      []frame.Frame // frames[0] is always the signature
	frozen      bool
	packet      []byte
}

// New returns an empty frameset with a placeholder signature slot.
func New(messageType uint16) *Frameset {
	return &Frameset{
		messageType: messageType,
		frames:      []frame.Frame{frame.NewSignature(nil)},
	}
}

// Append adds f at the tail. Frames that fail their own validation are never
// accepted.
func (fs *Frameset) Append(f frame.Frame) error {
	if fs.frozen {
		return protocol.ErrFrozenFrameset
	}
	if f == nil {
		return fmt.Errorf("%w: nil frame", protocol.ErrMalformed)
	}
	if f.Type() == frame.TypeSignature {
		return fmt.Errorf("%w: signature slot is reserved", protocol.ErrMalformed)
	}
	if err := f.Validate(); err != nil {
		return err
	}
	fs.frames = append(fs.frames, f)
	return nil
}

// AppendAll appends frames in order, stopping at the first failure.
func (fs *Frameset) AppendAll(frames ...frame.Frame) error {
	for i, f := range frames {
		if err := fs.Append(f); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

func (fs *Frameset) MessageType() uint16 { return fs.messageType }

// Frames returns the frames after the signature, in wire order.
func (fs *Frameset) Frames() []frame.Frame {
	out := make([]frame.Frame, len(fs.frames)-1)
	copy(out, fs.frames[1:])
	return out
}

// Len is the number of frames after the signature.
func (fs *Frameset) Len() int { return len(fs.frames) - 1 }

func (fs *Frameset) Signature() *frame.Signature {
	return fs.frames[0].(*frame.Signature)
}

func (fs *Frameset) Frozen() bool { return fs.frozen }

// Packet returns a copy of the finalized wire bytes, or nil before serialize.
func (fs *Frameset) Packet() []byte {
	if fs.packet == nil {
		return nil
	}
	out := make([]byte, len(fs.packet))
	copy(out, fs.packet)
	return out
}

// Equal compares message type and every frame after the signature.
func (fs *Frameset) Equal(other *Frameset) bool {
	if fs == nil || other == nil {
		return fs == other
	}
	if fs.messageType != other.messageType || len(fs.frames) != len(other.frames) {
		return false
	}
	for i := 1; i < len(fs.frames); i++ {
		if !frame.Equal(fs.frames[i], other.frames[i]) {
			return false
		}
	}
	return true
}

func (fs *Frameset) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frameset(type=%#04x frames=%d frozen=%t)", fs.messageType, fs.Len(), fs.frozen)
	for _, f := range fs.frames {
		b.WriteString("\n  ")
		b.WriteString(f.String())
	}
	return b.String()
}
