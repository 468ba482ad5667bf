package schema

import (
	"fmt"

	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/rs/zerolog/log"
)

// Message types carried by framesets.
const (
	MsgCapturedPacket uint16 = 0xfeed
	MsgFacts          uint16 = 0xfa00
	MsgHeartbeat      uint16 = 0xfa01
)

// Layout is the positional shape of a message: Head in order, then zero or
// more complete copies of Repeat.
type Layout struct {
	MessageType uint16
	Name        string
	Head        []frame.Type
	Repeat      []frame.Type
}

type ValidationError struct {
	MessageType uint16
	Position    int
	Reason      string
}

func (e ValidationError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("schema: message_type=%#04x: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%#04x frame=%d: %s", e.MessageType, e.Position, e.Reason)
}

var layouts = map[uint16]Layout{
	MsgCapturedPacket: {
		MessageType: MsgCapturedPacket,
		Name:        "captured-packet",
		Head: []frame.Type{
			frame.TypeUint64,  // capture time, unix microseconds
			frame.TypeCstring, // capture device
			frame.TypeCstring, // discovery protocol
			frame.TypeUint32,  // wire length
			frame.TypeOpaque,  // packet bytes
		},
		Repeat: []frame.Type{frame.TypeAddress},
	},
	MsgFacts: {
		MessageType: MsgFacts,
		Name:        "facts",
		Head: []frame.Type{
			frame.TypeCstring, // discovery name
			frame.TypeCstring, // host
			frame.TypeUint64,  // collected, unix milliseconds
		},
		Repeat: []frame.Type{frame.TypeCstring, frame.TypeCstring},
	},
	MsgHeartbeat: {
		MessageType: MsgHeartbeat,
		Name:        "heartbeat",
		Head: []frame.Type{
			frame.TypeCstring, // host
			frame.TypeUint64,  // sent, unix milliseconds
			frame.TypeUint32,  // sequence
		},
	},
}

// Lookup returns the registered layout for messageType.
func Lookup(messageType uint16) (Layout, bool) {
	l, ok := layouts[messageType]
	return l, ok
}

// Name returns a display name for messageType.
func Name(messageType uint16) string {
	if l, ok := layouts[messageType]; ok {
		return l.Name
	}
	return fmt.Sprintf("message(%#04x)", messageType)
}

// Validate checks fs against the layout registered for its message type.
// Order matters; frames are never matched out of position.
func Validate(fs *frameset.Frameset) error {
	messageType := fs.MessageType()
	log.Trace().Uint16("message_type", messageType).Int("frames", fs.Len()).Msg("schema.Validate")
	l, ok := layouts[messageType]
	if !ok {
		return ValidationError{MessageType: messageType, Position: -1, Reason: "unknown message_type"}
	}
	return l.Check(fs.Frames())
}

// Check matches frames against the layout.
func (l Layout) Check(frames []frame.Frame) error {
	if len(frames) < len(l.Head) {
		return ValidationError{
			MessageType: l.MessageType,
			Position:    len(frames),
			Reason:      fmt.Sprintf("missing required frame, want %d head frames, got %d", len(l.Head), len(frames)),
		}
	}
	for i, want := range l.Head {
		if got := frames[i].Type(); got != want {
			return mismatch(l.MessageType, i, want, got)
		}
	}
	rest := frames[len(l.Head):]
	if len(l.Repeat) == 0 {
		if len(rest) != 0 {
			return ValidationError{MessageType: l.MessageType, Position: len(l.Head), Reason: "unexpected trailing frames"}
		}
		return nil
	}
	if len(rest)%len(l.Repeat) != 0 {
		return ValidationError{
			MessageType: l.MessageType,
			Position:    len(frames) - len(rest)%len(l.Repeat),
			Reason:      "incomplete repeated record",
		}
	}
	for i, f := range rest {
		want := l.Repeat[i%len(l.Repeat)]
		if got := f.Type(); got != want {
			return mismatch(l.MessageType, len(l.Head)+i, want, got)
		}
	}
	return nil
}

func mismatch(messageType uint16, pos int, want, got frame.Type) error {
	return ValidationError{
		MessageType: messageType,
		Position:    pos,
		Reason:      fmt.Sprintf("frame type mismatch: got %s want %s", got, want),
	}
}
