package frameset

import (
	"errors"
	"fmt"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/sign"
	"github.com/danmuck/framewire/internal/protocol/tlv"
)

// Codec serializes and parses framesets under one signer. A Codec holds no
// mutable state and may be shared between goroutines.
type Codec struct {
	signer        sign.Signer
	lenient       bool
	maxPacketSize int
}

type Option func(*Codec)

// WithLenient keeps frames with unknown tags as opaque frames instead of
// rejecting the packet.
func WithLenient() Option {
	return func(c *Codec) { c.lenient = true }
}

// WithMaxPacketSize bounds serialized and parsed packets. Zero means no bound.
func WithMaxPacketSize(n int) Option {
	return func(c *Codec) { c.maxPacketSize = n }
}

func NewCodec(signer sign.Signer, opts ...Option) (*Codec, error) {
	if signer == nil {
		return nil, errors.New("frameset: signer required")
	}
	if signer.Size() <= 0 {
		return nil, fmt.Errorf("frameset: signer %s reports digest size %d", signer.Algorithm(), signer.Size())
	}
	c := &Codec{signer: signer}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxPacketSize < 0 {
		return nil, fmt.Errorf("frameset: negative max packet size %d", c.maxPacketSize)
	}
	return c, nil
}

func (c *Codec) Signer() sign.Signer { return c.signer }

func (c *Codec) Lenient() bool { return c.lenient }

// Serialize lays out the header and every frame, signs, splices the digest
// into the first slot and freezes fs. The returned slice is the caller's.
func (c *Codec) Serialize(fs *Frameset) ([]byte, error) {
	if fs == nil {
		return nil, fmt.Errorf("%w: nil frameset", protocol.ErrMalformed)
	}
	if fs.frozen {
		return nil, protocol.ErrFrozenFrameset
	}

	sigOff := HeaderLen
	bodyOff := sigOff + tlv.HeaderLen + c.signer.Size()
	size := bodyOff
	for _, f := range fs.frames[1:] {
		size += frame.EncodedLen(f)
	}
	if c.maxPacketSize > 0 && size > c.maxPacketSize {
		return nil, fmt.Errorf("%w: frameset needs %d bytes, limit is %d",
			protocol.ErrBufferTooSmall, size, c.maxPacketSize)
	}

	buf := make([]byte, size)
	if err := tlv.PutU16(buf, 0, fs.messageType); err != nil {
		return nil, err
	}
	off := bodyOff
	for i, f := range fs.frames[1:] {
		n, err := frame.EncodeTo(buf[off:], f)
		if err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", i, err)
		}
		off += n
	}

	digest, err := c.signer.Sign(signedRegion(buf, bodyOff))
	if err != nil {
		return nil, fmt.Errorf("sign frameset: %w", err)
	}
	if len(digest) != c.signer.Size() {
		return nil, fmt.Errorf("%w: %s produced %d bytes, want %d",
			protocol.ErrSignatureInvalid, c.signer.Algorithm(), len(digest), c.signer.Size())
	}
	sig := frame.NewSignature(digest)
	if _, err := frame.EncodeTo(buf[sigOff:bodyOff], sig); err != nil {
		return nil, err
	}

	fs.frames[0] = sig
	fs.frozen = true
	fs.packet = buf
	return fs.Packet(), nil
}

// Parse decodes buf into a verified frameset. The signature is checked
// before any frame after it is interpreted; on any error nothing is returned.
// Parse is total: it terminates and never reads outside buf.
func (c *Codec) Parse(buf []byte) (*Frameset, error) {
	if c.maxPacketSize > 0 && len(buf) > c.maxPacketSize {
		return nil, fmt.Errorf("%w: packet of %d bytes exceeds limit %d",
			protocol.ErrMalformed, len(buf), c.maxPacketSize)
	}
	messageType, err := tlv.GetU16(buf, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: frameset header: %v", protocol.ErrTruncated, err)
	}

	h, digest, err := tlv.ValueAt(buf, HeaderLen)
	if err != nil {
		return nil, fmt.Errorf("signature frame: %w", err)
	}
	if frame.Type(h.Type) != frame.TypeSignature {
		return nil, fmt.Errorf("%w: first frame is %s", protocol.ErrSignatureInvalid, frame.Type(h.Type))
	}
	if len(digest) != c.signer.Size() {
		return nil, fmt.Errorf("%w: signature is %d bytes, %s needs %d",
			protocol.ErrSignatureInvalid, len(digest), c.signer.Algorithm(), c.signer.Size())
	}
	bodyOff := HeaderLen + tlv.HeaderLen + len(digest)
	if !c.signer.Verify(digest, signedRegion(buf, bodyOff)) {
		return nil, fmt.Errorf("%w: %s digest mismatch", protocol.ErrSignatureInvalid, c.signer.Algorithm())
	}

	decode := frame.Decode
	if c.lenient {
		decode = frame.DecodeLenient
	}
	frames := []frame.Frame{frame.NewSignature(digest)}
	for off := bodyOff; off < len(buf); {
		f, next, err := decode(buf, off)
		if err != nil {
			return nil, err
		}
		if f.Type() == frame.TypeSignature {
			return nil, fmt.Errorf("%w: signature frame at offset %d is not first", protocol.ErrMalformed, off)
		}
		frames = append(frames, f)
		off = next
	}

	packet := make([]byte, len(buf))
	copy(packet, buf)
	return &Frameset{
		messageType: messageType,
		frames:      frames,
		frozen:      true,
		packet:      packet,
	}, nil
}

// signedRegion is the message type header followed by the frames after the
// signature frame.
func signedRegion(buf []byte, bodyOff int) []byte {
	body := buf[bodyOff:]
	msg := make([]byte, 0, HeaderLen+len(body))
	msg = append(msg, buf[:HeaderLen]...)
	return append(msg, body...)
}
