package protocol

import "errors"

var (
	ErrOutOfBounds      = errors.New("protocol: out of bounds")
	ErrTruncated        = errors.New("protocol: truncated data")
	ErrMalformed        = errors.New("protocol: malformed frame")
	ErrUnknownFrameType = errors.New("protocol: unknown frame type")
	ErrSignatureInvalid = errors.New("protocol: signature invalid")
	ErrBufferTooSmall   = errors.New("protocol: buffer too small")
	ErrFrozenFrameset   = errors.New("protocol: frameset is frozen")
)

// Kind labels for logs and metrics.
const (
	KindOutOfBounds      = "out_of_bounds"
	KindTruncated        = "truncated"
	KindMalformed        = "malformed"
	KindUnknownFrameType = "unknown_frame_type"
	KindSignatureInvalid = "signature_invalid"
	KindBufferTooSmall   = "buffer_too_small"
	KindFrozenFrameset   = "frozen_frameset"
	KindOther            = "other"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrSignatureInvalid, KindSignatureInvalid},
	{ErrTruncated, KindTruncated},
	{ErrOutOfBounds, KindOutOfBounds},
	{ErrUnknownFrameType, KindUnknownFrameType},
	{ErrMalformed, KindMalformed},
	{ErrBufferTooSmall, KindBufferTooSmall},
	{ErrFrozenFrameset, KindFrozenFrameset},
}

// KindOf maps err onto a stable taxonomy label. Nil maps to "".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindOther
}
