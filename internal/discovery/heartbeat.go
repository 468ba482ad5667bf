package discovery

import (
	"fmt"
	"time"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/schema"
)

// Heartbeat announces that a probe on Host is alive.
type Heartbeat struct {
	Host     string
	Sent     time.Time
	Sequence uint32
}

func EncodeHeartbeat(h Heartbeat) (*frameset.Frameset, error) {
	host, err := frame.NewCstring(h.Host)
	if err != nil {
		return nil, fmt.Errorf("heartbeat host: %w", err)
	}
	var ms uint64
	if v := h.Sent.UnixMilli(); v > 0 {
		ms = uint64(v)
	}
	fs := frameset.New(schema.MsgHeartbeat)
	if err := fs.AppendAll(host, frame.NewUint64(ms), frame.NewUint32(h.Sequence)); err != nil {
		return nil, err
	}
	return fs, nil
}

func DecodeHeartbeat(fs *frameset.Frameset) (Heartbeat, error) {
	if err := schema.Validate(fs); err != nil {
		return Heartbeat{}, err
	}
	frames := fs.Frames()
	host, err := frame.AsString(frames[0])
	if err != nil {
		return Heartbeat{}, err
	}
	ms, err := frame.AsUint(frames[1])
	if err != nil {
		return Heartbeat{}, err
	}
	if ms > uint64(1<<63-1) {
		return Heartbeat{}, fmt.Errorf("%w: heartbeat time %d out of range", protocol.ErrMalformed, ms)
	}
	seq, err := frame.AsUint(frames[2])
	if err != nil {
		return Heartbeat{}, err
	}
	return Heartbeat{Host: host, Sent: time.UnixMilli(int64(ms)).UTC(), Sequence: uint32(seq)}, nil
}
