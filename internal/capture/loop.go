package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"github.com/google/gopacket"
	"github.com/rs/zerolog"
)

// Stats summarizes one Run.
type Stats struct {
	Packets int64
	LLDP    int64
	CDP     int64
	Other   int64
	Skipped int64
	Bytes   int64
}

// Loop reads packets from a source and emits signed captured-packet
// framesets. A Loop is not safe for concurrent Run calls.
type Loop struct {
	Node       string
	Device     string
	MaxPackets int64 // zero means unbounded
	Codec      *frameset.Codec
	Logger     zerolog.Logger

	count int64
}

// Count is the number of packets emitted over the lifetime of the loop.
func (l *Loop) Count() int64 { return l.count }

// Run stops on context cancellation, end of input or once MaxPackets
// packets have been emitted. End of input is not an error.
func (l *Loop) Run(ctx context.Context, src gopacket.PacketDataSource, emit func([]byte) error) (Stats, error) {
	var stats Stats
	if l.Codec == nil {
		return stats, errors.New("capture: loop has no codec")
	}
	for {
		if l.MaxPackets > 0 && l.count >= l.MaxPackets {
			l.Logger.Info().Int64("packets", l.count).Msg("capture: max packets reached")
			return stats, nil
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("capture: read packet: %w", err)
		}

		fs, err := Encapsulate(data, ci, l.Device)
		if err != nil {
			stats.Skipped++
			l.Logger.Warn().Err(err).Str("kind", protocol.KindOf(err)).Msg("capture: encapsulate failed")
			continue
		}
		pkt, err := l.Codec.Serialize(fs)
		if err != nil {
			stats.Skipped++
			l.Logger.Warn().Err(err).Str("kind", protocol.KindOf(err)).Int("caplen", len(data)).Msg("capture: serialize failed")
			continue
		}
		if err := emit(pkt); err != nil {
			return stats, fmt.Errorf("capture: emit: %w", err)
		}

		proto := Classify(data)
		switch proto {
		case ProtocolLLDP:
			stats.LLDP++
		case ProtocolCDP:
			stats.CDP++
		default:
			stats.Other++
		}
		stats.Packets++
		stats.Bytes += int64(len(pkt))
		l.count++
		observability.RecordEncoded(l.Node, schema.Name(schema.MsgCapturedPacket), len(pkt))
		l.Logger.Debug().
			Str("protocol", string(proto)).
			Int("caplen", ci.CaptureLength).
			Int("wire_len", ci.Length).
			Int("packet_bytes", len(pkt)).
			Msg("capture: packet encapsulated")
	}
}
