// Package collector receives signed framesets over UDP, checks them and
// hands accepted records to a Sink.
package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"github.com/rs/zerolog"
)

const (
	KindLayout = "layout"
	KindSink   = "sink"
)

const maxDatagram = 65535

type Intake struct {
	node   string
	codec  *frameset.Codec
	sink   Sink
	logger zerolog.Logger

	accepted atomic.Int64
	rejected atomic.Int64
	byKind   sync.Map // kind -> *atomic.Int64
}

func NewIntake(node string, codec *frameset.Codec, sink Sink, logger zerolog.Logger) (*Intake, error) {
	if codec == nil {
		return nil, errors.New("collector: codec required")
	}
	if sink == nil {
		return nil, errors.New("collector: sink required")
	}
	return &Intake{node: node, codec: codec, sink: sink, logger: logger}, nil
}

// Handle checks one datagram. Nothing about a rejected datagram carries
// over to the next call.
func (in *Intake) Handle(pkt []byte, from net.Addr) (Record, error) {
	src := ""
	if from != nil {
		src = from.String()
	}
	fs, err := in.codec.Parse(pkt)
	if err != nil {
		return Record{}, in.reject(protocol.KindOf(err), src, len(pkt), err)
	}
	if err := schema.Validate(fs); err != nil {
		return Record{}, in.reject(KindLayout, src, len(pkt), err)
	}
	rec := Record{MessageType: fs.MessageType(), From: src, Received: time.Now(), Frameset: fs}
	if err := in.sink.Accept(rec); err != nil {
		return Record{}, in.reject(KindSink, src, len(pkt), fmt.Errorf("collector: sink: %w", err))
	}
	in.accepted.Add(1)
	observability.RecordAccepted(in.node, rec.Message())
	in.logger.Debug().
		Str("from", src).
		Str("message", rec.Message()).
		Int("frames", fs.Len()).
		Int("bytes", len(pkt)).
		Msg("frameset_accepted")
	return rec, nil
}

func (in *Intake) reject(kind, src string, size int, err error) error {
	in.rejected.Add(1)
	in.kindCounter(kind).Add(1)
	observability.RecordRejected(in.node, kind)
	in.logger.Warn().
		Err(err).
		Str("kind", kind).
		Str("from", src).
		Int("bytes", size).
		Msg("frameset_rejected")
	return err
}

func (in *Intake) kindCounter(kind string) *atomic.Int64 {
	if c, ok := in.byKind.Load(kind); ok {
		return c.(*atomic.Int64)
	}
	c, _ := in.byKind.LoadOrStore(kind, new(atomic.Int64))
	return c.(*atomic.Int64)
}

type Stats struct {
	Accepted int64            `json:"accepted"`
	Rejected int64            `json:"rejected"`
	ByKind   map[string]int64 `json:"rejected_by_kind"`
}

func (in *Intake) Stats() Stats {
	s := Stats{
		Accepted: in.accepted.Load(),
		Rejected: in.rejected.Load(),
		ByKind:   make(map[string]int64),
	}
	in.byKind.Range(func(k, v any) bool {
		s.ByKind[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return s
}

// Kinds lists the reject kinds seen so far, sorted.
func (s Stats) Kinds() []string {
	out := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Serve reads datagrams from conn until ctx is done. Per-datagram errors
// are logged and counted, never returned.
func (in *Intake) Serve(ctx context.Context, conn net.PacketConn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	in.logger.Info().Str("addr", conn.LocalAddr().String()).Msg("intake listening")
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("collector: read: %w", err)
		}
		_, _ = in.Handle(buf[:n], from)
	}
}
