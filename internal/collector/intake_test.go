package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/auth"
	"github.com/danmuck/framewire/internal/discovery"
	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"github.com/danmuck/framewire/internal/protocol/sign"
	"github.com/danmuck/framewire/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func newCodec(t *testing.T) *frameset.Codec {
	t.Helper()
	s, err := sign.NewHMACSHA256([]byte("collector-test"))
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	c, err := frameset.NewCodec(s)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return c
}

func heartbeat(t *testing.T, codec *frameset.Codec, seq uint32) []byte {
	t.Helper()
	fs, err := discovery.EncodeHeartbeat(discovery.Heartbeat{Host: "host-a", Sent: time.Now(), Sequence: seq})
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	pkt, err := codec.Serialize(fs)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return pkt
}

func newIntake(t *testing.T, codec *frameset.Codec, sink Sink) *Intake {
	t.Helper()
	in, err := NewIntake("collector-test", codec, sink, zerolog.Nop())
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	return in
}

func TestHandleAcceptsAndRejects(t *testing.T) {
	testlog.Start(t)

	codec := newCodec(t)
	sink := NewMemorySink(8)
	in := newIntake(t, codec, sink)
	from := &net.UDPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 4000}

	rec, err := in.Handle(heartbeat(t, codec, 1), from)
	if err != nil {
		t.Fatalf("valid heartbeat rejected: %v", err)
	}
	if rec.Message() != "heartbeat" || rec.From != "192.0.2.1:4000" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	tampered := heartbeat(t, codec, 2)
	tampered[len(tampered)-1] ^= 0x01
	if _, err := in.Handle(tampered, from); !errors.Is(err, protocol.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if _, err := in.Handle(heartbeat(t, codec, 3), from); err != nil {
		t.Fatalf("valid datagram after a reject: %v", err)
	}
	if _, err := in.Handle([]byte{0xfa}, from); !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}

	wrong := frameset.New(schema.MsgHeartbeat)
	_ = wrong.Append(frame.NewUint8(1))
	pkt, err := codec.Serialize(wrong)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	var verr schema.ValidationError
	if _, err := in.Handle(pkt, from); !errors.As(err, &verr) {
		t.Fatalf("expected layout error, got %v", err)
	}

	stats := in.Stats()
	if stats.Accepted != 2 || stats.Rejected != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	want := map[string]int64{protocol.KindSignatureInvalid: 1, protocol.KindTruncated: 1, KindLayout: 1}
	for k, v := range want {
		if stats.ByKind[k] != v {
			t.Fatalf("kind %s=%d want %d (%v)", k, stats.ByKind[k], v, stats.Kinds())
		}
	}
	if len(sink.Records()) != 2 {
		t.Fatalf("sink holds %d records", len(sink.Records()))
	}
}

func TestHandleSinkFailureIsRejected(t *testing.T) {
	testlog.Start(t)

	codec := newCodec(t)
	in := newIntake(t, codec, SinkFunc(func(Record) error { return errors.New("disk full") }))
	if _, err := in.Handle(heartbeat(t, codec, 1), nil); err == nil {
		t.Fatalf("expected sink error")
	}
	if in.Stats().ByKind[KindSink] != 1 {
		t.Fatalf("sink failure not counted: %+v", in.Stats())
	}
}

func TestMemorySinkKeepsNewest(t *testing.T) {
	testlog.Start(t)

	sink := NewMemorySink(2)
	for i := 0; i < 5; i++ {
		_ = sink.Accept(Record{MessageType: schema.MsgHeartbeat, From: string(rune('a' + i))})
	}
	got := sink.Records()
	if len(got) != 2 || got[0].From != "d" || got[1].From != "e" {
		t.Fatalf("unexpected records: %+v", got)
	}
	total, byMessage := sink.Counts()
	if total != 5 || byMessage["heartbeat"] != 5 {
		t.Fatalf("unexpected counts: %d %v", total, byMessage)
	}
}

func TestServeOverUDP(t *testing.T) {
	testlog.Start(t)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen unavailable: %v", err)
	}
	defer conn.Close()

	codec := newCodec(t)
	sink := NewMemorySink(8)
	in := newIntake(t, codec, sink)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Serve(ctx, conn) }()

	client, err := net.Dial("udp", conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Write([]byte("garbage")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := client.Write(heartbeat(t, codec, 7)); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.Records()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(sink.Records()) != 1 {
		t.Fatalf("expected one stored record, got %d", len(sink.Records()))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
}

func TestServerRoutes(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	codec := newCodec(t)
	sink := NewMemorySink(8)
	in := newIntake(t, codec, sink)
	if _, err := in.Handle(heartbeat(t, codec, 1), nil); err != nil {
		t.Fatalf("handle: %v", err)
	}
	s := NewServer("collector-test", ":0", nil, in, sink, nil)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	if rr := get("/health"); rr.Code != http.StatusOK {
		t.Fatalf("/health status %d", rr.Code)
	}
	if rr := get("/ready"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/ready before MarkReady: %d", rr.Code)
	}
	s.MarkReady(true)
	if rr := get("/ready"); rr.Code != http.StatusOK {
		t.Fatalf("/ready after MarkReady: %d", rr.Code)
	}
	if rr := get("/metrics"); rr.Code != http.StatusOK {
		t.Fatalf("/metrics status %d", rr.Code)
	}

	rr := get("/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("/stats status %d", rr.Code)
	}
	var body struct {
		Intake    Stats            `json:"intake"`
		Stored    int64            `json:"stored"`
		ByMessage map[string]int64 `json:"by_message"`
		Recent    []recordView     `json:"recent"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if body.Intake.Accepted != 1 || body.Stored != 1 || body.ByMessage["heartbeat"] != 1 {
		t.Fatalf("unexpected stats body: %s", rr.Body.String())
	}
	if len(body.Recent) != 1 || body.Recent[0].Frames != 3 {
		t.Fatalf("unexpected recent records: %+v", body.Recent)
	}
}

func TestServerStatsGuard(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	codec := newCodec(t)
	sink := NewMemorySink(8)
	s := NewServer("collector-test", ":0", nil, newIntake(t, codec, sink), sink, auth.StaticToken{Token: "s3cret"})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /stats status %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("authenticated /stats status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/health should stay open, got %d", rr.Code)
	}
}

func TestJoinGroupRejectsUnicast(t *testing.T) {
	testlog.Start(t)

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen unavailable: %v", err)
	}
	defer conn.Close()
	for _, group := range []string{"10.0.0.1", "ff02::1", "nonsense"} {
		if err := JoinGroup(conn, group, ""); err == nil {
			t.Fatalf("expected %q to be rejected", group)
		}
	}
	if err := JoinGroup(conn, "239.255.0.1", "no-such-if0"); err == nil {
		t.Fatalf("expected unknown interface error")
	}
}
