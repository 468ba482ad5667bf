package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/sign"
	"github.com/danmuck/framewire/internal/testutil/testlog"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestWireTemplateLoadsAndBuildsCodec(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "wire.toml")
	if err := WriteTemplate(path, "wire", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "wire", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	cfg, err := LoadWireConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Codec.MaxPacketSize != DefaultMaxPacketSize {
		t.Fatalf("max_packet_size=%d", cfg.Codec.MaxPacketSize)
	}
	codec, err := cfg.Codec()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	if codec.Signer().Algorithm() != sign.HMACSHA256 {
		t.Fatalf("algorithm=%s", codec.Signer().Algorithm())
	}

	fs := frameset.New(0xfa01)
	host, _ := frame.NewCstring("host-a")
	if err := fs.AppendAll(host, frame.NewUint64(1), frame.NewUint32(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	pkt, err := codec.Serialize(fs)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, err := codec.Parse(pkt); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestDefaultsApplied(t *testing.T) {
	testlog.Start(t)

	cfg, err := LoadWireConfig(writeFile(t, "wire.toml", "[codec]\nlenient = true\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Signing.Algorithm != "sha256" || !cfg.Codec.Lenient {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestValidateWireConfig(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name string
		cfg  WireConfig
		want string
	}{
		{"unknown algorithm", WireConfig{Signing: SigningConfig{Algorithm: "md5"}}, "unknown algorithm"},
		{"hmac without key", WireConfig{Signing: SigningConfig{Algorithm: "hmac-sha256"}}, "requires key_hex"},
		{"sha256 with key", WireConfig{Signing: SigningConfig{Algorithm: "sha256", KeyHex: "00"}}, "unkeyed"},
		{"both keys", WireConfig{Signing: SigningConfig{Algorithm: "blake2b-256", KeyHex: "00", KeyFile: "k"}}, "both"},
		{"ed25519 hex", WireConfig{Signing: SigningConfig{Algorithm: "ed25519", KeyHex: "00"}}, "not key_hex"},
		{"ed25519 no key", WireConfig{Signing: SigningConfig{Algorithm: "ed25519"}}, "requires key_file"},
		{"negative size", WireConfig{Codec: CodecConfig{MaxPacketSize: -1}}, "max_packet_size"},
	}
	for _, tc := range cases {
		err := ValidateWireConfig(tc.cfg)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestSignerReadsKeyFile(t *testing.T) {
	testlog.Start(t)

	keyPath := writeFile(t, "key", "shared-secret\n")
	cfg := WireConfig{Signing: SigningConfig{Algorithm: "blake2b-256", KeyFile: keyPath}}
	s, err := cfg.Signer()
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	want, _ := sign.NewBLAKE2b256([]byte("shared-secret"))
	digest, _ := want.Sign([]byte("msg"))
	if !s.Verify(digest, []byte("msg")) {
		t.Fatalf("trailing newline in key file should be trimmed")
	}
}

func TestTemplatesKnownKinds(t *testing.T) {
	testlog.Start(t)

	for _, kind := range []string{"wire", "Probe", " collector "} {
		if _, err := Template(kind); err != nil {
			t.Fatalf("template %q: %v", kind, err)
		}
	}
	if _, err := Template("ghost"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestValidateFileByKind(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	for _, kind := range []string{"wire", "probe", "collector"} {
		path := filepath.Join(dir, kind+".toml")
		if err := WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("write %s: %v", kind, err)
		}
		if err := ValidateFile(path, kind); err != nil {
			t.Fatalf("validate %s template: %v", kind, err)
		}
	}
	if err := ValidateFile(writeFile(t, "probe.toml", "mode = \"pcap\"\n"), "probe"); err == nil {
		t.Fatalf("expected missing collector key")
	}
	if err := ValidateFile(writeFile(t, "bad.toml", "listen = \n"), "collector"); err == nil {
		t.Fatalf("expected parse error")
	}
}
