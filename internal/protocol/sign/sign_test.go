package sign

import (
	"bytes"
	"crypto/ed25519"
	"encoding/pem"
	"errors"
	"testing"

	"golang.org/x/crypto/ssh"
)

func testSigners(t *testing.T) []Signer {
	t.Helper()
	hm, err := NewHMACSHA256([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("hmac: %v", err)
	}
	bl, err := NewBLAKE2b256([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("blake2b: %v", err)
	}
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("ed25519 key: %v", err)
	}
	ed, err := NewEd25519FromKey(priv)
	if err != nil {
		t.Fatalf("ed25519: %v", err)
	}
	return []Signer{NewSHA256(), hm, bl, ed}
}

func TestSignVerify(t *testing.T) {
	msg := []byte("frameset body")
	for _, s := range testSigners(t) {
		digest, err := s.Sign(msg)
		if err != nil {
			t.Fatalf("%s sign: %v", s.Algorithm(), err)
		}
		if len(digest) != s.Size() {
			t.Fatalf("%s digest is %d bytes, Size() says %d", s.Algorithm(), len(digest), s.Size())
		}
		if !s.Verify(digest, msg) {
			t.Fatalf("%s did not verify its own digest", s.Algorithm())
		}
		again, _ := s.Sign(msg)
		if !bytes.Equal(digest, again) {
			t.Fatalf("%s digest is not deterministic", s.Algorithm())
		}
		tampered := bytes.Clone(msg)
		tampered[0] ^= 0x01
		if s.Verify(digest, tampered) {
			t.Fatalf("%s verified a tampered message", s.Algorithm())
		}
		if s.Verify(digest[:len(digest)-1], msg) {
			t.Fatalf("%s verified a short digest", s.Algorithm())
		}
		if s.Verify(append(bytes.Clone(digest), 0), msg) {
			t.Fatalf("%s verified a long digest", s.Algorithm())
		}
	}
}

func TestKeyedDigestsDependOnKey(t *testing.T) {
	a, _ := NewHMACSHA256([]byte("key-a"))
	b, _ := NewHMACSHA256([]byte("key-b"))
	msg := []byte("payload")
	da, _ := a.Sign(msg)
	if b.Verify(da, msg) {
		t.Fatalf("hmac verified under a different key")
	}
	c, _ := NewBLAKE2b256([]byte("key-a"))
	d, _ := NewBLAKE2b256([]byte("key-b"))
	dc, _ := c.Sign(msg)
	if d.Verify(dc, msg) {
		t.Fatalf("blake2b verified under a different key")
	}
}

func TestKeyRequirements(t *testing.T) {
	if _, err := NewHMACSHA256(nil); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	if _, err := NewBLAKE2b256(nil); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	if _, err := NewBLAKE2b256(make([]byte, 65)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := New(Config{Algorithm: Ed25519}); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	if _, err := New(Config{Algorithm: "md5"}); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestEd25519FromOpenSSHKeys(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "probe@test")
	if err != nil {
		t.Fatalf("marshal private: %v", err)
	}
	signer, err := New(Config{Algorithm: Ed25519, Key: pem.EncodeToMemory(block)})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("ssh public: %v", err)
	}
	verifier, err := New(Config{Algorithm: Ed25519, PublicKey: ssh.MarshalAuthorizedKey(sshPub)})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	msg := []byte("captured packet")
	digest, err := signer.Sign(msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !verifier.Verify(digest, msg) {
		t.Fatalf("verifier rejected a valid signature")
	}
	if _, err := verifier.Sign(msg); !errors.Is(err, ErrVerifyOnly) {
		t.Fatalf("expected ErrVerifyOnly, got %v", err)
	}
	line, ok := PublicKey(signer)
	if !ok || !bytes.Equal(line, ssh.MarshalAuthorizedKey(sshPub)) {
		t.Fatalf("public key mismatch: %q", line)
	}
}

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{
		"":             SHA256,
		"SHA256":       SHA256,
		" hmac-sha256": HMACSHA256,
		"blake2b-256":  BLAKE2b256,
		"ed25519":      Ed25519,
	}
	for raw, want := range cases {
		got, err := ParseAlgorithm(raw)
		if err != nil || got != want {
			t.Fatalf("ParseAlgorithm(%q)=%q,%v want %q", raw, got, err, want)
		}
	}
	if _, err := ParseAlgorithm("crc32"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}
