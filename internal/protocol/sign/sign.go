// Package sign provides the digest algorithms bound to a frameset's signature
// frame. A Signer is immutable after construction and safe for concurrent use.
package sign

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm names a digest algorithm.
type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	HMACSHA256 Algorithm = "hmac-sha256"
	BLAKE2b256 Algorithm = "blake2b-256"
	Ed25519    Algorithm = "ed25519"
)

var (
	ErrUnknownAlgorithm = errors.New("sign: unknown algorithm")
	ErrKeyRequired      = errors.New("sign: key required")
	ErrInvalidKey       = errors.New("sign: invalid key")
	ErrVerifyOnly       = errors.New("sign: signer holds no private key")
)

// Signer computes and checks frameset digests.
type Signer interface {
	Algorithm() Algorithm
	// Size is the exact digest length; the signature frame must match it.
	Size() int
	Sign(msg []byte) ([]byte, error)
	// Verify reports whether digest is valid for msg. A digest of the wrong
	// length is never valid.
	Verify(digest, msg []byte) bool
}

// Config selects and keys an algorithm.
type Config struct {
	Algorithm Algorithm
	// Key is the shared secret for keyed algorithms, or an OpenSSH private
	// key (PEM) for ed25519.
	Key []byte
	// PublicKey is an authorized_keys line, used for ed25519 when Key is empty.
	PublicKey []byte
}

func ParseAlgorithm(raw string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToLower(strings.TrimSpace(raw))); alg {
	case SHA256, HMACSHA256, BLAKE2b256, Ed25519:
		return alg, nil
	case "":
		return SHA256, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, raw)
	}
}

// New builds the Signer described by cfg.
func New(cfg Config) (Signer, error) {
	switch cfg.Algorithm {
	case SHA256, "":
		return NewSHA256(), nil
	case HMACSHA256:
		return NewHMACSHA256(cfg.Key)
	case BLAKE2b256:
		return NewBLAKE2b256(cfg.Key)
	case Ed25519:
		if len(cfg.Key) > 0 {
			return NewEd25519(cfg.Key)
		}
		if len(cfg.PublicKey) > 0 {
			return NewEd25519Verifier(cfg.PublicKey)
		}
		return nil, fmt.Errorf("%w: ed25519 needs a private or public key", ErrKeyRequired)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, cfg.Algorithm)
	}
}
