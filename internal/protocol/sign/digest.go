package sign

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// hashSigner covers every algorithm whose digest is recomputed and compared.
type hashSigner struct {
	alg     Algorithm
	size    int
	newHash func() (hash.Hash, error)
}

// NewSHA256 is an unkeyed integrity check: it detects corruption, not forgery.
func NewSHA256() Signer {
	return &hashSigner{
		alg:     SHA256,
		size:    sha256.Size,
		newHash: func() (hash.Hash, error) { return sha256.New(), nil },
	}
}

func NewHMACSHA256(key []byte) (Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrKeyRequired, HMACSHA256)
	}
	k := bytes.Clone(key)
	return &hashSigner{
		alg:     HMACSHA256,
		size:    sha256.Size,
		newHash: func() (hash.Hash, error) { return hmac.New(sha256.New, k), nil },
	}, nil
}

// NewBLAKE2b256 is keyed BLAKE2b with a 32 byte digest. Keys are 1..64 bytes.
func NewBLAKE2b256(key []byte) (Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrKeyRequired, BLAKE2b256)
	}
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("%w: %s key is %d bytes, max %d", ErrInvalidKey, BLAKE2b256, len(key), blake2b.Size)
	}
	k := bytes.Clone(key)
	return &hashSigner{
		alg:     BLAKE2b256,
		size:    blake2b.Size256,
		newHash: func() (hash.Hash, error) { return blake2b.New256(k) },
	}, nil
}

func (s *hashSigner) Algorithm() Algorithm { return s.alg }

func (s *hashSigner) Size() int { return s.size }

func (s *hashSigner) Sign(msg []byte) ([]byte, error) {
	h, err := s.newHash()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.alg, err)
	}
	h.Write(msg)
	return h.Sum(nil), nil
}

func (s *hashSigner) Verify(digest, msg []byte) bool {
	if len(digest) != s.size {
		return false
	}
	want, err := s.Sign(msg)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(want, digest) == 1
}
