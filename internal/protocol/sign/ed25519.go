package sign

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// sshSigner signs with an Ed25519 key in OpenSSH formats. Ed25519 signatures
// are deterministic, so the digest of a given message never changes.
type sshSigner struct {
	signer ssh.Signer // nil for verify-only
	pub    ssh.PublicKey
}

// NewEd25519 parses an OpenSSH (PEM) Ed25519 private key.
func NewEd25519(pemBytes []byte) (Signer, error) {
	raw, err := ssh.ParseRawPrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	switch key := raw.(type) {
	case ed25519.PrivateKey:
		return NewEd25519FromKey(key)
	case *ed25519.PrivateKey:
		return NewEd25519FromKey(*key)
	default:
		return nil, fmt.Errorf("%w: %T is not an ed25519 key", ErrInvalidKey, raw)
	}
}

func NewEd25519FromKey(key ed25519.PrivateKey) (Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key is %d bytes", ErrInvalidKey, len(key))
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &sshSigner{signer: signer, pub: signer.PublicKey()}, nil
}

// NewEd25519Verifier parses one authorized_keys line. The result verifies
// but cannot sign.
func NewEd25519Verifier(authorizedKey []byte) (Signer, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey(authorizedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if pub.Type() != ssh.KeyAlgoED25519 {
		return nil, fmt.Errorf("%w: %s is not an ed25519 key", ErrInvalidKey, pub.Type())
	}
	return &sshSigner{pub: pub}, nil
}

func (s *sshSigner) Algorithm() Algorithm { return Ed25519 }

func (s *sshSigner) Size() int { return ed25519.SignatureSize }

func (s *sshSigner) Sign(msg []byte) ([]byte, error) {
	if s.signer == nil {
		return nil, ErrVerifyOnly
	}
	sig, err := s.signer.Sign(rand.Reader, msg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Ed25519, err)
	}
	return sig.Blob, nil
}

func (s *sshSigner) Verify(digest, msg []byte) bool {
	if len(digest) != ed25519.SignatureSize {
		return false
	}
	return s.pub.Verify(msg, &ssh.Signature{Format: ssh.KeyAlgoED25519, Blob: digest}) == nil
}

// PublicKey returns the authorized_keys form of the signer's public key.
func PublicKey(s Signer) ([]byte, bool) {
	ss, ok := s.(*sshSigner)
	if !ok {
		return nil, false
	}
	return ssh.MarshalAuthorizedKey(ss.pub), true
}
