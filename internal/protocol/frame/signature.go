package frame

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Signature holds the digest of a frameset. Its length is checked against the
// signer by the frameset, not here.
type Signature struct {
	digest []byte
}

// NewSignature copies digest. A nil digest makes a placeholder.
func NewSignature(digest []byte) *Signature {
	return &Signature{digest: bytes.Clone(digest)}
}

func (f *Signature) Type() Type { return TypeSignature }

func (f *Signature) Len() int { return len(f.digest) }

func (f *Signature) Digest() []byte { return bytes.Clone(f.digest) }

func (f *Signature) Validate() error { return nil }

func (f *Signature) AppendValue(dst []byte) []byte {
	return append(dst, f.digest...)
}

func (f *Signature) String() string {
	if len(f.digest) == 0 {
		return "signature(placeholder)"
	}
	return fmt.Sprintf("signature(%s)", hex.EncodeToString(f.digest))
}

func (*Signature) sealed() {}
