// Package secret implements the hash-lock primitive shared by both legs of
// an atomic swap: a 32-byte preimage and its SHA-256 digest.
package secret

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/bitswaplabs/accs-btc-bts/pkg/helpers"
)

// Secret is a 32-byte preimage plus its SHA-256 hash. A hash-only Secret
// constructed via FromHash has no known preimage (HasPreimage reports
// false); the accepter uses one before it has observed the reveal on chain.
type Secret struct {
	preimage [32]byte
	hash     [32]byte
	hasPreimage bool
}

// Random draws 32 cryptographically random bytes as the preimage and
// derives its SHA-256 hash.
func Random() (Secret, error) {
	raw, err := helpers.GenerateSecureRandom(32)
	if err != nil {
		return Secret{}, fmt.Errorf("generate secret: %w", err)
	}
	var preimage [32]byte
	copy(preimage[:], raw)
	return Secret{
		preimage:    preimage,
		hash:        sha256.Sum256(preimage[:]),
		hasPreimage: true,
	}, nil
}

// FromHash constructs a hash-only Secret: the accepter knows only the hash
// until the proposer's redemption reveals the preimage.
func FromHash(hash [32]byte) Secret {
	return Secret{hash: hash}
}

// FromPreimage constructs a Secret from a known preimage, verifying it
// matches the expected hash. Used once the accepter extracts the preimage
// from a witness.
func FromPreimage(preimage []byte, expectedHash [32]byte) (Secret, error) {
	if len(preimage) != 32 {
		return Secret{}, fmt.Errorf("preimage must be 32 bytes, got %d", len(preimage))
	}
	actual := sha256.Sum256(preimage)
	if !helpers.ConstantTimeCompare(actual[:], expectedHash[:]) {
		return Secret{}, fmt.Errorf("preimage does not hash to expected value")
	}
	var p [32]byte
	copy(p[:], preimage)
	return Secret{preimage: p, hash: expectedHash, hasPreimage: true}, nil
}

// HasPreimage reports whether the preimage is known.
func (s Secret) HasPreimage() bool { return s.hasPreimage }

// Preimage returns the 32-byte preimage. Panics if HasPreimage is false;
// callers must check HasPreimage first.
func (s Secret) Preimage() [32]byte {
	if !s.hasPreimage {
		panic("secret: preimage not known")
	}
	return s.preimage
}

// Hash returns the SHA-256 digest of the preimage.
func (s Secret) Hash() [32]byte { return s.hash }

// HashHex returns the hash as lowercase hex.
func (s Secret) HashHex() string { return hex.EncodeToString(s.hash[:]) }

// PreimageHex returns the preimage as lowercase hex. Panics if not known.
func (s Secret) PreimageHex() string {
	p := s.Preimage()
	return hex.EncodeToString(p[:])
}

// HashFromHex parses a lowercase hex string into a 32-byte hash.
func HashFromHex(h string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(h)
	if err != nil {
		return out, fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
