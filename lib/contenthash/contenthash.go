// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contenthash

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// Domain is a 32-byte BLAKE3 key selecting a hash domain. The byte
// values are the ASCII domain name, zero-padded to 32 bytes, so the
// keys stay readable in hex dumps.
type Domain [32]byte

// Domain keys. These are fixed constants: changing one invalidates
// every digest previously computed in that domain.
var (
	DocumentDomain = Domain{
		'c', 'l', 'u', 's', 't', 'e', 'r', 'm', 'e', 't', 'a', '.',
		'd', 'o', 'c', 'u', 'm', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	TemplateDomain = Domain{
		'c', 'l', 'u', 's', 't', 'e', 'r', 'm', 'e', 't', 'a', '.',
		't', 'e', 'm', 'p', 'l', 'a', 't', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Sum computes the keyed BLAKE3 hash of data in the given domain.
func Sum(domain Domain, data []byte) Hash {
	hasher := New(domain)
	hasher.Write(data)
	return hasher.Sum()
}

// Hasher accumulates bytes for a single keyed digest. It is not safe
// for concurrent use.
type Hasher struct {
	state *blake3.Hasher
}

// New returns a Hasher keyed with domain.
func New(domain Domain) *Hasher {
	// NewKeyed only fails for keys that are not 32 bytes, which the
	// Domain type rules out.
	state, err := blake3.NewKeyed(domain[:])
	if err != nil {
		panic("contenthash: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return &Hasher{state: state}
}

// Write adds data to the running hash. It never returns an error.
func (h *Hasher) Write(data []byte) (int, error) {
	return h.state.Write(data)
}

// WriteString adds s to the running hash.
func (h *Hasher) WriteString(s string) (int, error) {
	return h.state.Write([]byte(s))
}

// Sum returns the digest of everything written so far. The hasher
// may continue to be written to afterwards.
func (h *Hasher) Sum() Hash {
	var hash Hash
	copy(hash[:], h.state.Sum(nil))
	return hash
}

// IsZero reports whether the hash is the zero value, which no real
// digest produces in practice. Used to detect unset hashes.
func (hash Hash) IsZero() bool {
	return hash == Hash{}
}

// String returns the hex encoding of the hash.
func (hash Hash) String() string {
	return Format(hash)
}

// Format returns the hex-encoded string representation of a hash.
func Format(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// Parse parses a 64-character hex string into a Hash.
func Parse(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing content hash: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("content hash is %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}
