// Package digest provides the hash primitives shared by transaction signing
// and SPV verification: SHA256d and HASH160.
package digest

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // HASH160 is defined over RIPEMD-160
)

// HashSize is the size of a SHA256 (and SHA256d) output in bytes.
const HashSize = 32

// DoubleSHA256 computes SHA256(SHA256(data)), Bitcoin's block and
// transaction hash function.
func DoubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Hash160 computes RIPEMD160(SHA256(data)), the public key hash used in
// P2PKH addresses and locking scripts.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// Reverse returns a new slice with the bytes of b in reverse order.
// Hashes travel the wire in internal (little-endian) order but are
// displayed big-endian; this converts between the two.
func Reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
