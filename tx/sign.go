package tx

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// curveOrder is the secp256k1 group order n; halfOrder is n/2, the canonical
// upper bound for a signature's S component.
var (
	curveOrder = secp256k1.S256().N
	halfOrder  = new(big.Int).Rsh(secp256k1.S256().N, 1)
)

// signDigest produces a deterministic (RFC 6979) ECDSA signature over a
// 32-byte digest and returns it in canonical minimal-DER form. Determinism
// makes the whole build reproducible: the same inputs always yield the same
// signature bytes.
func signDigest(privKey, hash []byte) ([]byte, error) {
	if len(privKey) != 32 {
		return nil, fmt.Errorf("%w: private key must be 32 bytes, got %d",
			ErrSigningFailed, len(privKey))
	}
	if len(hash) != 32 {
		return nil, fmt.Errorf("%w: digest must be 32 bytes, got %d",
			ErrSigningFailed, len(hash))
	}

	priv := secp256k1.PrivKeyFromBytes(privKey)
	defer priv.Zero()

	sig := ecdsa.Sign(priv, hash).Serialize()
	return canonicalizeSignature(sig)
}

// compressedPubKey derives the 33-byte compressed public key for a raw
// 32-byte private key.
func compressedPubKey(privKey []byte) ([]byte, error) {
	if len(privKey) != 32 {
		return nil, fmt.Errorf("%w: private key must be 32 bytes, got %d",
			ErrSigningFailed, len(privKey))
	}
	priv := secp256k1.PrivKeyFromBytes(privKey)
	defer priv.Zero()
	return priv.PubKey().SerializeCompressed(), nil
}

// IsCanonicalSignature reports whether a DER signature's S component is in
// the lower half of the curve order, as network policy requires.
func IsCanonicalSignature(sig []byte) bool {
	_, s, err := parseDERSignature(sig)
	if err != nil {
		return false
	}
	return s.Cmp(halfOrder) <= 0
}

// canonicalizeSignature forces a DER signature into canonical form: if the
// S component exceeds n/2 it is replaced by n-S, and both integers are
// re-encoded minimally (no zero padding beyond the single 0x00 byte needed
// to keep a high-bit leading byte non-negative).
func canonicalizeSignature(sig []byte) ([]byte, error) {
	r, s, err := parseDERSignature(sig)
	if err != nil {
		return nil, err
	}
	if s.Cmp(halfOrder) > 0 {
		s = new(big.Int).Sub(curveOrder, s)
	}
	return encodeDERSignature(r, s), nil
}

// parseDERSignature extracts the R and S integers from a DER-encoded ECDSA
// signature: 0x30 len 0x02 rlen R 0x02 slen S.
func parseDERSignature(sig []byte) (r, s *big.Int, err error) {
	if len(sig) < 8 || sig[0] != 0x30 {
		return nil, nil, fmt.Errorf("%w: malformed DER signature", ErrSigningFailed)
	}
	if int(sig[1]) != len(sig)-2 {
		return nil, nil, fmt.Errorf("%w: DER length mismatch", ErrSigningFailed)
	}
	if sig[2] != 0x02 {
		return nil, nil, fmt.Errorf("%w: missing R integer marker", ErrSigningFailed)
	}
	rLen := int(sig[3])
	sMarker := 4 + rLen
	if sMarker+2 > len(sig) || sig[sMarker] != 0x02 {
		return nil, nil, fmt.Errorf("%w: missing S integer marker", ErrSigningFailed)
	}
	sLen := int(sig[sMarker+1])
	sStart := sMarker + 2
	if sStart+sLen != len(sig) {
		return nil, nil, fmt.Errorf("%w: S length mismatch", ErrSigningFailed)
	}
	r = new(big.Int).SetBytes(sig[4 : 4+rLen])
	s = new(big.Int).SetBytes(sig[sStart : sStart+sLen])
	return r, s, nil
}

// encodeDERSignature serializes R and S as a minimal DER signature.
func encodeDERSignature(r, s *big.Int) []byte {
	rb := minimalIntBytes(r)
	sb := minimalIntBytes(s)

	sig := make([]byte, 0, 6+len(rb)+len(sb))
	sig = append(sig, 0x30, byte(4+len(rb)+len(sb)))
	sig = append(sig, 0x02, byte(len(rb)))
	sig = append(sig, rb...)
	sig = append(sig, 0x02, byte(len(sb)))
	sig = append(sig, sb...)
	return sig
}

// minimalIntBytes returns the big-endian bytes of v with no leading zeros,
// prefixed with a single 0x00 when the high bit is set so the DER integer
// stays non-negative.
func minimalIntBytes(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 {
		return []byte{0x00}
	}
	if b[0]&0x80 != 0 {
		return append([]byte{0x00}, b...)
	}
	return b
}
