package spv

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/jeangaud/MonPortefeuilleBSV/digest"
)

// HeaderSize is the size of a serialized block header in bytes.
const HeaderSize = 80

// Header is a parsed 80-byte block header. PrevBlock, MerkleRoot and Hash
// are kept in internal byte order (as they appear on the wire); use the
// *Hex accessors for the familiar display form.
type Header struct {
	Version    int32
	PrevBlock  []byte // 32 bytes, internal order
	MerkleRoot []byte // 32 bytes, internal order
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32

	Height uint32 // not part of the wire format; tracked separately
	Hash   []byte // SHA256d of the 80 serialized bytes, internal order
}

// HashHex returns the header hash in display order.
func (h *Header) HashHex() string {
	return hex.EncodeToString(digest.Reverse(h.Hash))
}

// MerkleRootHex returns the Merkle root in display order.
func (h *Header) MerkleRootHex() string {
	return hex.EncodeToString(digest.Reverse(h.MerkleRoot))
}

// Serialize encodes the header into its fixed 80-byte wire form:
// version(4LE) | prevBlock(32) | merkleRoot(32) | timestamp(4LE) |
// bits(4LE) | nonce(4LE).
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.PrevBlock)
	copy(buf[36:68], h.MerkleRoot)
	binary.LittleEndian.PutUint32(buf[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return buf
}

// ParseHeader decodes an 80-byte header and computes its hash.
func ParseHeader(raw []byte) (*Header, error) {
	if len(raw) != HeaderSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(raw))
	}

	h := &Header{
		Version:    int32(binary.LittleEndian.Uint32(raw[0:4])),
		PrevBlock:  make([]byte, digest.HashSize),
		MerkleRoot: make([]byte, digest.HashSize),
		Timestamp:  binary.LittleEndian.Uint32(raw[68:72]),
		Bits:       binary.LittleEndian.Uint32(raw[72:76]),
		Nonce:      binary.LittleEndian.Uint32(raw[76:80]),
	}
	copy(h.PrevBlock, raw[4:36])
	copy(h.MerkleRoot, raw[36:68])
	h.Hash = digest.DoubleSHA256(raw)
	return h, nil
}

// ParseHeaderHex decodes a hex-encoded 80-byte header as returned by
// blockchain.block.header.
func ParseHeaderHex(rawHex string) (*Header, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex: %w", ErrInvalidHeader, err)
	}
	return ParseHeader(raw)
}

// BitsToTarget expands the compact difficulty representation (nBits,
// 0xEEMMMMMM: exponent byte + 3-byte mantissa) into the full 256-bit
// target. A set sign bit in the mantissa yields a zero target.
func BitsToTarget(bits uint32) *big.Int {
	exponent := bits >> 24
	mantissa := int64(bits & 0x007fffff)
	if bits&0x00800000 != 0 {
		mantissa = 0
	}

	target := big.NewInt(mantissa)
	if exponent <= 3 {
		return target.Rsh(target, uint(8*(3-exponent)))
	}
	return target.Lsh(target, uint(8*(exponent-3)))
}

// CheckPoW verifies that the header hash, read as a big-endian 256-bit
// integer, is below the target derived from Bits.
func CheckPoW(h *Header) error {
	if h == nil {
		return fmt.Errorf("%w: header", ErrNilParam)
	}
	hash := h.Hash
	if len(hash) == 0 {
		hash = digest.DoubleSHA256(h.Serialize())
	}

	// The internal-order hash is little-endian as an integer; reverse to
	// compare numerically.
	hashInt := new(big.Int).SetBytes(digest.Reverse(hash))
	if hashInt.Cmp(BitsToTarget(h.Bits)) >= 0 {
		return fmt.Errorf("%w: hash %s exceeds target for bits 0x%08x", ErrInsufficientPoW, h.HashHex(), h.Bits)
	}
	return nil
}

// CheckHeaderChain verifies that headers form a contiguous chain: each
// header's PrevBlock must equal the previous header's hash, and every
// header must satisfy its own proof of work. Headers are expected in
// ascending height order.
func CheckHeaderChain(headers []*Header) error {
	for i, h := range headers {
		if h == nil {
			return fmt.Errorf("%w: header at index %d", ErrNilParam, i)
		}
		if err := CheckPoW(h); err != nil {
			return fmt.Errorf("header %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		prev := headers[i-1]
		prevHash := prev.Hash
		if len(prevHash) == 0 {
			prevHash = digest.DoubleSHA256(prev.Serialize())
		}
		if !bytes.Equal(h.PrevBlock, prevHash) {
			return fmt.Errorf("%w: header %d does not link to header %d", ErrChainBroken, i, i-1)
		}
	}
	return nil
}
