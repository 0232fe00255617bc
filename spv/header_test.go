package spv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeangaud/MonPortefeuilleBSV/digest"
)

// The mainnet genesis header, the canonical test vector for the codec.
const genesisHeaderHex = "01000000" +
	"0000000000000000000000000000000000000000000000000000000000000000" +
	"3ba3edfd7a7b12b27ac72c3e67768f617fc81bc3888a51323a9fb8aa4b1e5e4a" +
	"29ab5f49" + "ffff001d" + "1dac2b7c"

const genesisHashHex = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"

// permissiveBits yields a target above 2^256, so any hash passes the
// proof-of-work check. Used to build deterministic fake chains.
const permissiveBits uint32 = 0x227fffff

// impossibleBits yields a zero target, so no hash can ever pass.
const impossibleBits uint32 = 0x01000001

func TestParseHeader_Genesis(t *testing.T) {
	h, err := ParseHeaderHex(genesisHeaderHex)
	require.NoError(t, err)

	assert.Equal(t, int32(1), h.Version)
	assert.Equal(t, make([]byte, 32), h.PrevBlock)
	assert.Equal(t, uint32(1231006505), h.Timestamp)
	assert.Equal(t, uint32(0x1d00ffff), h.Bits)
	assert.Equal(t, uint32(2083236893), h.Nonce)
	assert.Equal(t, genesisHashHex, h.HashHex())
	assert.Equal(t, "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
		h.MerkleRootHex())
}

func TestHeaderSerialize_RoundTrip(t *testing.T) {
	h, err := ParseHeaderHex(genesisHeaderHex)
	require.NoError(t, err)

	raw := h.Serialize()
	require.Len(t, raw, HeaderSize)
	reparsed, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, h.Hash, reparsed.Hash)
}

func TestParseHeader_BadInput(t *testing.T) {
	_, err := ParseHeader(make([]byte, 79))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = ParseHeader(make([]byte, 81))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = ParseHeaderHex("zz")
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestBitsToTarget(t *testing.T) {
	// Maximum difficulty-1 target: 0xffff shifted up 26 bytes.
	target := BitsToTarget(0x1d00ffff)
	assert.Equal(t,
		"ffff0000000000000000000000000000000000000000000000000000",
		fmt.Sprintf("%x", target))

	// Small exponent shifts the mantissa down instead.
	assert.Equal(t, "12", fmt.Sprintf("%x", BitsToTarget(0x01120000)))

	// Sign bit in the mantissa collapses the target to zero.
	assert.Equal(t, "0", fmt.Sprintf("%x", BitsToTarget(0x04800001)))
}

func TestCheckPoW(t *testing.T) {
	genesis, err := ParseHeaderHex(genesisHeaderHex)
	require.NoError(t, err)
	assert.NoError(t, CheckPoW(genesis))

	// A corrupted nonce invalidates 32 leading zero bits of work.
	broken := *genesis
	broken.Nonce++
	broken.Hash = digest.DoubleSHA256(broken.Serialize())
	assert.ErrorIs(t, CheckPoW(&broken), ErrInsufficientPoW)

	assert.ErrorIs(t, CheckPoW(nil), ErrNilParam)
}

// fakeHeader builds a header that passes proof of work and links to prev.
func fakeHeader(prev *Header, nonce uint32) *Header {
	h := &Header{
		Version:    1,
		PrevBlock:  make([]byte, digest.HashSize),
		MerkleRoot: make([]byte, digest.HashSize),
		Timestamp:  1700000000,
		Bits:       permissiveBits,
		Nonce:      nonce,
	}
	if prev != nil {
		copy(h.PrevBlock, prev.Hash)
		h.Height = prev.Height + 1
	}
	h.Hash = digest.DoubleSHA256(h.Serialize())
	return h
}

func TestCheckHeaderChain(t *testing.T) {
	h0 := fakeHeader(nil, 0)
	h1 := fakeHeader(h0, 1)
	h2 := fakeHeader(h1, 2)

	assert.NoError(t, CheckHeaderChain([]*Header{h0, h1, h2}))
	assert.NoError(t, CheckHeaderChain(nil))
}

func TestCheckHeaderChain_Broken(t *testing.T) {
	h0 := fakeHeader(nil, 0)
	h1 := fakeHeader(h0, 1)
	orphan := fakeHeader(nil, 99) // does not link to h1

	err := CheckHeaderChain([]*Header{h0, h1, orphan})
	assert.ErrorIs(t, err, ErrChainBroken)
}

func TestCheckHeaderChain_BadPoW(t *testing.T) {
	h0 := fakeHeader(nil, 0)
	h1 := fakeHeader(h0, 1)
	h1.Bits = impossibleBits
	h1.Hash = digest.DoubleSHA256(h1.Serialize())

	err := CheckHeaderChain([]*Header{h0, h1})
	assert.ErrorIs(t, err, ErrInsufficientPoW)
}
