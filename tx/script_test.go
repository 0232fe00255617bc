package tx

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarInt(t *testing.T) {
	tests := []struct {
		name string
		n    uint64
		want []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"small", 0xfc, []byte{0xfc}},
		{"fd boundary", 0xfd, []byte{0xfd, 0xfd, 0x00}},
		{"uint16 max", 0xffff, []byte{0xfd, 0xff, 0xff}},
		{"uint32", 0x10000, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		{"uint64", 0x100000000, []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VarInt(tt.n))
		})
	}
}

func TestAddressRoundTrip(t *testing.T) {
	hash := bytes.Repeat([]byte{0xAB}, PubKeyHashSize)

	addr, err := EncodeAddress(AddressVersion, hash)
	require.NoError(t, err)

	version, decoded, err := DecodeAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, AddressVersion, version)
	assert.Equal(t, hash, decoded)
}

func TestDecodeAddress_KnownAddress(t *testing.T) {
	// The genesis coinbase address.
	version, hash, err := DecodeAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), version)

	want, _ := hex.DecodeString("62e907b15cbf27d5425399ebf6f0fb50ebb88f18")
	assert.Equal(t, want, hash)
}

func TestDecodeAddress_Invalid(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"garbage", "not-an-address"},
		{"corrupted checksum", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb"},
		{"too short", "1A1zP1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeAddress(tt.addr)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

// Decoding the locking script produced for an address and re-encoding must
// yield the same 20-byte hash as decoding the address directly.
func TestLockingScriptRoundTrip(t *testing.T) {
	const addr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

	script, err := LockingScriptForAddress(addr)
	require.NoError(t, err)
	assert.Len(t, script, 25)
	assert.Equal(t, byte(0x76), script[0])
	assert.Equal(t, byte(0xa9), script[1])
	assert.Equal(t, byte(0x88), script[23])
	assert.Equal(t, byte(0xac), script[24])

	fromScript, err := PubKeyHashFromScript(script)
	require.NoError(t, err)

	_, fromAddr, err := DecodeAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, fromAddr, fromScript)

	reencoded, err := EncodeAddress(AddressVersion, fromScript)
	require.NoError(t, err)
	assert.Equal(t, addr, reencoded)
}

func TestPubKeyHashFromScript_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		script []byte
	}{
		{"empty", nil},
		{"too short", []byte{0x76, 0xa9}},
		{"wrong opcodes", bytes.Repeat([]byte{0x00}, 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PubKeyHashFromScript(tt.script)
			assert.ErrorIs(t, err, ErrInvalidScript)
		})
	}
}

func TestAddressFromPubKey(t *testing.T) {
	// Compressed public key of private key 1 gives the well-known address.
	pub, err := hex.DecodeString("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	require.NoError(t, err)

	addr, err := AddressFromPubKey(pub)
	require.NoError(t, err)
	assert.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", addr)
}

func TestElectrumScriptHash(t *testing.T) {
	// Reference scripthash for the genesis address, per the Electrum
	// protocol docs convention (sha256 of script, reversed).
	sh, err := ElectrumScriptHash("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.NoError(t, err)
	assert.Len(t, sh, 64)

	// Deterministic: same address, same scripthash.
	sh2, err := ElectrumScriptHash("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.NoError(t, err)
	assert.Equal(t, sh, sh2)

	_, err = ElectrumScriptHash("bogus")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
