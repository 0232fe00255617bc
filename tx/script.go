package tx

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"github.com/jeangaud/MonPortefeuilleBSV/digest"
)

const (
	// AddressVersion is the Base58Check version byte for mainnet P2PKH.
	AddressVersion byte = 0x00

	// PubKeyHashSize is the size of a HASH160 public key hash.
	PubKeyHashSize = 20

	// DustLimit is the minimum change value in satoshis. Change at or below
	// this value is dropped rather than creating an uneconomical output.
	DustLimit uint64 = 546

	checksumSize = 4
)

// P2PKH script opcodes.
const (
	opDup         byte = 0x76
	opHash160     byte = 0xa9
	opEqualVerify byte = 0x88
	opCheckSig    byte = 0xac
)

// VarInt encodes n as a Bitcoin variable-length integer.
func VarInt(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))
		return buf
	case n <= 0xffffffff:
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		return buf
	default:
		buf := make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], n)
		return buf
	}
}

// EncodeAddress encodes a 20-byte public key hash as a Base58Check address:
// version || hash || SHA256d(version || hash)[:4].
func EncodeAddress(version byte, pubKeyHash []byte) (string, error) {
	if len(pubKeyHash) != PubKeyHashSize {
		return "", fmt.Errorf("%w: pubkey hash must be %d bytes, got %d",
			ErrInvalidAddress, PubKeyHashSize, len(pubKeyHash))
	}
	payload := make([]byte, 0, 1+PubKeyHashSize+checksumSize)
	payload = append(payload, version)
	payload = append(payload, pubKeyHash...)
	checksum := digest.DoubleSHA256(payload)[:checksumSize]
	payload = append(payload, checksum...)
	return base58.Encode(payload), nil
}

// DecodeAddress decodes a Base58Check address, verifies its checksum, and
// returns the version byte and the 20-byte public key hash.
func DecodeAddress(addr string) (byte, []byte, error) {
	decoded := base58.Decode(addr)
	if len(decoded) != 1+PubKeyHashSize+checksumSize {
		return 0, nil, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(decoded))
	}
	payload := decoded[:1+PubKeyHashSize]
	checksum := decoded[1+PubKeyHashSize:]
	expected := digest.DoubleSHA256(payload)[:checksumSize]
	if !bytes.Equal(checksum, expected) {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	hash := make([]byte, PubKeyHashSize)
	copy(hash, payload[1:])
	return payload[0], hash, nil
}

// AddressFromPubKey returns the mainnet P2PKH address for a 33-byte
// compressed public key.
func AddressFromPubKey(pubKey []byte) (string, error) {
	if len(pubKey) != 33 {
		return "", fmt.Errorf("%w: compressed pubkey must be 33 bytes, got %d",
			ErrInvalidAddress, len(pubKey))
	}
	return EncodeAddress(AddressVersion, digest.Hash160(pubKey))
}

// P2PKHLockingScript builds the standard locking script for a 20-byte
// public key hash: OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func P2PKHLockingScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != PubKeyHashSize {
		return nil, fmt.Errorf("%w: pubkey hash must be %d bytes, got %d",
			ErrInvalidScript, PubKeyHashSize, len(pubKeyHash))
	}
	script := make([]byte, 0, 25)
	script = append(script, opDup, opHash160, byte(PubKeyHashSize))
	script = append(script, pubKeyHash...)
	script = append(script, opEqualVerify, opCheckSig)
	return script, nil
}

// LockingScriptForAddress decodes addr and builds its P2PKH locking script.
func LockingScriptForAddress(addr string) ([]byte, error) {
	_, hash, err := DecodeAddress(addr)
	if err != nil {
		return nil, err
	}
	return P2PKHLockingScript(hash)
}

// PubKeyHashFromScript extracts the 20-byte public key hash from a standard
// P2PKH locking script. Non-P2PKH scripts return ErrInvalidScript.
func PubKeyHashFromScript(script []byte) ([]byte, error) {
	if len(script) != 25 ||
		script[0] != opDup || script[1] != opHash160 || script[2] != byte(PubKeyHashSize) ||
		script[23] != opEqualVerify || script[24] != opCheckSig {
		return nil, fmt.Errorf("%w: not a standard P2PKH script", ErrInvalidScript)
	}
	hash := make([]byte, PubKeyHashSize)
	copy(hash, script[3:23])
	return hash, nil
}

// ElectrumScriptHash computes the ElectrumX script hash for an address:
// SHA256 of the locking script, byte-reversed, hex-encoded. Every
// scripthash-keyed server query (balance, UTXOs, history) uses this.
func ElectrumScriptHash(addr string) (string, error) {
	script, err := LockingScriptForAddress(addr)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(script)
	return hex.EncodeToString(digest.Reverse(sum[:])), nil
}
