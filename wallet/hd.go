// Package wallet implements a BIP32/BIP39 hierarchical-deterministic
// BSV wallet: key derivation, encrypted seed storage, address scanning,
// payment assembly and balance monitoring.
//
// Key hierarchy: {base path}/{chain}/{index}, where the base path
// defaults to m/44'/236'/0' and chain 0 holds receive addresses,
// chain 1 change addresses.
package wallet

import (
	"fmt"
	"strconv"
	"strings"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/jeangaud/MonPortefeuilleBSV/tx"
)

const (
	// DefaultBasePath is the BIP44 account path for BSV (coin type 236).
	DefaultBasePath = "m/44'/236'/0'"

	// Chain indices below the account level.
	ExternalChain = 0 // receive addresses
	InternalChain = 1 // change addresses

	// Hardened is the BIP32 hardened derivation offset.
	Hardened = 0x80000000
)

// Wallet derives keys from a BIP39 seed under a fixed base path.
type Wallet struct {
	accountKey *bip32.ExtendedKey
	basePath   string
	network    *NetworkConfig
}

// KeyPair is one derived key with everything a spend needs: the raw
// 32-byte private scalar, the compressed public key, and the P2PKH
// address.
type KeyPair struct {
	PrivKey []byte `json:"-"`
	PubKey  []byte `json:"public_key"`
	Address string `json:"address"`
	Path    string `json:"path"`
	Chain   uint32 `json:"chain"`
	Index   uint32 `json:"index"`
}

// Zero wipes the private key material in place.
func (kp *KeyPair) Zero() {
	for i := range kp.PrivKey {
		kp.PrivKey[i] = 0
	}
}

// NewWallet creates a Wallet from a BIP39 seed. basePath selects the
// account subtree ("" uses DefaultBasePath); the account key is derived
// once up front so per-address derivation costs two child steps.
func NewWallet(seed []byte, basePath string, network *NetworkConfig) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if network == nil {
		network = &MainNet
	}

	steps, err := ParsePath(basePath)
	if err != nil {
		return nil, err
	}

	var net *chaincfg.Params
	switch network.Name {
	case "mainnet":
		net = &chaincfg.MainNet
	default:
		net = &chaincfg.TestNet
	}

	masterKey, err := bip32.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	current := masterKey
	for i, step := range steps {
		current, err = current.Child(step)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d of %s: %w", ErrDerivationFailed, i, basePath, err)
		}
	}

	return &Wallet{
		accountKey: current,
		basePath:   basePath,
		network:    network,
	}, nil
}

// Network returns the wallet's network configuration.
func (w *Wallet) Network() *NetworkConfig {
	return w.network
}

// BasePath returns the account-level derivation path.
func (w *Wallet) BasePath() string {
	return w.basePath
}

// DeriveKey derives the key pair at {base path}/{chain}/{index}.
func (w *Wallet) DeriveKey(chain, index uint32) (*KeyPair, error) {
	chainKey, err := w.accountKey.Child(chain)
	if err != nil {
		return nil, fmt.Errorf("%w: chain derivation: %w", ErrDerivationFailed, err)
	}

	childKey, err := chainKey.Child(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index derivation: %w", ErrDerivationFailed, err)
	}

	privKey, err := childKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}

	pubKey := privKey.PubKey().Compressed()
	address, err := tx.AddressFromPubKey(pubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return &KeyPair{
		PrivKey: privKeyBytes(privKey),
		PubKey:  pubKey,
		Address: address,
		Path:    fmt.Sprintf("%s/%d/%d", w.basePath, chain, index),
		Chain:   chain,
		Index:   index,
	}, nil
}

// ReceiveKey derives the external-chain key at index.
func (w *Wallet) ReceiveKey(index uint32) (*KeyPair, error) {
	return w.DeriveKey(ExternalChain, index)
}

// ChangeKey derives the internal-chain key at index.
func (w *Wallet) ChangeKey(index uint32) (*KeyPair, error) {
	return w.DeriveKey(InternalChain, index)
}

// ParsePath parses a derivation path like "m/44'/236'/0'" into child
// indices, with ' (or h/H) marking hardened steps. The leading "m" is
// required.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with \"m/\"", ErrInvalidPath, path)
	}

	steps := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}

		hardened := false
		switch part[len(part)-1] {
		case '\'', 'h', 'H':
			hardened = true
			part = part[:len(part)-1]
		}

		index, err := strconv.ParseUint(part, 10, 32)
		if err != nil || index >= Hardened {
			return nil, fmt.Errorf("%w: bad index %q in %q", ErrInvalidPath, part, path)
		}

		step := uint32(index)
		if hardened {
			step += Hardened
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// privKeyBytes serializes the private scalar as 32 big-endian bytes.
func privKeyBytes(priv *ec.PrivateKey) []byte {
	out := make([]byte, 32)
	b := priv.D.Bytes()
	copy(out[32-len(b):], b)
	return out
}
