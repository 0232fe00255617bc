package wallet

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jeangaud/MonPortefeuilleBSV/network"
	"github.com/jeangaud/MonPortefeuilleBSV/tx"
)

// DefaultGapLimit is the number of consecutive unused addresses that
// ends a chain scan, per the BIP44 account discovery convention.
const DefaultGapLimit = 20

// AddressState is everything the scan learned about one derived address.
type AddressState struct {
	Key     *KeyPair
	Used    bool
	Balance network.Balance
	UTXOs   []*tx.UTXO
}

// ScanResult aggregates a full discovery pass over both chains.
type ScanResult struct {
	States []*AddressState

	TotalConfirmed   uint64
	TotalUnconfirmed int64

	// Next unused index per chain, for handing out fresh addresses.
	NextReceiveIndex uint32
	NextChangeIndex  uint32
}

// Spendable returns every confirmed UTXO found by the scan.
func (r *ScanResult) Spendable() []*tx.UTXO {
	var utxos []*tx.UTXO
	for _, st := range r.States {
		utxos = append(utxos, st.UTXOs...)
	}
	return utxos
}

// KeyFor returns the derived key pair owning an address.
func (r *ScanResult) KeyFor(address string) (*KeyPair, error) {
	for _, st := range r.States {
		if st.Key.Address == address {
			return st.Key, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, address)
}

// Scanner discovers the wallet's used addresses and their funds.
type Scanner struct {
	wallet   *Wallet
	provider network.Provider
	gapLimit uint32
	log      zerolog.Logger
}

// NewScanner builds a Scanner. gapLimit 0 uses DefaultGapLimit.
func NewScanner(w *Wallet, provider network.Provider, gapLimit uint32, log zerolog.Logger) (*Scanner, error) {
	if w == nil || provider == nil {
		return nil, fmt.Errorf("%w: wallet and provider required", ErrInvalidSeed)
	}
	if gapLimit == 0 {
		gapLimit = DefaultGapLimit
	}
	return &Scanner{wallet: w, provider: provider, gapLimit: gapLimit, log: log}, nil
}

// Scan walks both chains index by index until it sees gapLimit
// consecutive addresses with no history, fetching the balance and
// unspent outputs of every used address.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	result := &ScanResult{}

	for _, chain := range []uint32{ExternalChain, InternalChain} {
		next, err := s.scanChain(ctx, chain, result)
		if err != nil {
			return nil, err
		}
		if chain == ExternalChain {
			result.NextReceiveIndex = next
		} else {
			result.NextChangeIndex = next
		}
	}

	s.log.Debug().
		Int("addresses", len(result.States)).
		Uint64("confirmed", result.TotalConfirmed).
		Int64("unconfirmed", result.TotalUnconfirmed).
		Msg("scan complete")
	return result, nil
}

// scanChain scans one chain and returns the next unused index.
func (s *Scanner) scanChain(ctx context.Context, chain uint32, result *ScanResult) (uint32, error) {
	var gap, next uint32
	for index := uint32(0); gap < s.gapLimit; index++ {
		key, err := s.wallet.DeriveKey(chain, index)
		if err != nil {
			return 0, err
		}

		state, err := s.inspect(ctx, key)
		if err != nil {
			return 0, err
		}

		if !state.Used {
			gap++
			continue
		}
		gap = 0
		next = index + 1

		result.States = append(result.States, state)
		result.TotalConfirmed += state.Balance.Confirmed
		result.TotalUnconfirmed += state.Balance.Unconfirmed
	}
	return next, nil
}

// inspect fetches history, balance and UTXOs for one address.
func (s *Scanner) inspect(ctx context.Context, key *KeyPair) (*AddressState, error) {
	history, err := s.provider.History(ctx, key.Address)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", key.Address, err)
	}

	state := &AddressState{Key: key, Used: len(history) > 0}
	if !state.Used {
		return state, nil
	}

	bal, err := s.provider.Balance(ctx, key.Address)
	if err != nil {
		return nil, fmt.Errorf("balance for %s: %w", key.Address, err)
	}
	state.Balance = *bal

	refs, err := s.provider.ListUnspent(ctx, key.Address)
	if err != nil {
		return nil, fmt.Errorf("utxos for %s: %w", key.Address, err)
	}
	for _, ref := range refs {
		// Unconfirmed outputs are counted in the balance but not spent.
		if ref.Height == 0 {
			continue
		}
		utxo, err := utxoFromRef(ref, key.Index)
		if err != nil {
			return nil, err
		}
		state.UTXOs = append(state.UTXOs, utxo)
	}
	return state, nil
}

// utxoFromRef converts a server-side UTXO reference to a spendable one.
func utxoFromRef(ref *network.UTXORef, derivationIndex uint32) (*tx.UTXO, error) {
	txid, err := hex.DecodeString(ref.TxIDHex)
	if err != nil || len(txid) != 32 {
		return nil, fmt.Errorf("wallet: bad txid %q from server", ref.TxIDHex)
	}
	return &tx.UTXO{
		TxID:            txid,
		Vout:            ref.Vout,
		Value:           ref.Value,
		Address:         ref.Address,
		DerivationIndex: derivationIndex,
	}, nil
}
