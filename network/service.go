package network

import (
	"context"

	"github.com/jeangaud/MonPortefeuilleBSV/spv"
)

// Provider is the blockchain access surface the wallet builds on. The
// single-server Client and the failover Pool both implement it, and the
// SPV verifier consumes it through the ChainSource adapter.
type Provider interface {
	// TipHeight returns the height of the current chain tip.
	TipHeight(ctx context.Context) (uint32, error)

	// Balance returns the confirmed and unconfirmed satoshi balance of
	// an address.
	Balance(ctx context.Context, address string) (*Balance, error)

	// ListUnspent returns the unspent outputs paying to an address.
	ListUnspent(ctx context.Context, address string) ([]*UTXORef, error)

	// History returns every transaction touching an address, confirmed
	// entries first in height order.
	History(ctx context.Context, address string) ([]*HistoryItem, error)

	// RawTransaction returns the raw bytes of a transaction.
	RawTransaction(ctx context.Context, txidHex string) ([]byte, error)

	// Broadcast submits a raw transaction and returns its txid.
	Broadcast(ctx context.Context, rawTxHex string) (string, error)

	// TransactionHeight returns the block height confirming a
	// transaction; 0 for a known but unconfirmed one.
	TransactionHeight(ctx context.Context, txidHex string) (int64, error)

	// BlockHeader returns the parsed header at a height.
	BlockHeader(ctx context.Context, height uint32) (*spv.Header, error)

	// TransactionMerkle returns the inclusion proof for a confirmed
	// transaction.
	TransactionMerkle(ctx context.Context, txidHex string, height uint32) (*spv.MerkleProof, error)
}

// Balance is an address balance in satoshis.
type Balance struct {
	Confirmed   uint64 `json:"confirmed"`
	Unconfirmed int64  `json:"unconfirmed"`
}

// Total returns confirmed plus unconfirmed, floored at zero.
func (b *Balance) Total() uint64 {
	total := int64(b.Confirmed) + b.Unconfirmed
	if total < 0 {
		return 0
	}
	return uint64(total)
}

// UTXORef is an unspent output as reported by the server.
type UTXORef struct {
	TxIDHex string `json:"tx_hash"`
	Vout    uint32 `json:"tx_pos"`
	Value   uint64 `json:"value"`
	Height  uint32 `json:"height"`
	Address string `json:"-"`
}

// HistoryItem is one entry of an address's transaction history. Height 0
// means the transaction is still in the mempool.
type HistoryItem struct {
	TxIDHex string `json:"tx_hash"`
	Height  int64  `json:"height"`
	Fee     uint64 `json:"fee,omitempty"`
}
