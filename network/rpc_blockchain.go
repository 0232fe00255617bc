package network

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jeangaud/MonPortefeuilleBSV/spv"
	"github.com/jeangaud/MonPortefeuilleBSV/tx"
)

var _ Provider = (*Client)(nil)

// TipHeight returns the current chain height via headers.subscribe,
// which doubles as a liveness probe for the server.
func (c *Client) TipHeight(ctx context.Context) (uint32, error) {
	var tip struct {
		Height uint32 `json:"height"`
		Hex    string `json:"hex"`
	}
	if err := c.Call(ctx, "blockchain.headers.subscribe", nil, &tip); err != nil {
		return 0, err
	}
	if tip.Height == 0 {
		return 0, fmt.Errorf("%w: zero tip height", ErrInvalidResponse)
	}
	return tip.Height, nil
}

// Balance returns the confirmed and unconfirmed balance of an address.
func (c *Client) Balance(ctx context.Context, address string) (*Balance, error) {
	scriptHash, err := tx.ElectrumScriptHash(address)
	if err != nil {
		return nil, err
	}

	var bal Balance
	if err := c.Call(ctx, "blockchain.scripthash.get_balance",
		[]interface{}{scriptHash}, &bal); err != nil {
		return nil, err
	}
	return &bal, nil
}

// ListUnspent returns the unspent outputs paying to an address.
func (c *Client) ListUnspent(ctx context.Context, address string) ([]*UTXORef, error) {
	scriptHash, err := tx.ElectrumScriptHash(address)
	if err != nil {
		return nil, err
	}

	var utxos []*UTXORef
	if err := c.Call(ctx, "blockchain.scripthash.listunspent",
		[]interface{}{scriptHash}, &utxos); err != nil {
		return nil, err
	}
	for _, u := range utxos {
		u.Address = address
	}
	return utxos, nil
}

// History returns the transactions touching an address. The server
// orders confirmed entries by height with mempool entries last.
func (c *Client) History(ctx context.Context, address string) ([]*HistoryItem, error) {
	scriptHash, err := tx.ElectrumScriptHash(address)
	if err != nil {
		return nil, err
	}

	var history []*HistoryItem
	if err := c.Call(ctx, "blockchain.scripthash.get_history",
		[]interface{}{scriptHash}, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// RawTransaction fetches the raw bytes of a transaction.
func (c *Client) RawTransaction(ctx context.Context, txidHex string) ([]byte, error) {
	var rawHex string
	err := c.Call(ctx, "blockchain.transaction.get", []interface{}{txidHex}, &rawHex)
	if err != nil {
		return nil, mapTxError(err)
	}

	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction is not hex: %w", ErrInvalidResponse, err)
	}
	return raw, nil
}

// Broadcast submits a raw transaction and returns the txid the server
// accepted it under.
func (c *Client) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	var txid string
	err := c.Call(ctx, "blockchain.transaction.broadcast", []interface{}{rawTxHex}, &txid)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return "", fmt.Errorf("%w: %s", ErrBroadcastRejected, rpcErr.Message)
		}
		return "", err
	}

	// Some servers report rejection as a result string instead of an
	// error object; a valid acceptance is always a 64-char txid.
	if len(txid) != 64 {
		return "", fmt.Errorf("%w: %s", ErrBroadcastRejected, txid)
	}
	if _, err := hex.DecodeString(txid); err != nil {
		return "", fmt.Errorf("%w: %s", ErrBroadcastRejected, txid)
	}
	return txid, nil
}

// TransactionHeight locates a transaction's confirming block. The
// verbose transaction lookup reports confirmations; the height is
// derived from the current tip. Unconfirmed transactions return 0.
func (c *Client) TransactionHeight(ctx context.Context, txidHex string) (int64, error) {
	var info struct {
		Confirmations int64 `json:"confirmations"`
	}
	err := c.Call(ctx, "blockchain.transaction.get", []interface{}{txidHex, true}, &info)
	if err != nil {
		return 0, mapTxError(err)
	}
	if info.Confirmations <= 0 {
		return 0, nil
	}

	tip, err := c.TipHeight(ctx)
	if err != nil {
		return 0, err
	}
	return int64(tip) - info.Confirmations + 1, nil
}

// BlockHeader fetches and parses the 80-byte header at a height.
func (c *Client) BlockHeader(ctx context.Context, height uint32) (*spv.Header, error) {
	var rawHex string
	if err := c.Call(ctx, "blockchain.block.header", []interface{}{height}, &rawHex); err != nil {
		return nil, err
	}

	header, err := spv.ParseHeaderHex(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	header.Height = height
	return header, nil
}

// TransactionMerkle fetches the Merkle branch proving a transaction's
// inclusion in the block at the given height. A server that cannot
// produce the proof surfaces as spv.ErrProofUnavailable so the verifier
// can report it as a domain outcome rather than a transport fault.
func (c *Client) TransactionMerkle(ctx context.Context, txidHex string, height uint32) (*spv.MerkleProof, error) {
	var resp struct {
		BlockHeight uint32   `json:"block_height"`
		Pos         uint32   `json:"pos"`
		Merkle      []string `json:"merkle"`
	}
	err := c.Call(ctx, "blockchain.transaction.get_merkle", []interface{}{txidHex, height}, &resp)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: %s", spv.ErrProofUnavailable, rpcErr.Message)
		}
		return nil, err
	}

	return &spv.MerkleProof{
		TxIDHex:     txidHex,
		BlockHeight: resp.BlockHeight,
		Position:    resp.Pos,
		Siblings:    resp.Merkle,
	}, nil
}

// mapTxError converts the server's "no such transaction" rejection into
// ErrTxNotFound.
func mapTxError(err error) error {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && strings.Contains(rpcErr.Message, "No such") {
		return fmt.Errorf("%w: %s", ErrTxNotFound, rpcErr.Message)
	}
	return err
}
