package network

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jeangaud/MonPortefeuilleBSV/spv"
)

var _ Provider = (*Pool)(nil)

// Pool is a Provider that fails over across several ElectrumX servers.
// Servers are tried in order; the first one that answers wins, and a
// healthy server is remembered so subsequent calls start with it.
type Pool struct {
	clients []*Client
	log     zerolog.Logger

	// preferred is the index of the last server that answered. A stale
	// read only changes the trial order, but the pool must stay safe
	// under concurrent calls.
	preferred atomic.Int32
}

// NewPool builds a failover pool over the given servers.
func NewPool(servers []Server, cfg ClientConfig, log zerolog.Logger) (*Pool, error) {
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	clients := make([]*Client, len(servers))
	for i, s := range servers {
		clients[i] = NewClient(s, cfg)
	}
	return &Pool{clients: clients, log: log}, nil
}

// do runs fn against each server until one succeeds. Domain errors
// (rejected broadcast, unknown transaction, missing proof) abort the
// rotation: a second server would only repeat the verdict.
func (p *Pool) do(ctx context.Context, op string, fn func(*Client) error) error {
	start := int(p.preferred.Load())
	var lastErr error
	for i := 0; i < len(p.clients); i++ {
		idx := (start + i) % len(p.clients)
		client := p.clients[idx]

		err := fn(client)
		if err == nil {
			p.preferred.Store(int32(idx))
			return nil
		}
		if !retryable(err) {
			return err
		}

		p.log.Warn().Err(err).Str("server", client.Server().Addr()).Str("op", op).
			Msg("server failed, trying next")
		lastErr = err
	}
	return fmt.Errorf("%w: %s: %w", ErrAllServersFailed, op, lastErr)
}

// retryable reports whether another server is worth trying.
func retryable(err error) bool {
	return errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrInvalidResponse)
}

func (p *Pool) TipHeight(ctx context.Context) (uint32, error) {
	var tip uint32
	err := p.do(ctx, "tip_height", func(c *Client) error {
		var err error
		tip, err = c.TipHeight(ctx)
		return err
	})
	return tip, err
}

func (p *Pool) Balance(ctx context.Context, address string) (*Balance, error) {
	var bal *Balance
	err := p.do(ctx, "balance", func(c *Client) error {
		var err error
		bal, err = c.Balance(ctx, address)
		return err
	})
	return bal, err
}

func (p *Pool) ListUnspent(ctx context.Context, address string) ([]*UTXORef, error) {
	var utxos []*UTXORef
	err := p.do(ctx, "list_unspent", func(c *Client) error {
		var err error
		utxos, err = c.ListUnspent(ctx, address)
		return err
	})
	return utxos, err
}

func (p *Pool) History(ctx context.Context, address string) ([]*HistoryItem, error) {
	var history []*HistoryItem
	err := p.do(ctx, "history", func(c *Client) error {
		var err error
		history, err = c.History(ctx, address)
		return err
	})
	return history, err
}

func (p *Pool) RawTransaction(ctx context.Context, txidHex string) ([]byte, error) {
	var raw []byte
	err := p.do(ctx, "raw_transaction", func(c *Client) error {
		var err error
		raw, err = c.RawTransaction(ctx, txidHex)
		return err
	})
	return raw, err
}

func (p *Pool) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	var txid string
	err := p.do(ctx, "broadcast", func(c *Client) error {
		var err error
		txid, err = c.Broadcast(ctx, rawTxHex)
		return err
	})
	return txid, err
}

func (p *Pool) TransactionHeight(ctx context.Context, txidHex string) (int64, error) {
	var height int64
	err := p.do(ctx, "transaction_height", func(c *Client) error {
		var err error
		height, err = c.TransactionHeight(ctx, txidHex)
		return err
	})
	return height, err
}

func (p *Pool) BlockHeader(ctx context.Context, height uint32) (*spv.Header, error) {
	var header *spv.Header
	err := p.do(ctx, "block_header", func(c *Client) error {
		var err error
		header, err = c.BlockHeader(ctx, height)
		return err
	})
	return header, err
}

func (p *Pool) TransactionMerkle(ctx context.Context, txidHex string, height uint32) (*spv.MerkleProof, error) {
	var proof *spv.MerkleProof
	err := p.do(ctx, "transaction_merkle", func(c *Client) error {
		var err error
		proof, err = c.TransactionMerkle(ctx, txidHex, height)
		return err
	})
	return proof, err
}
