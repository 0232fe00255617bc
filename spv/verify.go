package spv

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ChainSource supplies the chain data a verification needs. The network
// client implements it; tests substitute a mock.
type ChainSource interface {
	// TransactionHeight returns the block height confirming a txid.
	// Heights <= 0 mean the transaction is known but unconfirmed.
	TransactionHeight(ctx context.Context, txidHex string) (int64, error)

	// BlockHeader returns the parsed header at a height.
	BlockHeader(ctx context.Context, height uint32) (*Header, error)

	// TransactionMerkle returns the inclusion proof for a confirmed txid.
	TransactionMerkle(ctx context.Context, txidHex string, height uint32) (*MerkleProof, error)
}

// Status is the outcome of an inclusion check.
type Status int

const (
	// StatusVerified means the Merkle proof ties the transaction to a
	// block header.
	StatusVerified Status = iota

	// StatusUnconfirmed means the transaction exists but has no block yet.
	StatusUnconfirmed

	// StatusProofUnavailable means the source could not supply a proof.
	StatusProofUnavailable

	// StatusMerkleMismatch means the proof does not reproduce the
	// header's Merkle root.
	StatusMerkleMismatch
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusUnconfirmed:
		return "unconfirmed"
	case StatusProofUnavailable:
		return "proof unavailable"
	case StatusMerkleMismatch:
		return "merkle mismatch"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result reports an inclusion check. HeaderPoWValid is tracked apart
// from Status: a proof can reproduce the Merkle root of a header whose
// own proof of work is bogus, and callers decide how much that matters
// (a header served by a single untrusted peer warrants the check; one
// from the local verified store does not).
type Result struct {
	TxID           string
	Status         Status
	Height         uint32
	Header         *Header
	HeaderPoWValid bool
	Confirmations  uint32
}

// Verified reports whether the transaction is proven to be in a block
// with acceptable proof of work.
func (r *Result) Verified() bool {
	return r.Status == StatusVerified && r.HeaderPoWValid
}

// Verifier checks transaction inclusion against block headers. Headers
// are read through the optional store first and written back after a
// successful fetch.
type Verifier struct {
	source ChainSource
	store  HeaderStore
	log    zerolog.Logger
}

// NewVerifier builds a Verifier. store may be nil to disable caching.
func NewVerifier(source ChainSource, store HeaderStore, log zerolog.Logger) (*Verifier, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: source", ErrNilParam)
	}
	return &Verifier{source: source, store: store, log: log}, nil
}

// VerifyInclusion checks that a transaction is included in a block.
// Domain outcomes (unconfirmed, missing proof, root mismatch) land in
// the Result; transport and lookup failures come back as errors.
func (v *Verifier) VerifyInclusion(ctx context.Context, txidHex string) (*Result, error) {
	if len(txidHex) != 2*32 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTxID, txidHex)
	}

	height, err := v.source.TransactionHeight(ctx, txidHex)
	if err != nil {
		return nil, fmt.Errorf("locate transaction: %w", err)
	}
	if height <= 0 {
		v.log.Debug().Str("txid", txidHex).Msg("transaction not yet confirmed")
		return &Result{TxID: txidHex, Status: StatusUnconfirmed}, nil
	}

	header, err := v.headerAt(ctx, uint32(height))
	if err != nil {
		return nil, fmt.Errorf("fetch header at %d: %w", height, err)
	}

	res := &Result{
		TxID:   txidHex,
		Height: uint32(height),
		Header: header,
	}
	res.HeaderPoWValid = CheckPoW(header) == nil
	if !res.HeaderPoWValid {
		v.log.Warn().Str("hash", header.HashHex()).Uint32("height", res.Height).
			Msg("header fails proof of work")
	}

	proof, err := v.source.TransactionMerkle(ctx, txidHex, res.Height)
	if err != nil {
		if errors.Is(err, ErrProofUnavailable) {
			res.Status = StatusProofUnavailable
			return res, nil
		}
		return nil, fmt.Errorf("fetch merkle proof: %w", err)
	}

	if err := VerifyProof(proof, header); err != nil {
		if errors.Is(err, ErrMerkleMismatch) {
			v.log.Warn().Str("txid", txidHex).Uint32("height", res.Height).
				Msg("merkle proof does not match header")
			res.Status = StatusMerkleMismatch
			return res, nil
		}
		return nil, err
	}

	res.Status = StatusVerified
	if tip, err := v.tipHeight(); err == nil && tip >= res.Height {
		res.Confirmations = tip - res.Height + 1
	}
	v.log.Debug().Str("txid", txidHex).Uint32("height", res.Height).
		Uint32("confirmations", res.Confirmations).Msg("inclusion verified")
	return res, nil
}

func (v *Verifier) headerAt(ctx context.Context, height uint32) (*Header, error) {
	if v.store != nil {
		if h, err := v.store.HeaderAt(height); err == nil {
			return h, nil
		}
	}

	h, err := v.source.BlockHeader(ctx, height)
	if err != nil {
		return nil, err
	}
	h.Height = height

	if v.store != nil {
		if err := v.store.PutHeader(h); err != nil {
			v.log.Warn().Err(err).Uint32("height", height).Msg("header cache write failed")
		}
	}
	return h, nil
}

func (v *Verifier) tipHeight() (uint32, error) {
	if v.store == nil {
		return 0, ErrHeaderNotFound
	}
	return v.store.TipHeight()
}
