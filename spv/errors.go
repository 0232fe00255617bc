package spv

import "errors"

var (
	// ErrInvalidHeader indicates a block header failed to deserialize or has
	// malformed fields.
	ErrInvalidHeader = errors.New("spv: invalid header")

	// ErrInsufficientPoW indicates a header hash does not meet its stated
	// difficulty target.
	ErrInsufficientPoW = errors.New("spv: insufficient proof of work")

	// ErrMerkleMismatch indicates the recomputed Merkle root does not match
	// the header's embedded root.
	ErrMerkleMismatch = errors.New("spv: merkle proof mismatch")

	// ErrProofUnavailable indicates the network provider could not supply a
	// Merkle proof for the transaction.
	ErrProofUnavailable = errors.New("spv: merkle proof unavailable")

	// ErrChainBroken indicates consecutive headers do not link by PrevBlock.
	ErrChainBroken = errors.New("spv: header chain broken")

	// ErrHeaderNotFound indicates the header store has no entry for the
	// requested hash or height.
	ErrHeaderNotFound = errors.New("spv: header not found")

	// ErrInvalidTxID indicates a transaction id is not a 32-byte hash.
	ErrInvalidTxID = errors.New("spv: invalid transaction id")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("spv: required parameter is nil")
)
