package tx

import "errors"

var (
	// ErrInsufficientFunds indicates the candidate UTXOs cannot cover the
	// target amount plus the estimated fee.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrInvalidDestination indicates an output address or script cannot be
	// decoded to a 20-byte public key hash.
	ErrInvalidDestination = errors.New("tx: invalid destination")

	// ErrInvalidSource indicates an input's source address cannot be decoded,
	// so no script code can be built for its sighash.
	ErrInvalidSource = errors.New("tx: invalid source address")

	// ErrInvalidAddress indicates a Base58Check address failed to decode.
	ErrInvalidAddress = errors.New("tx: invalid address")

	// ErrInvalidScript indicates a locking script is not standard P2PKH.
	ErrInvalidScript = errors.New("tx: invalid locking script")

	// ErrSigningFailed indicates ECDSA signing or signature encoding failed.
	ErrSigningFailed = errors.New("tx: signing failed")

	// ErrNilParam indicates a required parameter is nil or empty.
	ErrNilParam = errors.New("tx: required parameter is nil")
)
