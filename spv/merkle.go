package spv

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/jeangaud/MonPortefeuilleBSV/digest"
)

// MerkleProof is a branch of sibling hashes proving a transaction's
// inclusion in a block, as returned by blockchain.transaction.get_merkle.
// Siblings are ordered leaf-to-root and hex-encoded in display order.
type MerkleProof struct {
	TxIDHex     string   `json:"tx_hash"`
	BlockHeight uint32   `json:"block_height"`
	Position    uint32   `json:"pos"`
	Siblings    []string `json:"merkle"`
}

// RootFromProof folds the proof branch into a Merkle root. At each level
// the running hash is combined with the sibling: on the left when the
// index is even, on the right when odd, halving the index per level. All
// hashing happens in internal byte order; the display-order hex inputs
// are reversed first. The returned root is in internal order, ready to
// compare against a parsed header's MerkleRoot.
func RootFromProof(proof *MerkleProof) ([]byte, error) {
	if proof == nil {
		return nil, fmt.Errorf("%w: proof", ErrNilParam)
	}

	current, err := internalHash(proof.TxIDHex)
	if err != nil {
		return nil, fmt.Errorf("%w: tx hash: %w", ErrInvalidTxID, err)
	}

	index := proof.Position
	for i, siblingHex := range proof.Siblings {
		sibling, err := internalHash(siblingHex)
		if err != nil {
			return nil, fmt.Errorf("%w: sibling %d: %w", ErrMerkleMismatch, i, err)
		}

		if index%2 == 0 {
			current = digest.DoubleSHA256(concat(current, sibling))
		} else {
			current = digest.DoubleSHA256(concat(sibling, current))
		}
		index /= 2
	}
	return current, nil
}

// VerifyProof recomputes the Merkle root from the proof branch and
// compares it against the root embedded in the block header.
func VerifyProof(proof *MerkleProof, header *Header) error {
	if header == nil {
		return fmt.Errorf("%w: header", ErrNilParam)
	}

	root, err := RootFromProof(proof)
	if err != nil {
		return err
	}
	if !bytes.Equal(root, header.MerkleRoot) {
		return fmt.Errorf("%w: computed %x, header has %x",
			ErrMerkleMismatch, digest.Reverse(root), digest.Reverse(header.MerkleRoot))
	}
	return nil
}

// internalHash decodes a display-order hex hash into internal byte order.
func internalHash(displayHex string) ([]byte, error) {
	raw, err := hex.DecodeString(displayHex)
	if err != nil {
		return nil, err
	}
	if len(raw) != digest.HashSize {
		return nil, fmt.Errorf("hash is %d bytes, want %d", len(raw), digest.HashSize)
	}
	return digest.Reverse(raw), nil
}

// MerkleRootOf computes the root of a full transaction list, duplicating
// the last element of odd-sized levels. TxIDs are in internal byte order.
// Used to cross-check proofs in tests and when a server returns the full
// block txid list.
func MerkleRootOf(txids [][]byte) ([]byte, error) {
	if len(txids) == 0 {
		return nil, fmt.Errorf("%w: no transactions", ErrNilParam)
	}

	level := make([][]byte, len(txids))
	for i, id := range txids {
		if len(id) != digest.HashSize {
			return nil, fmt.Errorf("%w: txid %d is %d bytes", ErrInvalidTxID, i, len(id))
		}
		level[i] = id
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, digest.DoubleSHA256(concat(level[i], level[i+1])))
		}
		level = next
	}
	return level[0], nil
}

func concat(left, right []byte) []byte {
	buf := make([]byte, 0, len(left)+len(right))
	buf = append(buf, left...)
	return append(buf, right...)
}

// ProofForIndex builds the sibling branch for the transaction at the
// given index from a full txid list. The counterpart of RootFromProof,
// used to fabricate known-good proofs in tests.
func ProofForIndex(txids [][]byte, index uint32) ([]string, error) {
	if int(index) >= len(txids) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidTxID, index)
	}

	level := make([][]byte, len(txids))
	copy(level, txids)

	var siblings []string
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		sibling := index ^ 1
		siblings = append(siblings, hex.EncodeToString(digest.Reverse(level[sibling])))

		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, digest.DoubleSHA256(concat(level[i], level[i+1])))
		}
		level = next
		index /= 2
	}
	return siblings, nil
}
