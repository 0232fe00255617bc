package tx

import (
	"fmt"
	"sort"
)

// Size model for fee estimation. A signed P2PKH input serializes to roughly
// 148 bytes (outpoint 36 + script ~107 + sequence 4 + varint), a P2PKH
// output to 34, and the fixed fields (version, counts, locktime) to 10.
const (
	baseTxOverhead = 10
	outputSize     = 34
	inputSize      = 148

	// selectionMargin keeps a small buffer above target+fee so rounding in
	// the size estimate never leaves the transaction underfunded.
	selectionMargin uint64 = 1000
)

// EstimateSize returns the estimated serialized size in bytes of a
// transaction with the given input and output counts.
func EstimateSize(numInputs, numOutputs int) uint64 {
	return uint64(baseTxOverhead + outputSize*numOutputs + inputSize*numInputs)
}

// SelectForAmount picks UTXOs to fund a payment of target satoshis at the
// given fee rate, for a transaction with numOutputs outputs (destination
// plus change, typically 2).
//
// Strategy: largest-first greedy. Candidates are sorted by value descending
// and accumulated one at a time; after each addition the fee is recomputed
// from the current input count, and accumulation stops as soon as
// total >= target + fee + margin. The sort is stable, so ties keep their
// input order and the selection is fully deterministic.
//
// Returns ErrInsufficientFunds when every candidate together still cannot
// reach the threshold. Selection is all-or-nothing; a partial result is
// never returned.
func SelectForAmount(candidates []*UTXO, target, feeRate uint64, numOutputs int) (*Selection, error) {
	if target == 0 {
		return nil, fmt.Errorf("%w: target amount", ErrNilParam)
	}
	if numOutputs <= 0 {
		numOutputs = 2
	}

	sorted := make([]*UTXO, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	// The margin buffers fee-estimate rounding; a zero fee rate charges no
	// fee and needs no buffer.
	margin := selectionMargin
	if feeRate == 0 {
		margin = 0
	}

	var (
		selected []*UTXO
		total    uint64
		fee      uint64
	)
	for _, u := range sorted {
		selected = append(selected, u)
		total += u.Value

		fee = EstimateSize(len(selected), numOutputs) * feeRate
		if total >= target+fee+margin {
			return &Selection{Inputs: selected, Total: total, Fee: fee}, nil
		}
	}

	return nil, fmt.Errorf("%w: have %d satoshis across %d UTXOs, need %d plus %d fee",
		ErrInsufficientFunds, total, len(sorted), target, fee)
}
