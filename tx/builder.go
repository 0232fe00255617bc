package tx

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/jeangaud/MonPortefeuilleBSV/digest"
)

const (
	txVersion  uint32 = 1
	txLocktime uint32 = 0
)

// SignedTx holds a fully built and signed transaction.
type SignedTx struct {
	Raw  []byte // wire serialization
	TxID []byte // SHA256d of Raw, internal byte order
}

// Hex returns the raw transaction as a hex string, the form accepted by
// the broadcast call.
func (t *SignedTx) Hex() string {
	return hex.EncodeToString(t.Raw)
}

// TxIDHex returns the transaction id in display order (byte-reversed hex).
func (t *SignedTx) TxIDHex() string {
	return hex.EncodeToString(digest.Reverse(t.TxID))
}

// PaymentOutputs assembles the output list for a payment funded by sel:
// the destination output plus a change output back to changeAddr. Change at
// or below the dust limit is dropped entirely, leaving the remainder to the
// miner, rather than creating an unspendable output.
func PaymentOutputs(sel *Selection, destAddr string, amount uint64, changeAddr string) ([]Output, error) {
	if sel == nil {
		return nil, fmt.Errorf("%w: selection", ErrNilParam)
	}
	if sel.Total < amount+sel.Fee {
		return nil, fmt.Errorf("%w: selection total %d below amount %d + fee %d",
			ErrInsufficientFunds, sel.Total, amount, sel.Fee)
	}

	outputs := []Output{{Address: destAddr, Value: amount}}
	change := sel.Total - amount - sel.Fee
	if change > DustLimit {
		outputs = append(outputs, Output{Address: changeAddr, Value: change})
	}
	return outputs, nil
}

// BuildAndSign assembles and signs a complete transaction spending the given
// inputs to the given outputs.
//
// The build is pure and deterministic: the same inputs, outputs and keys
// always produce byte-identical results. Any address that fails to decode
// aborts the whole build; a partial transaction is never returned.
func BuildAndSign(inputs []Input, outputs []Output) (*SignedTx, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: inputs", ErrNilParam)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: outputs", ErrNilParam)
	}

	// Serialize all outputs first: the output section is committed by
	// hashOutputs, which every input signature depends on.
	var outputsData []byte
	for _, out := range outputs {
		script, err := LockingScriptForAddress(out.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: output address %q: %w", ErrInvalidDestination, out.Address, err)
		}
		outputsData = binary.LittleEndian.AppendUint64(outputsData, out.Value)
		outputsData = append(outputsData, VarInt(uint64(len(script)))...)
		outputsData = append(outputsData, script...)
	}

	utxos := make([]*UTXO, len(inputs))
	for i := range inputs {
		if inputs[i].UTXO == nil {
			return nil, fmt.Errorf("%w: input %d UTXO", ErrNilParam, i)
		}
		utxos[i] = inputs[i].UTXO
	}

	agg, err := computeAggregates(utxos, outputsData)
	if err != nil {
		return nil, err
	}

	// Sign and serialize each input in the same order used for the
	// aggregates above.
	var inputsData []byte
	for i, in := range inputs {
		scriptCode, err := LockingScriptForAddress(in.UTXO.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: input %d address %q: %w", ErrInvalidSource, i, in.UTXO.Address, err)
		}

		sigHash, err := signatureHash(txVersion, agg, in.UTXO, scriptCode, txLocktime)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}

		sig, err := signDigest(in.PrivKey, sigHash)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		sig = append(sig, byte(SighashAllForkID))

		pubKey := in.PubKey
		if len(pubKey) == 0 {
			pubKey, err = compressedPubKey(in.PrivKey)
			if err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}
		}

		// Unlocking script: push(sig || sighashByte) push(pubkey). Both
		// pushes fit in a single-byte direct push (< 0x4c).
		unlocking := make([]byte, 0, 2+len(sig)+len(pubKey))
		unlocking = append(unlocking, byte(len(sig)))
		unlocking = append(unlocking, sig...)
		unlocking = append(unlocking, byte(len(pubKey)))
		unlocking = append(unlocking, pubKey...)

		op, err := outpoint(in.UTXO)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		inputsData = append(inputsData, op...)
		inputsData = append(inputsData, VarInt(uint64(len(unlocking)))...)
		inputsData = append(inputsData, unlocking...)
		inputsData = binary.LittleEndian.AppendUint32(inputsData, defaultSequence)
	}

	var raw []byte
	raw = binary.LittleEndian.AppendUint32(raw, txVersion)
	raw = append(raw, VarInt(uint64(len(inputs)))...)
	raw = append(raw, inputsData...)
	raw = append(raw, VarInt(uint64(len(outputs)))...)
	raw = append(raw, outputsData...)
	raw = binary.LittleEndian.AppendUint32(raw, txLocktime)

	return &SignedTx{
		Raw:  raw,
		TxID: digest.DoubleSHA256(raw),
	}, nil
}
