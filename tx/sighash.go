package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/jeangaud/MonPortefeuilleBSV/digest"
)

const (
	// SighashAllForkID is SIGHASH_ALL with the BSV/BCH fork-id flag bit.
	// It appears as a 4-byte little-endian field in the sighash preimage and
	// as a single trailing byte on each signature.
	SighashAllForkID uint32 = 0x41

	// defaultSequence is the sequence used for every input; the wallet does
	// not build replaceable or time-locked transactions.
	defaultSequence uint32 = 0xffffffff

	outpointSize = 36 // 32-byte txid + 4-byte index
)

// sighashAggregates holds the three digests shared by every input signature
// of one transaction (BIP143 hashPrevouts / hashSequence / hashOutputs).
// They commit all inputs and outputs so each input signs the whole
// transaction while hashing its own fields only once.
type sighashAggregates struct {
	prevouts []byte
	sequence []byte
	outputs  []byte
}

// outpoint serializes a UTXO reference as txid (internal byte order,
// reversed from display) followed by the little-endian output index.
func outpoint(u *UTXO) ([]byte, error) {
	if len(u.TxID) != digest.HashSize {
		return nil, fmt.Errorf("%w: txid must be %d bytes, got %d",
			ErrNilParam, digest.HashSize, len(u.TxID))
	}
	buf := make([]byte, 0, outpointSize)
	buf = append(buf, digest.Reverse(u.TxID)...)
	buf = binary.LittleEndian.AppendUint32(buf, u.Vout)
	return buf, nil
}

// computeAggregates builds the shared sighash digests from the ordered input
// set and the fully serialized output section. The input order here must be
// the order the inputs are later serialized in.
func computeAggregates(inputs []*UTXO, outputsData []byte) (*sighashAggregates, error) {
	var prevouts, sequences []byte
	for _, u := range inputs {
		op, err := outpoint(u)
		if err != nil {
			return nil, err
		}
		prevouts = append(prevouts, op...)
		sequences = binary.LittleEndian.AppendUint32(sequences, defaultSequence)
	}
	return &sighashAggregates{
		prevouts: digest.DoubleSHA256(prevouts),
		sequence: digest.DoubleSHA256(sequences),
		outputs:  digest.DoubleSHA256(outputsData),
	}, nil
}

// signatureHash computes the BIP143-style digest signed for one input.
//
// Preimage layout:
//
//	version(4LE) || hashPrevouts(32) || hashSequence(32) || outpoint(36) ||
//	varint(len(scriptCode)) || scriptCode || value(8LE) || sequence(4LE) ||
//	hashOutputs(32) || locktime(4LE) || sighashType(4LE)
//
// scriptCode is the P2PKH locking script of the input's source address.
// The digest is SHA256d of the preimage.
func signatureHash(version uint32, agg *sighashAggregates, in *UTXO, scriptCode []byte, locktime uint32) ([]byte, error) {
	op, err := outpoint(in)
	if err != nil {
		return nil, err
	}

	preimage := make([]byte, 0, 4+32+32+outpointSize+1+len(scriptCode)+8+4+32+4+4)
	preimage = binary.LittleEndian.AppendUint32(preimage, version)
	preimage = append(preimage, agg.prevouts...)
	preimage = append(preimage, agg.sequence...)
	preimage = append(preimage, op...)
	preimage = append(preimage, VarInt(uint64(len(scriptCode)))...)
	preimage = append(preimage, scriptCode...)
	preimage = binary.LittleEndian.AppendUint64(preimage, in.Value)
	preimage = binary.LittleEndian.AppendUint32(preimage, defaultSequence)
	preimage = append(preimage, agg.outputs...)
	preimage = binary.LittleEndian.AppendUint32(preimage, locktime)
	preimage = binary.LittleEndian.AppendUint32(preimage, SighashAllForkID)

	return digest.DoubleSHA256(preimage), nil
}
