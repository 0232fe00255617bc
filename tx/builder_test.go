package tx

import (
	"encoding/binary"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeangaud/MonPortefeuilleBSV/digest"
)

// testKeyAddress derives the P2PKH address belonging to a test private key
// so that built inputs can actually be signed by it.
func testKeyAddress(t *testing.T, priv []byte) string {
	t.Helper()
	pub, err := compressedPubKey(priv)
	require.NoError(t, err)
	addr, err := AddressFromPubKey(pub)
	require.NoError(t, err)
	return addr
}

func testInput(t *testing.T, priv []byte, value uint64, seed byte) Input {
	t.Helper()
	txid := make([]byte, 32)
	txid[0] = seed
	return Input{
		UTXO: &UTXO{
			TxID:    txid,
			Vout:    uint32(seed),
			Value:   value,
			Address: testKeyAddress(t, priv),
		},
		PrivKey: priv,
	}
}

// parsedTx holds the fields recovered from a raw transaction in a test.
type parsedTx struct {
	version    uint32
	inputs     int
	outputs    []Output
	rawOutputs [][]byte
	locktime   uint32
}

// parseRawTx walks the wire serialization. Only single-byte varints are
// expected in these tests.
func parseRawTx(t *testing.T, raw []byte) parsedTx {
	t.Helper()
	p := parsedTx{version: binary.LittleEndian.Uint32(raw[0:4])}
	off := 4

	numInputs := int(raw[off])
	off++
	p.inputs = numInputs
	for i := 0; i < numInputs; i++ {
		off += 36 // outpoint
		scriptLen := int(raw[off])
		off += 1 + scriptLen
		off += 4 // sequence
	}

	numOutputs := int(raw[off])
	off++
	for i := 0; i < numOutputs; i++ {
		value := binary.LittleEndian.Uint64(raw[off : off+8])
		off += 8
		scriptLen := int(raw[off])
		off++
		script := raw[off : off+scriptLen]
		off += scriptLen

		hash, err := PubKeyHashFromScript(script)
		require.NoError(t, err)
		addr, err := EncodeAddress(AddressVersion, hash)
		require.NoError(t, err)
		p.outputs = append(p.outputs, Output{Address: addr, Value: value})
		p.rawOutputs = append(p.rawOutputs, script)
	}

	p.locktime = binary.LittleEndian.Uint32(raw[off : off+4])
	require.Equal(t, len(raw), off+4, "trailing bytes after locktime")
	return p
}

func TestBuildAndSign_Deterministic(t *testing.T) {
	priv := testPrivKey(11)
	inputs := []Input{testInput(t, priv, 100000, 1)}
	outputs := []Output{
		{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Value: 50000},
		{Address: testKeyAddress(t, priv), Value: 49000},
	}

	first, err := BuildAndSign(inputs, outputs)
	require.NoError(t, err)
	second, err := BuildAndSign(inputs, outputs)
	require.NoError(t, err)

	assert.Equal(t, first.Raw, second.Raw, "repeated builds must be byte-identical")
	assert.Equal(t, first.TxID, second.TxID)
}

func TestBuildAndSign_WireLayout(t *testing.T) {
	privA := testPrivKey(21)
	privB := testPrivKey(22)
	inputs := []Input{
		testInput(t, privA, 70000, 1),
		testInput(t, privB, 40000, 2),
	}
	outputs := []Output{
		{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Value: 100000},
	}

	built, err := BuildAndSign(inputs, outputs)
	require.NoError(t, err)

	p := parseRawTx(t, built.Raw)
	assert.Equal(t, uint32(1), p.version)
	assert.Equal(t, 2, p.inputs)
	require.Len(t, p.outputs, 1)
	assert.Equal(t, uint64(100000), p.outputs[0].Value)
	assert.Equal(t, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", p.outputs[0].Address)
	assert.Equal(t, uint32(0), p.locktime)

	assert.Equal(t, digest.DoubleSHA256(built.Raw), built.TxID)
	assert.Len(t, built.TxIDHex(), 64)
}

func TestBuildAndSign_SignaturesVerify(t *testing.T) {
	privA := testPrivKey(31)
	privB := testPrivKey(32)
	inputs := []Input{
		testInput(t, privA, 30000, 5),
		testInput(t, privB, 20000, 6),
	}
	outputs := []Output{
		{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Value: 45000},
	}

	built, err := BuildAndSign(inputs, outputs)
	require.NoError(t, err)

	// Recompute each input's sighash and check the embedded signature.
	var outputsData []byte
	for _, out := range outputs {
		script, err := LockingScriptForAddress(out.Address)
		require.NoError(t, err)
		outputsData = binary.LittleEndian.AppendUint64(outputsData, out.Value)
		outputsData = append(outputsData, VarInt(uint64(len(script)))...)
		outputsData = append(outputsData, script...)
	}
	agg, err := computeAggregates([]*UTXO{inputs[0].UTXO, inputs[1].UTXO}, outputsData)
	require.NoError(t, err)

	// Walk the serialized inputs to pull out each unlocking script.
	off := 5 // version + input count
	for i, in := range inputs {
		off += 36
		scriptLen := int(built.Raw[off])
		off++
		unlocking := built.Raw[off : off+scriptLen]
		off += scriptLen + 4

		sigLen := int(unlocking[0])
		sigWithType := unlocking[1 : 1+sigLen]
		require.Equal(t, byte(SighashAllForkID), sigWithType[sigLen-1])
		der := sigWithType[:sigLen-1]
		assert.True(t, IsCanonicalSignature(der), "input %d signature must be canonical", i)

		pubLen := int(unlocking[1+sigLen])
		pubBytes := unlocking[2+sigLen : 2+sigLen+pubLen]
		pub, err := secp256k1.ParsePubKey(pubBytes)
		require.NoError(t, err)

		scriptCode, err := LockingScriptForAddress(in.UTXO.Address)
		require.NoError(t, err)
		sigHash, err := signatureHash(txVersion, agg, in.UTXO, scriptCode, txLocktime)
		require.NoError(t, err)

		parsed, err := ecdsa.ParseDERSignature(der)
		require.NoError(t, err)
		assert.True(t, parsed.Verify(sigHash, pub), "input %d signature must verify", i)
	}
}

func TestBuildAndSign_InvalidDestination(t *testing.T) {
	priv := testPrivKey(41)
	inputs := []Input{testInput(t, priv, 10000, 1)}
	outputs := []Output{{Address: "definitely-not-an-address", Value: 5000}}

	_, err := BuildAndSign(inputs, outputs)
	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestBuildAndSign_InvalidSource(t *testing.T) {
	priv := testPrivKey(42)
	in := testInput(t, priv, 10000, 1)
	in.UTXO.Address = "broken"
	outputs := []Output{{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Value: 5000}}

	_, err := BuildAndSign([]Input{in}, outputs)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestBuildAndSign_EmptyParams(t *testing.T) {
	_, err := BuildAndSign(nil, []Output{{Address: "x", Value: 1}})
	assert.ErrorIs(t, err, ErrNilParam)

	priv := testPrivKey(43)
	_, err = BuildAndSign([]Input{testInput(t, priv, 1000, 1)}, nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestPaymentOutputs_DustSuppressed(t *testing.T) {
	// Change of 1000 - 900 - 54 = 46 sats is dust and must be dropped.
	sel := &Selection{Inputs: []*UTXO{makeUTXO(1000, 0)}, Total: 1000, Fee: 54}

	outputs, err := PaymentOutputs(sel, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", 900,
		"1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	require.NoError(t, err)

	require.Len(t, outputs, 1, "dust change must not become an output")
	assert.Equal(t, uint64(900), outputs[0].Value)
}

func TestPaymentOutputs_ChangeKept(t *testing.T) {
	sel := &Selection{Inputs: []*UTXO{makeUTXO(100000, 0)}, Total: 100000, Fee: 192}

	outputs, err := PaymentOutputs(sel, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", 50000,
		"1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	require.NoError(t, err)

	require.Len(t, outputs, 2)
	assert.Equal(t, uint64(50000), outputs[0].Value)
	assert.Equal(t, uint64(100000-50000-192), outputs[1].Value)
}

func TestPaymentOutputs_Underfunded(t *testing.T) {
	sel := &Selection{Total: 1000, Fee: 200}
	_, err := PaymentOutputs(sel, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", 900, "x")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

// End-to-end: select, assemble outputs, build, and check totals.
func TestSelectBuildEndToEnd(t *testing.T) {
	priv := testPrivKey(51)
	addr := testKeyAddress(t, priv)

	candidate := &UTXO{
		TxID:    digest.DoubleSHA256([]byte("funding tx")),
		Vout:    0,
		Value:   100000,
		Address: addr,
	}

	sel, err := SelectForAmount([]*UTXO{candidate}, 50000, 1, 2)
	require.NoError(t, err)
	require.Len(t, sel.Inputs, 1)

	outputs, err := PaymentOutputs(sel, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", 50000, addr)
	require.NoError(t, err)
	require.Len(t, outputs, 2, "payment plus change")

	inputs := make([]Input, len(sel.Inputs))
	for i, u := range sel.Inputs {
		inputs[i] = Input{UTXO: u, PrivKey: priv}
	}

	built, err := BuildAndSign(inputs, outputs)
	require.NoError(t, err)

	p := parseRawTx(t, built.Raw)
	assert.Equal(t, 1, p.inputs)
	require.Len(t, p.outputs, 2)

	var totalOut uint64
	for _, out := range p.outputs {
		totalOut += out.Value
	}
	assert.LessOrEqual(t, totalOut, uint64(100000),
		"outputs cannot exceed input value")
	assert.Equal(t, uint64(50000), p.outputs[0].Value)
}
