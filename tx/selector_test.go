package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeUTXO(value uint64, index uint32) *UTXO {
	txid := make([]byte, 32)
	txid[0] = byte(index)
	return &UTXO{
		TxID:            txid,
		Vout:            0,
		Value:           value,
		Address:         "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		DerivationIndex: index,
	}
}

func TestSelectForAmount_Sufficiency(t *testing.T) {
	candidates := []*UTXO{
		makeUTXO(20000, 0),
		makeUTXO(80000, 1),
		makeUTXO(5000, 2),
	}

	sel, err := SelectForAmount(candidates, 50000, 1, 2)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, sel.Total, 50000+sel.Fee,
		"total input value must cover target plus estimated fee")
	assert.Equal(t, EstimateSize(len(sel.Inputs), 2)*1, sel.Fee)
}

func TestSelectForAmount_LargestFirst(t *testing.T) {
	// With fee rate 0 the single largest candidate covers the target.
	candidates := []*UTXO{
		makeUTXO(500, 0),
		makeUTXO(300, 1),
		makeUTXO(200, 2),
		makeUTXO(100, 3),
	}

	sel, err := SelectForAmount(candidates, 450, 0, 2)
	require.NoError(t, err)

	require.Len(t, sel.Inputs, 1)
	assert.Equal(t, uint64(500), sel.Inputs[0].Value)
	assert.Equal(t, uint64(500), sel.Total)
	assert.Zero(t, sel.Fee)
}

func TestSelectForAmount_Accumulates(t *testing.T) {
	candidates := []*UTXO{
		makeUTXO(500, 0),
		makeUTXO(300, 1),
		makeUTXO(200, 2),
	}

	sel, err := SelectForAmount(candidates, 700, 0, 2)
	require.NoError(t, err)

	require.Len(t, sel.Inputs, 2)
	assert.Equal(t, uint64(500), sel.Inputs[0].Value)
	assert.Equal(t, uint64(300), sel.Inputs[1].Value)
	assert.Equal(t, uint64(800), sel.Total)
}

func TestSelectForAmount_FeeRecomputedPerInput(t *testing.T) {
	// Each added input raises the estimated fee, forcing another input.
	candidates := []*UTXO{
		makeUTXO(60000, 0),
		makeUTXO(59000, 1),
		makeUTXO(58000, 2),
	}

	sel, err := SelectForAmount(candidates, 115000, 10, 2)
	require.NoError(t, err)
	require.Len(t, sel.Inputs, 3)
	assert.Equal(t, EstimateSize(3, 2)*10, sel.Fee)
	assert.GreaterOrEqual(t, sel.Total, 115000+sel.Fee)
}

func TestSelectForAmount_InsufficientFunds(t *testing.T) {
	candidates := []*UTXO{
		makeUTXO(500, 0),
		makeUTXO(300, 1),
	}

	_, err := SelectForAmount(candidates, 10000, 1, 2)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSelectForAmount_NoCandidates(t *testing.T) {
	_, err := SelectForAmount(nil, 1000, 1, 2)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSelectForAmount_Deterministic(t *testing.T) {
	candidates := []*UTXO{
		makeUTXO(1000, 0),
		makeUTXO(1000, 1), // tie with index 0
		makeUTXO(2000, 2),
	}

	first, err := SelectForAmount(candidates, 2500, 0, 2)
	require.NoError(t, err)
	second, err := SelectForAmount(candidates, 2500, 0, 2)
	require.NoError(t, err)

	require.Equal(t, len(first.Inputs), len(second.Inputs))
	for i := range first.Inputs {
		assert.Equal(t, first.Inputs[i].DerivationIndex, second.Inputs[i].DerivationIndex)
	}
	// Stable sort: the tied 1000-sat UTXOs keep their original order.
	require.Len(t, first.Inputs, 2)
	assert.Equal(t, uint32(2), first.Inputs[0].DerivationIndex)
	assert.Equal(t, uint32(0), first.Inputs[1].DerivationIndex)
}

func TestSelectForAmount_DoesNotMutateInput(t *testing.T) {
	candidates := []*UTXO{
		makeUTXO(100, 0),
		makeUTXO(900, 1),
	}

	_, err := SelectForAmount(candidates, 500, 0, 2)
	require.NoError(t, err)

	assert.Equal(t, uint64(100), candidates[0].Value)
	assert.Equal(t, uint64(900), candidates[1].Value)
}
