package tx

// UTXO represents an unspent transaction output found while scanning the
// wallet's addresses.
type UTXO struct {
	TxID            []byte `json:"txid"`   // 32 bytes, display order (as decoded from server hex)
	Vout            uint32 `json:"vout"`   // output index in the source tx
	Value           uint64 `json:"value"`  // satoshis
	Address         string `json:"address"`
	DerivationIndex uint32 `json:"derivation_index"`
}

// Selection is the result of coin selection: the inputs to spend, their
// combined value, and the fee estimated for a transaction spending them.
// Total >= target + Fee always holds for a successful selection.
type Selection struct {
	Inputs []*UTXO
	Total  uint64
	Fee    uint64
}

// Input pairs a selected UTXO with the key material needed to sign it.
// PrivKey is the raw 32-byte secp256k1 scalar; PubKey is the 33-byte
// compressed public key (derived from PrivKey when empty).
type Input struct {
	UTXO    *UTXO
	PrivKey []byte
	PubKey  []byte
}

// Output is a requested payment output: a Base58Check destination address
// and a value in satoshis.
type Output struct {
	Address string
	Value   uint64
}
