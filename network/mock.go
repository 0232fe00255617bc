package network

import (
	"context"

	"github.com/jeangaud/MonPortefeuilleBSV/spv"
)

var _ Provider = (*MockProvider)(nil)

// MockProvider is a test double for Provider. All function fields must
// be set before the corresponding method is called.
type MockProvider struct {
	TipHeightFn         func(ctx context.Context) (uint32, error)
	BalanceFn           func(ctx context.Context, address string) (*Balance, error)
	ListUnspentFn       func(ctx context.Context, address string) ([]*UTXORef, error)
	HistoryFn           func(ctx context.Context, address string) ([]*HistoryItem, error)
	RawTransactionFn    func(ctx context.Context, txidHex string) ([]byte, error)
	BroadcastFn         func(ctx context.Context, rawTxHex string) (string, error)
	TransactionHeightFn func(ctx context.Context, txidHex string) (int64, error)
	BlockHeaderFn       func(ctx context.Context, height uint32) (*spv.Header, error)
	TransactionMerkleFn func(ctx context.Context, txidHex string, height uint32) (*spv.MerkleProof, error)
}

func (m *MockProvider) TipHeight(ctx context.Context) (uint32, error) {
	return m.TipHeightFn(ctx)
}
func (m *MockProvider) Balance(ctx context.Context, address string) (*Balance, error) {
	return m.BalanceFn(ctx, address)
}
func (m *MockProvider) ListUnspent(ctx context.Context, address string) ([]*UTXORef, error) {
	return m.ListUnspentFn(ctx, address)
}
func (m *MockProvider) History(ctx context.Context, address string) ([]*HistoryItem, error) {
	return m.HistoryFn(ctx, address)
}
func (m *MockProvider) RawTransaction(ctx context.Context, txidHex string) ([]byte, error) {
	return m.RawTransactionFn(ctx, txidHex)
}
func (m *MockProvider) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	return m.BroadcastFn(ctx, rawTxHex)
}
func (m *MockProvider) TransactionHeight(ctx context.Context, txidHex string) (int64, error) {
	return m.TransactionHeightFn(ctx, txidHex)
}
func (m *MockProvider) BlockHeader(ctx context.Context, height uint32) (*spv.Header, error) {
	return m.BlockHeaderFn(ctx, height)
}
func (m *MockProvider) TransactionMerkle(ctx context.Context, txidHex string, height uint32) (*spv.MerkleProof, error) {
	return m.TransactionMerkleFn(ctx, txidHex, height)
}
