package wallet

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jeangaud/MonPortefeuilleBSV/network"
	"github.com/jeangaud/MonPortefeuilleBSV/tx"
)

// DefaultFeeRate is the fee in satoshis per estimated byte.
const DefaultFeeRate = 1

// Service ties the wallet, the scanner and the network together into
// the operations the CLI exposes: balance, fresh addresses and sends.
type Service struct {
	wallet   *Wallet
	provider network.Provider
	scanner  *Scanner
	feeRate  uint64
	log      zerolog.Logger
}

// Receipt reports a completed send.
type Receipt struct {
	TxID     string `json:"txid"`
	RawHex   string `json:"raw"`
	Amount   uint64 `json:"amount"`
	Fee      uint64 `json:"fee"`
	Change   uint64 `json:"change"`
	NumUTXOs int    `json:"num_utxos"`
}

// NewService builds a Service. feeRate 0 uses DefaultFeeRate, gapLimit
// 0 uses DefaultGapLimit.
func NewService(w *Wallet, provider network.Provider, feeRate uint64, gapLimit uint32, log zerolog.Logger) (*Service, error) {
	scanner, err := NewScanner(w, provider, gapLimit, log)
	if err != nil {
		return nil, err
	}
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	return &Service{
		wallet:   w,
		provider: provider,
		scanner:  scanner,
		feeRate:  feeRate,
		log:      log,
	}, nil
}

// Balance scans the wallet and returns the aggregate result.
func (s *Service) Balance(ctx context.Context) (*ScanResult, error) {
	return s.scanner.Scan(ctx)
}

// FreshAddress returns the first unused receive address.
func (s *Service) FreshAddress(ctx context.Context) (string, error) {
	scan, err := s.scanner.Scan(ctx)
	if err != nil {
		return "", err
	}
	key, err := s.wallet.ReceiveKey(scan.NextReceiveIndex)
	if err != nil {
		return "", err
	}
	return key.Address, nil
}

// Send pays amount satoshis to a destination address: scan, select
// coins largest-first, build and sign, then broadcast. Change returns
// to the first unused internal-chain address.
func (s *Service) Send(ctx context.Context, destination string, amount uint64) (*Receipt, error) {
	if _, _, err := tx.DecodeAddress(destination); err != nil {
		return nil, fmt.Errorf("%w: %w", tx.ErrInvalidDestination, err)
	}

	scan, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	selection, err := tx.SelectForAmount(scan.Spendable(), amount, s.feeRate, 2)
	if err != nil {
		return nil, err
	}

	changeKey, err := s.wallet.ChangeKey(scan.NextChangeIndex)
	if err != nil {
		return nil, err
	}

	outputs, err := tx.PaymentOutputs(selection, destination, amount, changeKey.Address)
	if err != nil {
		return nil, err
	}

	inputs := make([]tx.Input, len(selection.Inputs))
	for i, utxo := range selection.Inputs {
		key, err := scan.KeyFor(utxo.Address)
		if err != nil {
			return nil, err
		}
		inputs[i] = tx.Input{UTXO: utxo, PrivKey: key.PrivKey, PubKey: key.PubKey}
	}

	built, err := tx.BuildAndSign(inputs, outputs)
	if err != nil {
		return nil, err
	}

	txid, err := s.provider.Broadcast(ctx, built.Hex())
	if err != nil {
		return nil, err
	}

	var change uint64
	if len(outputs) > 1 {
		change = outputs[len(outputs)-1].Value
	}

	s.log.Info().
		Str("txid", txid).
		Uint64("amount", amount).
		Uint64("fee", selection.Fee).
		Int("inputs", len(inputs)).
		Msg("transaction broadcast")

	return &Receipt{
		TxID:     txid,
		RawHex:   built.Hex(),
		Amount:   amount,
		Fee:      selection.Fee,
		Change:   change,
		NumUTXOs: len(inputs),
	}, nil
}
