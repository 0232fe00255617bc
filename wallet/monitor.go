package wallet

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeangaud/MonPortefeuilleBSV/network"
)

// DefaultPollInterval is how often the monitor polls address balances.
const DefaultPollInterval = 30 * time.Second

// BalanceChange is delivered when a watched address's balance moves.
type BalanceChange struct {
	Address  string
	Previous network.Balance
	Current  network.Balance
}

// Monitor polls a set of addresses and reports balance changes.
// Transient network failures are logged and the poll is retried on the
// next tick; the monitor only stops when its context is cancelled.
type Monitor struct {
	provider  network.Provider
	addresses []string
	interval  time.Duration
	log       zerolog.Logger

	last map[string]network.Balance
}

// NewMonitor builds a Monitor. interval 0 uses DefaultPollInterval.
func NewMonitor(provider network.Provider, addresses []string, interval time.Duration, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		provider:  provider,
		addresses: addresses,
		interval:  interval,
		log:       log,
		last:      make(map[string]network.Balance),
	}
}

// Run polls until ctx is cancelled, invoking onChange for every
// detected balance movement. The first poll primes the baseline and
// does not fire.
func (m *Monitor) Run(ctx context.Context, onChange func(BalanceChange)) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx, nil)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.poll(ctx, onChange)
		}
	}
}

func (m *Monitor) poll(ctx context.Context, onChange func(BalanceChange)) {
	for _, addr := range m.addresses {
		bal, err := m.provider.Balance(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Warn().Err(err).Str("address", addr).Msg("balance poll failed")
			continue
		}

		prev, seen := m.last[addr]
		m.last[addr] = *bal
		if seen && prev != *bal && onChange != nil {
			m.log.Info().Str("address", addr).
				Uint64("confirmed", bal.Confirmed).
				Int64("unconfirmed", bal.Unconfirmed).
				Msg("balance changed")
			onChange(BalanceChange{Address: addr, Previous: prev, Current: *bal})
		}
	}
}
