package config

import (
	"fmt"
	"strings"

	"github.com/jeangaud/MonPortefeuilleBSV/network"
	"github.com/jeangaud/MonPortefeuilleBSV/wallet"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if cfg.Servers != "" {
		if _, err := network.ParseServerList(cfg.Servers); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidServers, err)
		}
	}

	if _, err := wallet.ParsePath(cfg.DerivationPath); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDerivationPath, err)
	}

	if cfg.GapLimit == 0 {
		return ErrInvalidGapLimit
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// ServerList returns the configured ElectrumX servers, or the built-in
// defaults when none are configured.
func (c Config) ServerList() ([]network.Server, error) {
	if c.Servers == "" {
		return network.DefaultServers, nil
	}
	servers, err := network.ParseServerList(c.Servers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidServers, err)
	}
	return servers, nil
}
