package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", or \"regtest\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidGapLimit indicates the address scan gap limit is zero.
	ErrInvalidGapLimit = errors.New("config: gap limit must be at least 1")

	// ErrInvalidServers indicates the server list could not be parsed.
	ErrInvalidServers = errors.New("config: invalid server list")

	// ErrInvalidDerivationPath indicates the derivation path is malformed.
	ErrInvalidDerivationPath = errors.New("config: invalid derivation path")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
