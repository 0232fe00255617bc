// Package config loads and validates the wallet configuration: data
// directory, network, ElectrumX servers, derivation settings and
// logging. Configuration is a flat key = value file, optionally
// overridden by BSVWALLET_* environment variables (a .env file in the
// working directory is honored).
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all wallet configuration values.
type Config struct {
	// DataDir is where the wallet stores its seed file and header cache.
	DataDir string

	// Network selects the chain: "mainnet", "testnet" or "regtest".
	Network string

	// Servers is a comma-separated list of ElectrumX servers, each as
	// host:port[:s|:t] where :s forces TLS and :t plain TCP.
	Servers string

	// DerivationPath is the BIP32 account path addresses derive under.
	DerivationPath string

	// GapLimit is how many consecutive unused addresses the scanner
	// tolerates before stopping.
	GapLimit uint32

	// FeeRate is the fee rate in satoshis per byte used for payments.
	FeeRate uint64

	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string

	// LogFile is the log destination; empty means stderr.
	LogFile string
}

// Defaults for values not present in the config file.
const (
	DefaultNetwork        = "mainnet"
	DefaultDerivationPath = "m/44'/236'/0'"
	DefaultGapLimit       = 20
	DefaultFeeRate        = 1
	DefaultLogLevel       = "info"
)

// DefaultDataDir returns the default wallet data directory,
// ~/.bsvwallet, falling back to .bsvwallet in the working directory
// when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bsvwallet"
	}
	return filepath.Join(home, ".bsvwallet")
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:        DefaultDataDir(),
		Network:        DefaultNetwork,
		Servers:        "",
		DerivationPath: DefaultDerivationPath,
		GapLimit:       DefaultGapLimit,
		FeeRate:        DefaultFeeRate,
		LogLevel:       DefaultLogLevel,
		LogFile:        "",
	}
}

// ConfigPath returns the config file path inside dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, "config")
}

// LoadConfig reads the key = value config file at path. Missing keys
// keep their defaults; unknown keys are ignored so configs written by
// newer versions still load.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNum, line)
		}
		applyKey(&cfg, key, value)
	}
	if err := scanner.Err(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseKeyValue splits a config line on the first '='.
func parseKeyValue(line string) (string, string, error) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", ErrInvalidConfigLine
	}
	key := strings.ToLower(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, value, nil
}

// applyKey sets a single config field from its file key. Unknown keys
// and unparsable numeric values are ignored; validation catches bad
// values that matter.
func applyKey(cfg *Config, key, value string) {
	switch key {
	case "datadir":
		cfg.DataDir = value
	case "network":
		cfg.Network = value
	case "servers":
		cfg.Servers = value
	case "derivationpath":
		cfg.DerivationPath = value
	case "gaplimit":
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			cfg.GapLimit = uint32(n)
		}
	case "feerate":
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			cfg.FeeRate = n
		}
	case "loglevel":
		cfg.LogLevel = value
	case "logfile":
		cfg.LogFile = value
	}
}

// LoadEnv overlays BSVWALLET_* environment variables onto cfg. A .env
// file in the working directory is loaded first if present; real
// environment variables win over the file.
func LoadEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("BSVWALLET_DATADIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BSVWALLET_NETWORK"); v != "" {
		cfg.Network = v
	}
	if v := os.Getenv("BSVWALLET_SERVERS"); v != "" {
		cfg.Servers = v
	}
	if v := os.Getenv("BSVWALLET_DERIVATION_PATH"); v != "" {
		cfg.DerivationPath = v
	}
	if v := os.Getenv("BSVWALLET_GAP_LIMIT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.GapLimit = uint32(n)
		}
	}
	if v := os.Getenv("BSVWALLET_FEE_RATE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.FeeRate = n
		}
	}
	if v := os.Getenv("BSVWALLET_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BSVWALLET_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
}

// SaveConfig writes cfg to path as a key = value file, creating parent
// directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# bsvwallet configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "servers = %s\n", cfg.Servers)
	fmt.Fprintf(&b, "derivationpath = %s\n", cfg.DerivationPath)
	fmt.Fprintf(&b, "gaplimit = %d\n", cfg.GapLimit)
	fmt.Fprintf(&b, "feerate = %d\n", cfg.FeeRate)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)

	return os.WriteFile(path, []byte(b.String()), 0600)
}
