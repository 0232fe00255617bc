// bsvwallet - hierarchical-deterministic BSV wallet
//
// Example usage:
//   # Create a new wallet (prints the mnemonic once)
//   bsvwallet init
//
//   # Restore from an existing mnemonic
//   bsvwallet init --import
//
//   # Show the confirmed and unconfirmed balance
//   bsvwallet balance
//
//   # Send 10000 satoshis to an address or paymail handle
//   bsvwallet send 1BitcoinEaterAddressDontSendf59kuE 10000
//   bsvwallet send alice@handcash.io 10000
//
//   # Verify a transaction's inclusion in the chain
//   bsvwallet verify 9b0fc92260312ce44e74ef369f5c66bbb85848f2eddd5a7a1cde251e54ccfdd5
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/jeangaud/MonPortefeuilleBSV/config"
	"github.com/jeangaud/MonPortefeuilleBSV/network"
	"github.com/jeangaud/MonPortefeuilleBSV/paymail"
	"github.com/jeangaud/MonPortefeuilleBSV/spv"
	"github.com/jeangaud/MonPortefeuilleBSV/wallet"
)

const (
	seedFileName    = "seed"
	headersFileName = "headers.db"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fatalf("config: %v", err)
	}
	log := newLogger(cfg)

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "init":
		cmdInit(cfg, args)
	case "address":
		cmdAddress(cfg, log)
	case "balance":
		cmdBalance(cfg, log)
	case "send":
		cmdSend(cfg, log, args)
	case "verify":
		cmdVerify(cfg, log, args)
	case "resolve":
		cmdResolve(args)
	case "monitor":
		cmdMonitor(cfg, log)
	case "version":
		fmt.Println("bsvwallet v0.3.0")
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bsvwallet - hierarchical-deterministic BSV wallet

Usage:
  bsvwallet <command> [options]

Commands:
  init [--import]              Create a wallet, or restore one from a mnemonic
  address                      Show a fresh receiving address
  balance                      Show the wallet balance
  send <dest> <satoshis>       Send satoshis to an address or paymail handle
  verify <txid>                Verify a transaction's chain inclusion (SPV)
  resolve <handle>             Resolve a paymail handle
  monitor                      Watch wallet addresses for balance changes
  version                      Show version information
  help                         Show this help message

Configuration is read from ~/.bsvwallet/config and may be overridden
with BSVWALLET_* environment variables (BSVWALLET_NETWORK,
BSVWALLET_SERVERS, BSVWALLET_FEE_RATE, ...).`)
}

// ---------------------------------------------------------------------------
// Setup helpers
// ---------------------------------------------------------------------------

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(config.ConfigPath(config.DefaultDataDir()))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}
	config.LoadEnv(&cfg)
	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out *os.File = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			out = f
		}
	}

	if out == os.Stderr && term.IsTerminal(int(out.Fd())) {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func newPool(cfg config.Config, log zerolog.Logger) *network.Pool {
	servers, err := cfg.ServerList()
	if err != nil {
		fatalf("%v", err)
	}
	pool, err := network.NewPool(servers, network.ClientConfig{}, log)
	if err != nil {
		fatalf("%v", err)
	}
	return pool
}

// openWallet decrypts the stored seed and derives the account keys.
func openWallet(cfg config.Config) *wallet.Wallet {
	encrypted, err := os.ReadFile(filepath.Join(cfg.DataDir, seedFileName))
	if err != nil {
		if os.IsNotExist(err) {
			fatalf("no wallet found in %s; run \"bsvwallet init\" first", cfg.DataDir)
		}
		fatalf("reading seed: %v", err)
	}

	password := promptPassword("Wallet password: ")
	seed, err := wallet.DecryptSeed(encrypted, password)
	if err != nil {
		fatalf("%v", err)
	}

	net, err := wallet.GetNetwork(cfg.Network)
	if err != nil {
		fatalf("%v", err)
	}

	w, err := wallet.NewWallet(seed, cfg.DerivationPath, net)
	if err != nil {
		fatalf("%v", err)
	}
	return w
}

func newService(cfg config.Config, log zerolog.Logger) *wallet.Service {
	w := openWallet(cfg)
	svc, err := wallet.NewService(w, newPool(cfg, log), cfg.FeeRate, cfg.GapLimit, log)
	if err != nil {
		fatalf("%v", err)
	}
	return svc
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatalf("reading password: %v", err)
	}
	return string(password)
}

func interruptibleContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func cmdInit(cfg config.Config, args []string) {
	seedPath := filepath.Join(cfg.DataDir, seedFileName)
	if _, err := os.Stat(seedPath); err == nil {
		fatalf("a wallet already exists at %s", seedPath)
	}

	var mnemonic string
	if len(args) > 0 && args[0] == "--import" {
		fmt.Fprint(os.Stderr, "Mnemonic: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fatalf("reading mnemonic: %v", err)
		}
		mnemonic = strings.TrimSpace(line)
		if !wallet.ValidateMnemonic(mnemonic) {
			fatalf("invalid mnemonic")
		}
	} else {
		var err error
		mnemonic, err = wallet.GenerateMnemonic(wallet.Mnemonic12Words)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println("Write down your recovery phrase. It is shown only once:")
		fmt.Println()
		fmt.Printf("  %s\n\n", mnemonic)
	}

	passphrase := promptPassword("BIP39 passphrase (empty for none): ")
	seed, err := wallet.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		fatalf("%v", err)
	}

	password := promptPassword("New wallet password: ")
	confirm := promptPassword("Confirm wallet password: ")
	if password != confirm {
		fatalf("passwords do not match")
	}

	encrypted, err := wallet.EncryptSeed(seed, password)
	if err != nil {
		fatalf("%v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		fatalf("creating data directory: %v", err)
	}
	if err := os.WriteFile(seedPath, encrypted, 0600); err != nil {
		fatalf("writing seed: %v", err)
	}

	configPath := config.ConfigPath(cfg.DataDir)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.SaveConfig(configPath, cfg); err != nil {
			fatalf("writing config: %v", err)
		}
	}

	fmt.Printf("Wallet created in %s (network: %s)\n", cfg.DataDir, cfg.Network)
}

func cmdAddress(cfg config.Config, log zerolog.Logger) {
	ctx, cancel := interruptibleContext()
	defer cancel()

	address, err := newService(cfg, log).FreshAddress(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(address)
}

func cmdBalance(cfg config.Config, log zerolog.Logger) {
	ctx, cancel := interruptibleContext()
	defer cancel()

	result, err := newService(cfg, log).Balance(ctx)
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Confirmed:   %d sat\n", result.TotalConfirmed)
	fmt.Printf("Unconfirmed: %d sat\n", result.TotalUnconfirmed)
	fmt.Printf("Addresses:   %d used\n", len(result.States))
}

func cmdSend(cfg config.Config, log zerolog.Logger, args []string) {
	if len(args) < 2 {
		fatalf("usage: bsvwallet send <address|paymail> <satoshis>")
	}

	destination := args[0]
	amount, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || amount == 0 {
		fatalf("invalid amount %q", args[1])
	}

	// Paymail handles resolve to an address first.
	if paymail.IsHandle(destination) {
		resolution, err := paymail.NewResolver(nil, nil).
			ResolveDestination(destination, "", amount, "")
		if err != nil {
			fatalf("resolving %s: %v", destination, err)
		}
		if resolution.Address == "" {
			fatalf("%s resolved to a non-P2PKH destination", destination)
		}
		fmt.Printf("%s -> %s\n", destination, resolution.Address)
		destination = resolution.Address
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	receipt, err := newService(cfg, log).Send(ctx, destination, amount)
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Broadcast %s\n", receipt.TxID)
	fmt.Printf("  amount: %d sat, fee: %d sat, change: %d sat (%d inputs)\n",
		receipt.Amount, receipt.Fee, receipt.Change, receipt.NumUTXOs)
}

func cmdVerify(cfg config.Config, log zerolog.Logger, args []string) {
	if len(args) < 1 {
		fatalf("usage: bsvwallet verify <txid>")
	}
	txid := args[0]
	if _, err := hex.DecodeString(txid); err != nil || len(txid) != 64 {
		fatalf("invalid txid %q", txid)
	}

	pool := newPool(cfg, log)

	store, err := spv.OpenBoltHeaderStore(filepath.Join(cfg.DataDir, headersFileName))
	if err != nil {
		fatalf("opening header store: %v", err)
	}
	defer func() { _ = store.Close() }()

	verifier, err := spv.NewVerifier(pool, store, log)
	if err != nil {
		fatalf("%v", err)
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	result, err := verifier.VerifyInclusion(ctx, txid)
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Status:        %s\n", result.Status)
	if result.Height > 0 {
		fmt.Printf("Height:        %d\n", result.Height)
		fmt.Printf("Confirmations: %d\n", result.Confirmations)
		fmt.Printf("PoW valid:     %t\n", result.HeaderPoWValid)
	}
	if !result.Verified() {
		os.Exit(1)
	}
}

func cmdResolve(args []string) {
	if len(args) < 1 {
		fatalf("usage: bsvwallet resolve <handle>")
	}
	handle := args[0]

	resolver := paymail.NewResolver(nil, nil)

	pubKey, err := resolver.ResolvePKI(handle)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Identity key: %s\n", hex.EncodeToString(pubKey))

	resolution, err := resolver.ResolveDestination(handle, "", 0, "")
	if err != nil {
		fatalf("%v", err)
	}
	if resolution.Address != "" {
		fmt.Printf("Address:      %s\n", resolution.Address)
	}
	fmt.Printf("Script:       %s\n", hex.EncodeToString(resolution.Script))
}

// formatBalanceChange renders a balance movement for the monitor
// output, totalling confirmed and unconfirmed satoshis.
func formatBalanceChange(change wallet.BalanceChange) string {
	return fmt.Sprintf("%s: %d -> %d sat",
		change.Address, change.Previous.Total(), change.Current.Total())
}

func cmdMonitor(cfg config.Config, log zerolog.Logger) {
	ctx, cancel := interruptibleContext()
	defer cancel()

	w := openWallet(cfg)
	pool := newPool(cfg, log)

	scanner, err := wallet.NewScanner(w, pool, cfg.GapLimit, log)
	if err != nil {
		fatalf("%v", err)
	}
	result, err := scanner.Scan(ctx)
	if err != nil {
		fatalf("%v", err)
	}

	addresses := make([]string, 0, len(result.States))
	for _, state := range result.States {
		addresses = append(addresses, state.Key.Address)
	}
	if len(addresses) == 0 {
		fatalf("no used addresses to monitor")
	}

	fmt.Printf("Monitoring %d addresses (Ctrl-C to stop)\n", len(addresses))
	monitor := wallet.NewMonitor(pool, addresses, wallet.DefaultPollInterval, log)
	err = monitor.Run(ctx, func(change wallet.BalanceChange) {
		fmt.Println(formatBalanceChange(change))
	})
	if err != nil && ctx.Err() == nil {
		fatalf("%v", err)
	}
}
