// Package config provides centralized configuration for the swap engine.
// ALL exchange parameters (endpoints, fees, timeouts) MUST be defined here.
// No hardcoded values should exist elsewhere in the codebase.
package config

import (
	"fmt"
	"time"
)

// =============================================================================
// Network
// =============================================================================

// NetworkType represents mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

func (n NetworkType) Validate() error {
	switch n {
	case Mainnet, Testnet:
		return nil
	default:
		return fmt.Errorf("unknown network %q", n)
	}
}

// Currency identifies which side of the swap a party is giving.
type Currency string

const (
	CurrencyBTC Currency = "BTC"
	CurrencyBTS Currency = "BTS"
)

func (c Currency) Validate() error {
	switch c {
	case CurrencyBTC, CurrencyBTS:
		return nil
	default:
		return fmt.Errorf("unknown currency %q", c)
	}
}

// Role identifies which party in the swap this orchestrator instance acts as.
type Role string

const (
	RoleProposer Role = "proposer"
	RoleAccepter Role = "accepter"
)

func (r Role) Validate() error {
	switch r {
	case RoleProposer, RoleAccepter:
		return nil
	default:
		return fmt.Errorf("unknown role %q", r)
	}
}

// =============================================================================
// Endpoints
// =============================================================================

// Endpoints holds the default chain-adapter endpoints per network. Overridable
// via a YAML config file loaded through Load.
type Endpoints struct {
	BitcoinMainnetAPI  string `yaml:"bitcoin_mainnet_api"`
	BitcoinTestnetAPI  string `yaml:"bitcoin_testnet_api"`
	BitsharesMainnetWS string `yaml:"bitshares_mainnet_ws"`
	BitsharesTestnetWS string `yaml:"bitshares_testnet_ws"`
}

// DefaultEndpoints returns the built-in default endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		BitcoinMainnetAPI:  "https://blockstream.info/api",
		BitcoinTestnetAPI:  "https://blockstream.info/testnet/api",
		BitsharesMainnetWS: "wss://api.dex.trading/",
		BitsharesTestnetWS: "wss://testnet.dex.trading/",
	}
}

// BitcoinAPI returns the configured Bitcoin REST endpoint for network.
func (e Endpoints) BitcoinAPI(network NetworkType) string {
	if network == Testnet {
		return e.BitcoinTestnetAPI
	}
	return e.BitcoinMainnetAPI
}

// BitsharesWS returns the configured Bitshares WebSocket endpoint for network.
func (e Endpoints) BitsharesWS(network NetworkType) string {
	if network == Testnet {
		return e.BitsharesTestnetWS
	}
	return e.BitsharesMainnetWS
}

// =============================================================================
// Fee / Timelock Configuration
// =============================================================================

// FeeConfig parameterizes the HTLC engine's fee calculation so test suites
// can inject a stub vsize and still exercise deterministic paths.
type FeeConfig struct {
	// RedeemVsize is the assumed vsize in vbytes of the 1-input/1-output
	// HTLC redeem transaction. Default 140 vB.
	RedeemVsize int64
}

// DefaultFeeConfig returns the production fee configuration.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{RedeemVsize: 140}
}

// SwapTiming holds the orchestrator's polling and horizon parameters.
type SwapTiming struct {
	// CheckAPIInterval is the delay between polling attempts.
	CheckAPIInterval time.Duration
	// AccepterBTSWaitSeconds bounds, in wall-clock seconds, how long a flow
	// polls for the counterparty's HTLC to appear: the Bitcoin-side wait in
	// proposer-gives-BTS and accepter-gives-BTS, and the Bitshares-side wait
	// in accepter-gives-BTC.
	AccepterBTSWaitSeconds int
	// ConfirmationHorizonBlocks is H, the default target confirmation
	// horizon in Bitcoin blocks.
	ConfirmationHorizonBlocks int
}

// DefaultSwapTiming returns the production timing configuration. The
// constants are not derived from live chain parameters; a deployment that
// wants to tie them to observed block times should compute and inject a
// different SwapTiming rather than editing these defaults in place.
func DefaultSwapTiming() SwapTiming {
	return SwapTiming{
		CheckAPIInterval:          4 * time.Second,
		AccepterBTSWaitSeconds:    1800,
		ConfirmationHorizonBlocks: 6,
	}
}

// =============================================================================
// SwapFields - validated, explicitly enumerated orchestrator input
// =============================================================================

// SwapFields is the normalized, validated orchestrator input. Unlike an
// open-ended input record, every field is explicit; Validate rejects
// anything out of range before any chain I/O occurs.
type SwapFields struct {
	Mode                             Role
	NetworkToTrade                   NetworkType
	CurrencyToGive                   Currency
	AmountToSend                     string // decimal string, parsed via pkg/helpers
	Rate                             string // decimal string
	AmountToReceive                  string // decimal string
	BitcoinPrivateKeyWIF             string
	BitsharesPrivateKeyWIF           string
	CounterpartyBitcoinPublicKeyHex  string
	CounterpartyBitsharesAccountName string
	BitcoinTxID                      string
	Priority                         int // 0, 1, or 2
	SecretHashHex                    string // required for accepter; proposer generates its own
}

// Validate performs the InputError-class checks the orchestrator must run
// before any chain I/O: unknown role, network or currency, out-of-range
// priority, and missing required fields. It does not parse keys; malformed
// keys are rejected later by orchestrator.BuildSwapConfig.
func (f SwapFields) Validate() error {
	if err := f.Mode.Validate(); err != nil {
		return err
	}
	if err := f.NetworkToTrade.Validate(); err != nil {
		return err
	}
	if err := f.CurrencyToGive.Validate(); err != nil {
		return err
	}
	if f.Priority < 0 || f.Priority > 2 {
		return fmt.Errorf("priority must be 0, 1, or 2, got %d", f.Priority)
	}
	if f.BitcoinPrivateKeyWIF == "" {
		return fmt.Errorf("bitcoinPrivateKey is required")
	}
	if f.BitcoinTxID == "" {
		return fmt.Errorf("bitcoinTxID is required")
	}
	if f.Mode == RoleAccepter && f.SecretHashHex == "" {
		return fmt.Errorf("accepter requires the proposer's secret hash")
	}
	return nil
}

// ExitCode maps an orchestrator outcome to the CLI exit-code contract: 0
// success, 1 user/input error, 2 chain/broadcast error, 3 refund executed.
type ExitCode int

const (
	ExitSuccess         ExitCode = 0
	ExitInputError      ExitCode = 1
	ExitChainError      ExitCode = 2
	ExitRefundExecuted  ExitCode = 3
)
