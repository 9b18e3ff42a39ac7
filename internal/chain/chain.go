// Package chain defines Bitcoin network parameters used by the HTLC engine.
// All chain-specific values are hardcoded here - no external configuration needed.
package chain

import "github.com/btcsuite/btcd/chaincfg"

// Network represents mainnet or testnet.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// AddressType represents the address encoding format.
type AddressType string

const (
	AddressP2PKH  AddressType = "p2pkh"  // Legacy (1...)
	AddressP2SH   AddressType = "p2sh"   // Script hash (3...)
	AddressP2WPKH AddressType = "p2wpkh" // Native SegWit (bc1q...)
	AddressP2WSH  AddressType = "p2wsh"  // SegWit script (bc1q...)
)

// Params contains the Bitcoin network parameters needed for address
// derivation and transaction signing.
type Params struct {
	Symbol   string // BTC
	Name     string // Bitcoin, Bitcoin Testnet
	Decimals uint8  // 8

	PubKeyHashAddrID byte   // Address prefix for P2PKH
	ScriptHashAddrID byte   // Address prefix for P2SH
	Bech32HRP        string // Bech32 human-readable prefix
	WIF              byte   // Private key prefix

	HDPrivateKeyID [4]byte // xprv/tprv
	HDPublicKeyID  [4]byte // xpub/tpub

	DefaultAddressType AddressType
}

// ChainCfg returns the btcd chaincfg.Params equivalent to p, for use with
// txscript/btcutil address and signature routines.
func (p *Params) ChainCfg() *chaincfg.Params {
	cfg := &chaincfg.Params{
		PubKeyHashAddrID: p.PubKeyHashAddrID,
		ScriptHashAddrID: p.ScriptHashAddrID,
		Bech32HRPSegwit:  p.Bech32HRP,
		PrivateKeyID:     p.WIF,
	}
	copy(cfg.HDPrivateKeyID[:], p.HDPrivateKeyID[:])
	copy(cfg.HDPublicKeyID[:], p.HDPublicKeyID[:])
	return cfg
}

// Registry holds Bitcoin params indexed by network.
var registry = make(map[Network]*Params)

// Register adds chain params to the registry.
func Register(network Network, params *Params) {
	registry[network] = params
}

// Get returns chain params for a network.
func Get(network Network) (*Params, bool) {
	params, ok := registry[network]
	return params, ok
}
