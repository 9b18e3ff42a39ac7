// Package wallet provides Bitcoin key and address handling for the swap
// orchestrator: WIF parsing, P2WPKH address derivation, and pubkey hashing.
package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
)

// PubKeyHash160 returns HASH160(compressed pubkey), the value embedded in
// both P2WPKH addresses and HTLC redeem scripts.
func PubKeyHash160(pubKey *btcec.PublicKey) []byte {
	return btcutil.Hash160(pubKey.SerializeCompressed())
}

// DeriveP2WPKH derives the native SegWit address for a public key.
func DeriveP2WPKH(pubKey *btcec.PublicKey, params *chain.Params) (string, error) {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(PubKeyHash160(pubKey), params.ChainCfg())
	if err != nil {
		return "", fmt.Errorf("derive p2wpkh address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// ValidateAddress reports whether address decodes under params.
func ValidateAddress(address string, params *chain.Params) bool {
	_, err := btcutil.DecodeAddress(address, params.ChainCfg())
	return err == nil
}

// PrivateKeyToWIF converts a private key to Wallet Import Format.
func PrivateKeyToWIF(privKey *btcec.PrivateKey, params *chain.Params) (string, error) {
	wif, err := btcutil.NewWIF(privKey, params.ChainCfg(), true)
	if err != nil {
		return "", fmt.Errorf("encode WIF: %w", err)
	}
	return wif.String(), nil
}

// WIFToPrivateKey decodes a WIF string into a private key, verifying it
// belongs to the expected network.
func WIFToPrivateKey(wifStr string, params *chain.Params) (*btcec.PrivateKey, error) {
	wif, err := btcutil.DecodeWIF(wifStr)
	if err != nil {
		return nil, fmt.Errorf("decode WIF: %w", err)
	}
	if !wif.IsForNet(params.ChainCfg()) {
		return nil, fmt.Errorf("WIF is for a different network")
	}
	return wif.PrivKey, nil
}
