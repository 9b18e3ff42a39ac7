// Package orchestrator drives one party's side of an atomic cross-chain swap
// through its fixed create/wait/redeem-or-refund sequence, coordinating one
// BitcoinHTLC and one Bitshares HTLC per swap.
package orchestrator

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
	"github.com/bitswaplabs/accs-btc-bts/internal/config"
	"github.com/bitswaplabs/accs-btc-bts/internal/secret"
	"github.com/bitswaplabs/accs-btc-bts/internal/wallet"
	"github.com/bitswaplabs/accs-btc-bts/pkg/helpers"
)

// SwapConfig is the normalized, chain-ready form of config.SwapFields: every
// string has been parsed into the key, amount, or hash it represents, and
// the secret is in the state appropriate for this party's role.
type SwapConfig struct {
	Mode            config.Role
	Network         chain.Network
	CurrencyToGive  config.Currency
	AmountSatoshi   int64
	AmountBTSMini   uint64
	Priority        int
	BitcoinTxID     string
	BitcoinPriv     *btcec.PrivateKey
	BitsharesWIF    string
	CounterpartyBTC *btcec.PublicKey
	CounterpartyBTS string // account name
	Secret          secret.Secret
}

// BuildSwapConfig validates fields and parses them into a SwapConfig. All
// InputError-class checks (malformed keys, bad hex, unknown network) happen
// here, before any chain I/O occurs.
func BuildSwapConfig(fields config.SwapFields) (*SwapConfig, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	network := chain.Network(fields.NetworkToTrade)
	params, ok := chain.Get(network)
	if !ok {
		return nil, fmt.Errorf("unsupported network %q", fields.NetworkToTrade)
	}

	btcPriv, err := wallet.WIFToPrivateKey(fields.BitcoinPrivateKeyWIF, params)
	if err != nil {
		return nil, fmt.Errorf("parse bitcoin private key: %w", err)
	}

	var counterpartyBTC *btcec.PublicKey
	if fields.CounterpartyBitcoinPublicKeyHex != "" {
		pubBytes, err := hex.DecodeString(fields.CounterpartyBitcoinPublicKeyHex)
		if err != nil {
			return nil, fmt.Errorf("decode counterparty bitcoin public key: %w", err)
		}
		counterpartyBTC, err = btcec.ParsePubKey(pubBytes)
		if err != nil {
			return nil, fmt.Errorf("parse counterparty bitcoin public key: %w", err)
		}
	}

	amountSatoshi, amountBTSMini, err := deriveAmounts(fields)
	if err != nil {
		return nil, err
	}

	var sec secret.Secret
	switch fields.Mode {
	case config.RoleProposer:
		sec, err = secret.Random()
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	case config.RoleAccepter:
		hash, err := secret.HashFromHex(fields.SecretHashHex)
		if err != nil {
			return nil, fmt.Errorf("parse secret hash: %w", err)
		}
		sec = secret.FromHash(hash)
	}

	return &SwapConfig{
		Mode:            fields.Mode,
		Network:         network,
		CurrencyToGive:  fields.CurrencyToGive,
		AmountSatoshi:   amountSatoshi,
		AmountBTSMini:   amountBTSMini,
		Priority:        fields.Priority,
		BitcoinTxID:     fields.BitcoinTxID,
		BitcoinPriv:     btcPriv,
		BitsharesWIF:    fields.BitsharesPrivateKeyWIF,
		CounterpartyBTC: counterpartyBTC,
		CounterpartyBTS: fields.CounterpartyBitsharesAccountName,
		Secret:          sec,
	}, nil
}

// deriveAmounts resolves which of AmountToSend/AmountToReceive is the
// Bitcoin leg and which is the Bitshares leg, based on CurrencyToGive.
func deriveAmounts(fields config.SwapFields) (amountSatoshi int64, amountBTSMini uint64, err error) {
	switch fields.CurrencyToGive {
	case config.CurrencyBTC:
		sat, err := helpers.BTCToSatoshis(fields.AmountToSend)
		if err != nil {
			return 0, 0, fmt.Errorf("parse amountToSend as BTC: %w", err)
		}
		mini, err := helpers.BTSToBTSMini(fields.AmountToReceive)
		if err != nil {
			return 0, 0, fmt.Errorf("parse amountToReceive as BTS: %w", err)
		}
		return int64(sat), mini, nil
	case config.CurrencyBTS:
		mini, err := helpers.BTSToBTSMini(fields.AmountToSend)
		if err != nil {
			return 0, 0, fmt.Errorf("parse amountToSend as BTS: %w", err)
		}
		sat, err := helpers.BTCToSatoshis(fields.AmountToReceive)
		if err != nil {
			return 0, 0, fmt.Errorf("parse amountToReceive as BTC: %w", err)
		}
		return int64(sat), mini, nil
	default:
		return 0, 0, fmt.Errorf("unknown currency %q", fields.CurrencyToGive)
	}
}
