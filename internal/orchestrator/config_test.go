package orchestrator

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
	"github.com/bitswaplabs/accs-btc-bts/internal/config"
	"github.com/bitswaplabs/accs-btc-bts/internal/secret"
	"github.com/bitswaplabs/accs-btc-bts/internal/wallet"
)

func mustWIF(t *testing.T) (string, *btcec.PrivateKey) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	params, _ := chain.Get(chain.Testnet)
	wif, err := wallet.PrivateKeyToWIF(priv, params)
	if err != nil {
		t.Fatalf("encode WIF: %v", err)
	}
	return wif, priv
}

func validFields(t *testing.T) config.SwapFields {
	t.Helper()
	wif, _ := mustWIF(t)
	_, counterpartyPriv := mustWIF(t)
	return config.SwapFields{
		Mode:                             config.RoleProposer,
		NetworkToTrade:                   config.Testnet,
		CurrencyToGive:                   config.CurrencyBTC,
		AmountToSend:                     "0.001",
		AmountToReceive:                  "10",
		BitcoinPrivateKeyWIF:             wif,
		BitsharesPrivateKeyWIF:           "5Jtestbitshareswif",
		CounterpartyBitcoinPublicKeyHex:  hex.EncodeToString(counterpartyPriv.PubKey().SerializeCompressed()),
		CounterpartyBitsharesAccountName: "counterparty",
		BitcoinTxID: "11111111" + "11111111" + "11111111" + "11111111" +
			"11111111" + "11111111" + "11111111" + "11111111",
		Priority:                         1,
	}
}

func TestBuildSwapConfigProposerGeneratesSecret(t *testing.T) {
	cfg, err := BuildSwapConfig(validFields(t))
	if err != nil {
		t.Fatalf("BuildSwapConfig: %v", err)
	}
	if !cfg.Secret.HasPreimage() {
		t.Error("expected proposer to generate a secret with a known preimage")
	}
	if cfg.AmountSatoshi != 100000 {
		t.Errorf("AmountSatoshi = %d, want 100000", cfg.AmountSatoshi)
	}
	if cfg.AmountBTSMini != 1000000 {
		t.Errorf("AmountBTSMini = %d, want 1000000", cfg.AmountBTSMini)
	}
}

func TestBuildSwapConfigAccepterRequiresSecretHash(t *testing.T) {
	fields := validFields(t)
	fields.Mode = config.RoleAccepter

	if _, err := BuildSwapConfig(fields); err == nil {
		t.Fatal("expected an error when the accepter omits the proposer's secret hash")
	}

	sec, err := secret.Random()
	if err != nil {
		t.Fatalf("secret.Random: %v", err)
	}
	fields.SecretHashHex = sec.HashHex()

	cfg, err := BuildSwapConfig(fields)
	if err != nil {
		t.Fatalf("BuildSwapConfig: %v", err)
	}
	if cfg.Secret.HasPreimage() {
		t.Error("expected accepter's secret to be hash-only")
	}
	if cfg.Secret.HashHex() != sec.HashHex() {
		t.Error("accepter's secret hash does not match the proposer's")
	}
}

func TestBuildSwapConfigRejectsMalformedCounterpartyKey(t *testing.T) {
	fields := validFields(t)
	fields.CounterpartyBitcoinPublicKeyHex = "not-hex"
	if _, err := BuildSwapConfig(fields); err == nil {
		t.Fatal("expected an error for a malformed counterparty public key")
	}
}

func TestBuildSwapConfigRejectsBadNetwork(t *testing.T) {
	fields := validFields(t)
	fields.NetworkToTrade = "regtest"
	if _, err := BuildSwapConfig(fields); err == nil {
		t.Fatal("expected an error for an unknown network")
	}
}
