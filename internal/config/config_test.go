package config

import "testing"

func TestSwapFields_Validate(t *testing.T) {
	base := SwapFields{
		Mode:                 RoleProposer,
		NetworkToTrade:       Mainnet,
		CurrencyToGive:       CurrencyBTC,
		Priority:             1,
		BitcoinPrivateKeyWIF: "L1aW4aubDFB7yfras2S1mN3bqg9nwySY8nkoLmJebSLD5BWv3ENZ",
		BitcoinTxID:          "abc123",
	}

	t.Run("valid proposer", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		f := base
		f.NetworkToTrade = "regtest"
		if err := f.Validate(); err == nil {
			t.Error("expected error for unknown network")
		}
	})

	t.Run("priority out of range", func(t *testing.T) {
		f := base
		f.Priority = 3
		if err := f.Validate(); err == nil {
			t.Error("expected error for out-of-range priority")
		}
	})

	t.Run("missing private key", func(t *testing.T) {
		f := base
		f.BitcoinPrivateKeyWIF = ""
		if err := f.Validate(); err == nil {
			t.Error("expected error for missing private key")
		}
	})

	t.Run("accepter requires secret hash", func(t *testing.T) {
		f := base
		f.Mode = RoleAccepter
		if err := f.Validate(); err == nil {
			t.Error("expected error for accepter missing secret hash")
		}
		f.SecretHashHex = "ff"
		if err := f.Validate(); err != nil {
			t.Errorf("unexpected error once hash provided: %v", err)
		}
	})
}

func TestEndpoints_SelectsByNetwork(t *testing.T) {
	e := DefaultEndpoints()
	if e.BitcoinAPI(Mainnet) != e.BitcoinMainnetAPI {
		t.Error("mainnet should select mainnet endpoint")
	}
	if e.BitcoinAPI(Testnet) != e.BitcoinTestnetAPI {
		t.Error("testnet should select testnet endpoint")
	}
}
