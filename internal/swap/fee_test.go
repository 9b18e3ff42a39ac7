package swap

import (
	"context"
	"testing"

	"github.com/bitswaplabs/accs-btc-bts/internal/bitcoinchain"
	"github.com/bitswaplabs/accs-btc-bts/internal/config"
)

func TestCalculateFeeUsesConfiguredVsizeAndTier(t *testing.T) {
	fake := bitcoinchain.NewFakeChain()
	fake.Fees = bitcoinchain.FeeEstimates{Priority0: 1, Priority1: 5, Priority2: 20}
	fees := config.FeeConfig{RedeemVsize: 140}

	quote, err := CalculateFee(context.Background(), fake, fees, 1)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if quote.Want != 700 {
		t.Errorf("Want = %d, expected 700 (140 * 5)", quote.Want)
	}
	if quote.Max != 2800 {
		t.Errorf("Max = %d, expected 2800 (140 * 20)", quote.Max)
	}
}

func TestCalculateFeeRoundsUp(t *testing.T) {
	fake := bitcoinchain.NewFakeChain()
	fake.Fees = bitcoinchain.FeeEstimates{Priority0: 1.01, Priority1: 1.1, Priority2: 1.1}
	fees := config.FeeConfig{RedeemVsize: 140}

	quote, err := CalculateFee(context.Background(), fake, fees, 0)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	// 140 * 1.01 = 141.4, not an integer, so the fee rounds up to 142.
	if quote.Want != 142 {
		t.Errorf("Want = %d, expected 142", quote.Want)
	}
}

func TestCalculateFeeOutOfRangePriorityUsesMiddleTier(t *testing.T) {
	fake := bitcoinchain.NewFakeChain()
	fake.Fees = bitcoinchain.FeeEstimates{Priority0: 1, Priority1: 5, Priority2: 20}
	fees := config.FeeConfig{RedeemVsize: 100}

	quote, err := CalculateFee(context.Background(), fake, fees, 99)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	// Out-of-range priority falls back to the middle tier (At's default case).
	if quote.Want != 500 {
		t.Errorf("Want = %d, expected 500 (100 * 5)", quote.Want)
	}
}
