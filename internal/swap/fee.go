package swap

import (
	"context"
	"math"

	"github.com/bitswaplabs/accs-btc-bts/internal/bitcoinchain"
	"github.com/bitswaplabs/accs-btc-bts/internal/config"
	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
)

// FeeQuote is the result of CalculateFee: the fee to deduct from this
// party's own HTLC output, and the upper bound the counterparty's HTLC
// deduction is checked against.
type FeeQuote struct {
	Want int64 // sat, at the configured priority tier
	Max  int64 // sat, at the highest of all three priority tiers
}

// CalculateFee estimates the redeem transaction's fee at a fixed vsize
// (config.FeeConfig.RedeemVsize), avoiding an estimate-sign-reestimate
// loop: the HTLC redeem tx always has exactly one P2WSH input and one
// P2WPKH output, so its vsize does not depend on the signature actually
// produced. It queries GetFeeEstimates twice - once for the desired rate at
// priority, once for the upper bound - modeling two independent reads even
// though a single Esplora endpoint answers both identically.
func CalculateFee(ctx context.Context, btc bitcoinchain.BitcoinChain, fees config.FeeConfig, priority int) (FeeQuote, error) {
	desired, err := btc.GetFeeEstimates(ctx)
	if err != nil {
		return FeeQuote{}, swaperrors.NewChainQueryError("htlc.calculate_fee.desired", err)
	}
	upperBound, err := btc.GetFeeEstimates(ctx)
	if err != nil {
		return FeeQuote{}, swaperrors.NewChainQueryError("htlc.calculate_fee.upper_bound", err)
	}

	vsize := float64(fees.RedeemVsize)
	want := int64(math.Ceil(vsize * desired.At(priority)))
	max := int64(math.Ceil(vsize * upperBound.Max()))
	return FeeQuote{Want: want, Max: max}, nil
}
