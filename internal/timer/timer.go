// Package timer derives the asymmetric Bitcoin-block and Bitshares
// wall-clock timelocks used by the swap orchestrator from a single target
// confirmation horizon.
package timer

import (
	"context"
	"sort"

	"github.com/bitswaplabs/accs-btc-bts/internal/bitcoinchain"
	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
)

// DefaultHorizonBlocks is the default target confirmation horizon H, in
// Bitcoin blocks.
const DefaultHorizonBlocks = 6

// DefaultMedianSampleBlocks is K, the number of recent blocks sampled to
// estimate median block time.
const DefaultMedianSampleBlocks = 10

// Timer derives timelocks from a target confirmation horizon. It is
// pure/stateless given the chain adapter's responses - repeated calls to
// ToBTS may yield different values as the chain moves.
type Timer struct {
	Horizon     int // H, in Bitcoin blocks
	SampleSize  int // K, blocks sampled for median block time
	Network     chain.Network
	BTC         bitcoinchain.BitcoinChain
}

// New constructs a Timer with the default horizon and sample size.
func New(btc bitcoinchain.BitcoinChain, network chain.Network) *Timer {
	return &Timer{
		Horizon:    DefaultHorizonBlocks,
		SampleSize: DefaultMedianSampleBlocks,
		Network:    network,
		BTC:        btc,
	}
}

// ToBTC returns the Bitcoin-side timelock in blocks. On testnet the caller
// may override Horizon directly to account for irregular block times.
func (t *Timer) ToBTC() int {
	return t.Horizon
}

// ToBTS returns the Bitshares-side timelock in seconds: H multiplied by the
// median block time over the last K Bitcoin blocks.
func (t *Timer) ToBTS(ctx context.Context) (int, error) {
	median, err := t.medianBlockTimeSeconds(ctx)
	if err != nil {
		return 0, err
	}
	return t.Horizon * median, nil
}

// medianBlockTimeSeconds samples the last SampleSize blocks via the
// BitcoinChain adapter's block-header timestamps and returns the median gap
// between consecutive blocks.
func (t *Timer) medianBlockTimeSeconds(ctx context.Context) (int, error) {
	tip, err := t.BTC.GetLastBlock(ctx)
	if err != nil {
		return 0, swaperrors.NewChainQueryError("timer.median_block_time", err)
	}
	if tip.Height <= int64(t.SampleSize) {
		return 600, nil // mainnet's ~10 minute protocol target; not enough history yet
	}

	timestamps := make([]int64, 0, t.SampleSize+1)
	for h := tip.Height - int64(t.SampleSize); h <= tip.Height; h++ {
		header, err := t.BTC.GetBlockHeaderAtHeight(ctx, h)
		if err != nil {
			return 0, swaperrors.NewChainQueryError("timer.median_block_time", err)
		}
		timestamps = append(timestamps, header.Timestamp)
	}

	gaps := make([]int64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i] - timestamps[i-1]
		if gap < 0 {
			continue // out-of-order timestamps can happen near the tip; skip
		}
		gaps = append(gaps, gap)
	}
	if len(gaps) == 0 {
		return 600, nil
	}

	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return int(gaps[len(gaps)/2]), nil
}
