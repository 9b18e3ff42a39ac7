package orchestrator

import (
	"context"
	"time"

	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
)

// attemptFunc makes one polling attempt, returning done=true once the
// condition it is watching for has been observed. A transport or not-found
// error is swallowed by pollUntil and simply retried; anything else aborts
// the loop immediately.
type attemptFunc func(ctx context.Context) (done bool, err error)

// expiredFunc reports whether the loop's horizon has passed, independent of
// whether attempt has ever succeeded.
type expiredFunc func(ctx context.Context) (bool, error)

// pollUntil repeatedly calls attempt at o.timing.CheckAPIInterval until it
// reports done, expired reports the horizon has passed (yielding a
// *swaperrors.TimeoutError for leg), or ctx is canceled.
func (o *Orchestrator) pollUntil(ctx context.Context, leg string, attempt attemptFunc, expired expiredFunc) error {
	ticker := time.NewTicker(o.timing.CheckAPIInterval)
	defer ticker.Stop()

	for {
		done, err := attempt(ctx)
		if err != nil && !swaperrors.IsTransport(err) {
			return err
		}
		if err != nil {
			o.log.Debug("transient error polling, retrying", "leg", leg, "err", err)
		}
		if done {
			return nil
		}

		exp, err := expired(ctx)
		if err != nil && !swaperrors.IsTransport(err) {
			return err
		}
		if exp {
			return swaperrors.NewTimeoutError(leg)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// bitcoinHeightExpired builds an expiredFunc that fires once the chain tip
// reaches fundingHeight+timelockBlocks - the point at which the CSV
// timelock on a BitcoinHTLC this party created becomes spendable by its
// own refund path.
func (o *Orchestrator) bitcoinHeightExpired(fundingHeight int64, timelockBlocks int) expiredFunc {
	return func(ctx context.Context) (bool, error) {
		tip, err := o.btc.GetLastBlock(ctx)
		if err != nil {
			return false, swaperrors.NewChainQueryError("orchestrator.poll.tip", err)
		}
		return tip.Height >= fundingHeight+int64(timelockBlocks), nil
	}
}

// wallClockExpired builds an expiredFunc that fires once d has elapsed
// since it was constructed, used to bound Bitshares-side waits that have
// no block-height equivalent.
func wallClockExpired(d time.Duration) expiredFunc {
	deadline := time.Now().Add(d)
	return func(ctx context.Context) (bool, error) {
		return time.Now().After(deadline), nil
	}
}
