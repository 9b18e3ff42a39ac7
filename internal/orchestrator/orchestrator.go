package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bitswaplabs/accs-btc-bts/internal/bitcoinchain"
	"github.com/bitswaplabs/accs-btc-bts/internal/bitsharesclient"
	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
	"github.com/bitswaplabs/accs-btc-bts/internal/config"
	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
	"github.com/bitswaplabs/accs-btc-bts/internal/timer"
	"github.com/bitswaplabs/accs-btc-bts/pkg/logging"
)

// coreAsset is the Bitshares core asset's object id, the only asset this
// engine trades against Bitcoin.
const coreAsset = "1.3.0"

// preimageSize is the length in bytes the Bitshares htlc_create operation
// enforces on redemption; SHA-256 preimages are always 32.
const preimageSize = 32

// Orchestrator drives one party's side of a single swap to completion: it
// owns exactly one BitcoinHTLC leg and one Bitshares HTLC leg, and never
// acts on behalf of the counterparty.
type Orchestrator struct {
	cfg    *SwapConfig
	params *chain.Params
	btc    bitcoinchain.BitcoinChain
	bts    bitsharesclient.BitsharesChain
	fees   config.FeeConfig
	timing config.SwapTiming
	timer  *timer.Timer
	swapID uuid.UUID
	log    *logging.Logger
}

// New constructs an Orchestrator for cfg against the given chain adapters.
// Every Orchestrator is assigned a fresh correlation id, carried on every
// log line and surfaced in wrapped errors, so a single swap's two
// independently-run parties can be cross-referenced across separate logs.
func New(cfg *SwapConfig, btc bitcoinchain.BitcoinChain, bts bitsharesclient.BitsharesChain, fees config.FeeConfig, timing config.SwapTiming) (*Orchestrator, error) {
	params, ok := chain.Get(cfg.Network)
	if !ok {
		return nil, fmt.Errorf("unsupported network %q", cfg.Network)
	}
	swapID := uuid.New()
	return &Orchestrator{
		cfg:    cfg,
		params: params,
		btc:    btc,
		bts:    bts,
		fees:   fees,
		timing: timing,
		timer:  timer.New(btc, cfg.Network),
		swapID: swapID,
		log:    logging.Default().Component("orchestrator").With("swapID", swapID.String()),
	}, nil
}

// Run executes this party's flow to completion and reports the outcome as
// a process exit code: success, the refund path was taken, or a chain
// error aborted the swap partway through.
func (o *Orchestrator) Run(ctx context.Context) (config.ExitCode, error) {
	// The Bitshares connection is scoped to this swap; release it on every
	// exit path.
	defer o.bts.Close()

	var err error
	switch {
	case o.cfg.Mode == config.RoleProposer && o.cfg.CurrencyToGive == config.CurrencyBTC:
		err = o.runProposerGivesBTC(ctx)
	case o.cfg.Mode == config.RoleProposer && o.cfg.CurrencyToGive == config.CurrencyBTS:
		err = o.runProposerGivesBTS(ctx)
	case o.cfg.Mode == config.RoleAccepter && o.cfg.CurrencyToGive == config.CurrencyBTC:
		err = o.runAccepterGivesBTC(ctx)
	case o.cfg.Mode == config.RoleAccepter && o.cfg.CurrencyToGive == config.CurrencyBTS:
		err = o.runAccepterGivesBTS(ctx)
	default:
		return config.ExitInputError, fmt.Errorf("unreachable role/currency combination")
	}

	if err == nil {
		return config.ExitSuccess, nil
	}
	if _, refunded := err.(refundExecuted); refunded {
		return config.ExitRefundExecuted, nil
	}
	if _, input := err.(*swaperrors.InputError); input {
		return config.ExitInputError, fmt.Errorf("swap %s: %w", o.swapID, err)
	}
	return config.ExitChainError, fmt.Errorf("swap %s: %w", o.swapID, err)
}

// refundExecuted marks a flow's terminal error as "the refund path ran
// (actively or by Bitshares protocol auto-expiry), not a failure".
type refundExecuted struct{ cause error }

func (r refundExecuted) Error() string { return r.cause.Error() }
func (r refundExecuted) Unwrap() error { return r.cause }

// resolveBitsharesAccounts derives both parties' Bitshares account ids:
// this party's from its own private key, the counterparty's from the
// account name exchanged out of band during swap negotiation.
func (o *Orchestrator) resolveBitsharesAccounts(ctx context.Context) (ownID, counterpartyID string, err error) {
	ownID, err = o.bts.ToAccountID(ctx, o.cfg.BitsharesWIF)
	if err != nil {
		return "", "", fmt.Errorf("resolve own bitshares account: %w", err)
	}
	counterpartyID, err = o.bts.GetAccountID(ctx, o.cfg.CounterpartyBTS)
	if err != nil {
		return "", "", fmt.Errorf("resolve counterparty bitshares account: %w", err)
	}
	return ownID, counterpartyID, nil
}
