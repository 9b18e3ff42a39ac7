package swap

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/bitswaplabs/accs-btc-bts/internal/bitcoinchain"
	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
	"github.com/bitswaplabs/accs-btc-bts/internal/config"
	"github.com/bitswaplabs/accs-btc-bts/internal/secret"
	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
	"github.com/bitswaplabs/accs-btc-bts/pkg/logging"
)

// htlcState is a sealed interface implemented only by the three states a
// BitcoinHTLC instance can be in, so that operations invalid in a given
// state are easy to reject without scattering boolean flags through the
// engine.
type htlcState interface {
	isHTLCState()
}

// Unfunded is the initial state: the redeem script exists but no funds have
// been committed to the P2WSH output.
type Unfunded struct{}

func (Unfunded) isHTLCState() {}

// Funded records everything Create() learned once the funding transaction
// broadcast: the txid, its confirmation height, the amount actually locked
// after the redeem fee was pre-deducted, and the pre-signed refund hex.
type Funded struct {
	TxID                 string
	FundingTxBlockHeight int64
	FundingTxBlockOK     bool
	AmountAfterFees      int64
	RefundHex            string
}

func (Funded) isHTLCState() {}

// TerminalOutcome distinguishes how a Funded HTLC was resolved.
type TerminalOutcome int

const (
	Redeemed TerminalOutcome = iota
	Refunded
)

// Terminal is the final state once the P2WSH output has been spent, either
// by the receiver's redeem or the sender's refund.
type Terminal struct {
	Outcome TerminalOutcome
	TxID    string
}

func (Terminal) isHTLCState() {}

// CreateConfig are the parameters Create needs to lock funds into a fresh
// HTLC.
type CreateConfig struct {
	FundingTxID string // transaction whose outputs fund the HTLC
	Amount      int64  // satoshis to place in the HTLC before the redeem fee is deducted
	Sequence    uint32 // CSV relative timelock, in blocks
	Hash        [32]byte
	Priority    int // fee priority tier, 0-2
}

// BitcoinHTLC drives one side of an atomic swap's Bitcoin leg through its
// lifecycle: script construction, funding, and eventual redeem or refund.
// One instance handles exactly one HTLC; the sender/receiver roles are
// fixed at construction and mirror across the swap's two legs.
type BitcoinHTLC struct {
	params *chain.Params
	btc    bitcoinchain.BitcoinChain
	fees   config.FeeConfig
	log    *logging.Logger

	senderPriv   *btcec.PrivateKey
	senderPub    *btcec.PublicKey
	receiverPriv *btcec.PrivateKey // nil if this party is only the sender
	receiverPub  *btcec.PublicKey

	payment *P2WSHPayment
	state   htlcState
}

// NewBitcoinHTLC constructs an engine for one HTLC leg. receiverPriv may be
// nil when this party is only the sender on this leg (it needs the
// counterparty's public key to build the script, but not their private
// key).
func NewBitcoinHTLC(
	network chain.Network,
	btc bitcoinchain.BitcoinChain,
	fees config.FeeConfig,
	senderPriv *btcec.PrivateKey,
	receiverPriv *btcec.PrivateKey,
	receiverPub *btcec.PublicKey,
) (*BitcoinHTLC, error) {
	params, ok := chain.Get(network)
	if !ok {
		return nil, swaperrors.NewInputError("network", fmt.Sprintf("unsupported network %q", network))
	}
	if senderPriv == nil {
		return nil, swaperrors.NewInputError("senderPriv", "required")
	}

	senderPub := senderPriv.PubKey()
	if receiverPriv != nil {
		receiverPub = receiverPriv.PubKey()
	}
	if receiverPub == nil {
		return nil, swaperrors.NewInputError("receiverPub", "required when receiverPriv is not set")
	}

	return &BitcoinHTLC{
		params:       params,
		btc:          btc,
		fees:         fees,
		log:          logging.Default().Component("bitcoin-htlc"),
		senderPriv:   senderPriv,
		senderPub:    senderPub,
		receiverPriv: receiverPriv,
		receiverPub:  receiverPub,
		state:        Unfunded{},
	}, nil
}

// GetP2WSH builds the redeem script and P2WSH payment for (hash, sequence)
// using this engine's fixed sender/receiver keys. Pure; safe to call before
// or after Create.
func (h *BitcoinHTLC) GetP2WSH(hash [32]byte, sequence uint32) (*P2WSHPayment, error) {
	return GetP2WSH(RedeemScriptParams{
		Hash:        hash,
		Sequence:    sequence,
		SenderPub:   h.senderPub,
		ReceiverPub: h.receiverPub,
	}, h.params)
}

// CalculateFee estimates the redeem transaction's fee; see fee.go.
func (h *BitcoinHTLC) CalculateFee(ctx context.Context, priority int) (FeeQuote, error) {
	return CalculateFee(ctx, h.btc, h.fees, priority)
}

// Create funds a fresh HTLC and returns the sender's pre-signed refund
// transaction hex. It builds the redeem script, derives the P2WSH address,
// looks up spendable outputs of cfg.FundingTxID, deducts the redeem fee from
// cfg.Amount, broadcasts the funding transaction, and immediately builds
// (without broadcasting) the refund transaction that the orchestrator can
// send later if the counterparty never redeems.
func (h *BitcoinHTLC) Create(ctx context.Context, cfg CreateConfig) (string, error) {
	if _, ok := h.state.(Unfunded); !ok {
		return "", fmt.Errorf("htlc: Create called in state %T, expected Unfunded", h.state)
	}

	payment, err := h.GetP2WSH(cfg.Hash, cfg.Sequence)
	if err != nil {
		return "", err
	}
	h.payment = payment

	fee, err := h.CalculateFee(ctx, cfg.Priority)
	if err != nil {
		return "", err
	}

	utxos, err := h.btc.GetUTXOs(ctx, cfg.FundingTxID)
	if err != nil {
		return "", err
	}

	feeEstimates, err := h.btc.GetFeeEstimates(ctx)
	if err != nil {
		return "", swaperrors.NewChainQueryError("htlc.create.fee_rate", err)
	}

	funding, err := BuildFundingTx(h.params, cfg.FundingTxID, utxos, h.senderPriv, payment, cfg.Amount, fee.Want, feeEstimates.At(cfg.Priority))
	if err != nil {
		return "", err
	}

	txid, err := h.btc.PushTX(ctx, funding.TxHex)
	if err != nil {
		return "", swaperrors.NewBroadcastError(funding.TxHex, err)
	}
	h.log.Info("htlc funded", "txid", txid, "amountAfterFees", funding.AmountAfterFees)

	// BuildFundingTx always places the P2WSH output first.
	const fundingVout = 0
	_, refundHex, err := BuildRefundTx(h.params, txid, fundingVout, funding.AmountAfterFees, payment, cfg.Sequence, fee.Want, h.senderPriv)
	if err != nil {
		return "", fmt.Errorf("build refund tx: %w", err)
	}

	height, ok, err := h.btc.GetBlockHeightForTx(ctx, txid)
	if err != nil {
		h.log.Warn("could not read funding confirmation height yet", "txid", txid, "err", err)
	}

	h.state = Funded{
		TxID:                 txid,
		FundingTxBlockHeight: height,
		FundingTxBlockOK:     ok,
		AmountAfterFees:      funding.AmountAfterFees,
		RefundHex:            refundHex,
	}

	return refundHex, nil
}

// Redeem spends the funded P2WSH output with the revealed preimage,
// transitioning Funded -> Terminal{Redeemed}.
func (h *BitcoinHTLC) Redeem(ctx context.Context, s secret.Secret, priority int) error {
	funded, ok := h.state.(Funded)
	if !ok {
		return fmt.Errorf("htlc: Redeem called in state %T, expected Funded", h.state)
	}
	if h.receiverPriv == nil {
		return fmt.Errorf("htlc: Redeem requires the receiver's private key")
	}
	if !s.HasPreimage() {
		return fmt.Errorf("htlc: Redeem requires a known preimage")
	}

	fee, err := h.CalculateFee(ctx, priority)
	if err != nil {
		return err
	}

	preimage := s.Preimage()
	_, claimHex, err := BuildClaimTx(h.params, funded.TxID, 0, funded.AmountAfterFees, h.payment, fee.Want, h.receiverPriv, preimage[:])
	if err != nil {
		return fmt.Errorf("build claim tx: %w", err)
	}

	txid, err := h.btc.PushTX(ctx, claimHex)
	if err != nil {
		return swaperrors.NewBroadcastError(claimHex, err)
	}
	h.log.Info("htlc redeemed", "txid", txid)

	h.state = Terminal{Outcome: Redeemed, TxID: txid}
	return nil
}

// GetFundingTxBlockHeight returns the confirmation height observed when
// Create ran, and ok=false if it had not yet confirmed at that time.
func (h *BitcoinHTLC) GetFundingTxBlockHeight() (int64, bool) {
	funded, ok := h.state.(Funded)
	if !ok {
		return 0, false
	}
	return funded.FundingTxBlockHeight, funded.FundingTxBlockOK
}

// RefundHex returns the pre-signed refund transaction hex built during
// Create, empty if the HTLC has not been funded.
func (h *BitcoinHTLC) RefundHex() string {
	funded, ok := h.state.(Funded)
	if !ok {
		return ""
	}
	return funded.RefundHex
}

// MarkRefunded transitions Funded -> Terminal{Refunded} once the
// orchestrator has broadcast RefundHex. The engine itself never broadcasts
// its own refund transaction (see Create) - broadcasting on a timeout is
// the orchestrator's decision, made with visibility into both legs.
func (h *BitcoinHTLC) MarkRefunded(txid string) error {
	if _, ok := h.state.(Funded); !ok {
		return fmt.Errorf("htlc: MarkRefunded called in state %T, expected Funded", h.state)
	}
	h.state = Terminal{Outcome: Refunded, TxID: txid}
	return nil
}

// Payment returns the P2WSH payment computed by Create or GetP2WSH.
func (h *BitcoinHTLC) Payment() *P2WSHPayment {
	return h.payment
}
