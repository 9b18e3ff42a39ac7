package orchestrator

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bitswaplabs/accs-btc-bts/internal/bitcoinchain"
	"github.com/bitswaplabs/accs-btc-bts/internal/bitsharesclient"
	"github.com/bitswaplabs/accs-btc-bts/internal/secret"
	"github.com/bitswaplabs/accs-btc-bts/internal/swap"
	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
)

// runProposerGivesBTC: this party is the sender on the Bitcoin leg and acts
// first. It funds its own HTLC immediately, then waits for the accepter to
// mirror it on Bitshares before redeeming that leg with the preimage it
// already holds.
func (o *Orchestrator) runProposerGivesBTC(ctx context.Context) error {
	htlc, err := swap.NewBitcoinHTLC(o.cfg.Network, o.btc, o.fees, o.cfg.BitcoinPriv, nil, o.cfg.CounterpartyBTC)
	if err != nil {
		return err
	}

	sequence := uint32(o.timer.ToBTC())
	refundHex, err := htlc.Create(ctx, swap.CreateConfig{
		FundingTxID: o.cfg.BitcoinTxID,
		Amount:      o.cfg.AmountSatoshi,
		Sequence:    sequence,
		Hash:        o.cfg.Secret.Hash(),
		Priority:    o.cfg.Priority,
	})
	if err != nil {
		return fmt.Errorf("fund own bitcoin htlc: %w", err)
	}

	ownBTSID, counterpartyBTSID, err := o.resolveBitsharesAccounts(ctx)
	if err != nil {
		return err
	}

	btsFull, err := o.timer.ToBTS(ctx)
	if err != nil {
		return fmt.Errorf("derive bitshares timelock: %w", err)
	}
	btsHalf := btsFull / 2

	fundingHeight, _ := htlc.GetFundingTxBlockHeight()

	var htlcID string
	err = o.pollUntil(ctx, "bitshares", func(ctx context.Context) (bool, error) {
		id, ok, err := o.bts.GetID(ctx, counterpartyBTSID, ownBTSID, o.cfg.AmountBTSMini, o.cfg.Secret.Hash(), btsHalf)
		if err != nil || !ok {
			return false, err
		}
		htlcID = id
		return true, nil
	}, o.bitcoinHeightExpired(fundingHeight, int(sequence)))

	if err != nil {
		if _, timedOut := err.(*swaperrors.TimeoutError); timedOut {
			return o.refundOwnBitcoinLeg(ctx, htlc, refundHex)
		}
		return err
	}

	preimage := o.cfg.Secret.Preimage()
	ok, err := o.bts.Redeem(ctx, htlcID, o.cfg.AmountBTSMini, o.cfg.BitsharesWIF, preimage[:])
	if err != nil {
		return fmt.Errorf("redeem bitshares htlc: %w", err)
	}
	if !ok {
		return fmt.Errorf("bitshares htlc redeem was rejected")
	}
	o.log.Info("swap complete", "role", "proposer", "gave", "BTC")
	return nil
}

// runProposerGivesBTS: this party is the sender on the Bitshares leg and
// acts first. It locks funds into its own HTLC immediately, then waits for
// the accepter's mirrored Bitcoin HTLC to appear and claims it.
func (o *Orchestrator) runProposerGivesBTS(ctx context.Context) error {
	ownBTSID, counterpartyBTSID, err := o.resolveBitsharesAccounts(ctx)
	if err != nil {
		return err
	}

	btsFull, err := o.timer.ToBTS(ctx)
	if err != nil {
		return fmt.Errorf("derive bitshares timelock: %w", err)
	}

	if err := o.bts.Create(ctx, bitsharesclient.HTLCCreateParams{
		FromAccountID:  ownBTSID,
		ToAccountID:    counterpartyBTSID,
		Amount:         o.cfg.AmountBTSMini,
		Asset:          coreAsset,
		Hash:           o.cfg.Secret.Hash(),
		TimeSeconds:    btsFull,
		PrivateKeyWIF:  o.cfg.BitsharesWIF,
		PreimageLength: preimageSize,
	}); err != nil {
		return fmt.Errorf("fund own bitshares htlc: %w", err)
	}

	btcHalf := uint32(o.timer.ToBTC() / 2)
	payment, err := swap.GetP2WSH(swap.RedeemScriptParams{
		Hash:        o.cfg.Secret.Hash(),
		Sequence:    btcHalf,
		SenderPub:   o.cfg.CounterpartyBTC,
		ReceiverPub: o.cfg.BitcoinPriv.PubKey(),
	}, o.params)
	if err != nil {
		return fmt.Errorf("derive counterparty htlc address: %w", err)
	}

	err = o.pollUntil(ctx, "bitcoin", func(ctx context.Context) (bool, error) {
		_, err := o.btc.GetValueFromLastTransaction(ctx, payment.Address)
		if err != nil {
			return false, err
		}
		return true, nil
	}, wallClockExpired(time.Duration(o.timing.AccepterBTSWaitSeconds)*time.Second))
	if err != nil {
		if _, timedOut := err.(*swaperrors.TimeoutError); timedOut {
			o.log.Info("counterparty never funded its leg, own bitshares htlc will auto-expire")
			return refundExecuted{cause: err}
		}
		return err
	}

	funding, err := o.btc.GetValueFromLastTransaction(ctx, payment.Address)
	if err != nil {
		return fmt.Errorf("re-read counterparty funding transaction: %w", err)
	}

	fee, err := swap.CalculateFee(ctx, o.btc, o.fees, o.cfg.Priority)
	if err != nil {
		return err
	}

	preimage := o.cfg.Secret.Preimage()
	_, claimHex, err := swap.BuildClaimTx(o.params, funding.TxID, 0, funding.Value, payment, fee.Want, o.cfg.BitcoinPriv, preimage[:])
	if err != nil {
		return fmt.Errorf("build bitcoin claim tx: %w", err)
	}

	txid, err := o.btc.PushTX(ctx, claimHex)
	if err != nil {
		return swaperrors.NewBroadcastError(claimHex, err)
	}
	o.log.Info("swap complete", "role", "proposer", "gave", "BTS", "claimTxID", txid)
	return nil
}

// runAccepterGivesBTC: this party reacts to the proposer's Bitshares HTLC,
// then funds its own Bitcoin HTLC second with a shortened timelock. It
// redeems the proposer's Bitshares leg once the proposer reveals the
// preimage by claiming this party's Bitcoin leg.
func (o *Orchestrator) runAccepterGivesBTC(ctx context.Context) error {
	ownBTSID, counterpartyBTSID, err := o.resolveBitsharesAccounts(ctx)
	if err != nil {
		return err
	}

	btsFull, err := o.timer.ToBTS(ctx)
	if err != nil {
		return fmt.Errorf("derive bitshares timelock: %w", err)
	}

	var proposerHTLCID string
	err = o.pollUntil(ctx, "bitshares", func(ctx context.Context) (bool, error) {
		id, ok, err := o.bts.GetID(ctx, counterpartyBTSID, ownBTSID, o.cfg.AmountBTSMini, o.cfg.Secret.Hash(), btsFull)
		if err != nil || !ok {
			return false, err
		}
		proposerHTLCID = id
		return true, nil
	}, wallClockExpired(time.Duration(o.timing.AccepterBTSWaitSeconds)*time.Second))
	if err != nil {
		return fmt.Errorf("waiting for proposer's bitshares htlc: %w", err)
	}

	htlc, err := swap.NewBitcoinHTLC(o.cfg.Network, o.btc, o.fees, o.cfg.BitcoinPriv, nil, o.cfg.CounterpartyBTC)
	if err != nil {
		return err
	}

	sequence := uint32(o.timer.ToBTC() / 2)
	refundHex, err := htlc.Create(ctx, swap.CreateConfig{
		FundingTxID: o.cfg.BitcoinTxID,
		Amount:      o.cfg.AmountSatoshi,
		Sequence:    sequence,
		Hash:        o.cfg.Secret.Hash(),
		Priority:    o.cfg.Priority,
	})
	if err != nil {
		return fmt.Errorf("fund own bitcoin htlc: %w", err)
	}

	fundingHeight, _ := htlc.GetFundingTxBlockHeight()
	address := htlc.Payment().Address

	var preimageBytes []byte
	err = o.pollUntil(ctx, "bitcoin", func(ctx context.Context) (bool, error) {
		p, err := o.btc.GetPreimageFromLastTransaction(ctx, address)
		if err != nil {
			return false, err
		}
		preimageBytes = p
		return true, nil
	}, o.bitcoinHeightExpired(fundingHeight, int(sequence)))

	if err != nil {
		if _, timedOut := err.(*swaperrors.TimeoutError); timedOut {
			return o.refundOwnBitcoinLeg(ctx, htlc, refundHex)
		}
		return err
	}

	ok, err := o.bts.Redeem(ctx, proposerHTLCID, o.cfg.AmountBTSMini, o.cfg.BitsharesWIF, preimageBytes)
	if err != nil {
		return fmt.Errorf("redeem proposer's bitshares htlc: %w", err)
	}
	if !ok {
		return fmt.Errorf("bitshares htlc redeem was rejected")
	}
	o.log.Info("swap complete", "role", "accepter", "gave", "BTC")
	return nil
}

// runAccepterGivesBTS: this party reacts to the proposer's Bitcoin HTLC,
// then funds its own Bitshares HTLC second with a shortened timelock. Once
// the proposer redeems it and reveals the preimage, this party claims the
// proposer's Bitcoin leg.
func (o *Orchestrator) runAccepterGivesBTS(ctx context.Context) error {
	btcFull := uint32(o.timer.ToBTC())
	payment, err := swap.GetP2WSH(swap.RedeemScriptParams{
		Hash:        o.cfg.Secret.Hash(),
		Sequence:    btcFull,
		SenderPub:   o.cfg.CounterpartyBTC,
		ReceiverPub: o.cfg.BitcoinPriv.PubKey(),
	}, o.params)
	if err != nil {
		return fmt.Errorf("derive counterparty htlc address: %w", err)
	}

	var funding bitcoinchain.FundingTx
	err = o.pollUntil(ctx, "bitcoin", func(ctx context.Context) (bool, error) {
		f, err := o.btc.GetValueFromLastTransaction(ctx, payment.Address)
		if err != nil {
			return false, err
		}
		funding = f
		return true, nil
	}, wallClockExpired(time.Duration(o.timing.AccepterBTSWaitSeconds)*time.Second))
	if err != nil {
		return fmt.Errorf("waiting for proposer's bitcoin htlc: %w", err)
	}

	fee, err := swap.CalculateFee(ctx, o.btc, o.fees, o.cfg.Priority)
	if err != nil {
		return err
	}
	if shortfall := o.cfg.AmountSatoshi - fee.Max - funding.Value; shortfall > 0 {
		return swaperrors.NewInputError("bitcoinFunding",
			fmt.Sprintf("proposer funded %d sat, need at least %d sat (shortfall %d sat)",
				funding.Value, o.cfg.AmountSatoshi-fee.Max, shortfall))
	}

	ownBTSID, counterpartyBTSID, err := o.resolveBitsharesAccounts(ctx)
	if err != nil {
		return err
	}

	btsHalfSeconds, err := o.timer.ToBTS(ctx)
	if err != nil {
		return fmt.Errorf("derive bitshares timelock: %w", err)
	}
	btsHalfSeconds /= 2

	if err := o.bts.Create(ctx, bitsharesclient.HTLCCreateParams{
		FromAccountID:  ownBTSID,
		ToAccountID:    counterpartyBTSID,
		Amount:         o.cfg.AmountBTSMini,
		Asset:          coreAsset,
		Hash:           o.cfg.Secret.Hash(),
		TimeSeconds:    btsHalfSeconds,
		PrivateKeyWIF:  o.cfg.BitsharesWIF,
		PreimageLength: preimageSize,
	}); err != nil {
		return fmt.Errorf("fund own bitshares htlc: %w", err)
	}

	var preimageHex string
	err = o.pollUntil(ctx, "bitshares", func(ctx context.Context) (bool, error) {
		found, ok, err := o.bts.GetPreimageFromHTLC(ctx, ownBTSID, counterpartyBTSID, o.cfg.Secret.HashHex())
		if err != nil || !ok {
			return false, err
		}
		preimageHex = found
		return true, nil
	}, wallClockExpired(time.Duration(btsHalfSeconds)*time.Second))

	if err != nil {
		if _, timedOut := err.(*swaperrors.TimeoutError); timedOut {
			o.log.Info("proposer never redeemed, own bitshares htlc will auto-expire")
			return refundExecuted{cause: err}
		}
		return err
	}

	preimageBytes, err := hex.DecodeString(preimageHex)
	if err != nil {
		return swaperrors.NewMalformedWitnessError("preimage is not valid hex")
	}
	if _, err := secret.FromPreimage(preimageBytes, o.cfg.Secret.Hash()); err != nil {
		return swaperrors.NewMalformedWitnessError(err.Error())
	}

	_, claimHex, err := swap.BuildClaimTx(o.params, funding.TxID, 0, funding.Value, payment, fee.Want, o.cfg.BitcoinPriv, preimageBytes)
	if err != nil {
		return fmt.Errorf("build bitcoin claim tx: %w", err)
	}

	txid, err := o.btc.PushTX(ctx, claimHex)
	if err != nil {
		return swaperrors.NewBroadcastError(claimHex, err)
	}
	o.log.Info("swap complete", "role", "accepter", "gave", "BTS", "claimTxID", txid)
	return nil
}

// refundOwnBitcoinLeg broadcasts the pre-signed refund transaction once this
// party's own Bitcoin HTLC's timelock has passed without the counterparty
// completing their side.
func (o *Orchestrator) refundOwnBitcoinLeg(ctx context.Context, htlc *swap.BitcoinHTLC, refundHex string) error {
	txid, err := o.btc.PushTX(ctx, refundHex)
	if err != nil {
		return swaperrors.NewBroadcastError(refundHex, err)
	}
	if err := htlc.MarkRefunded(txid); err != nil {
		return err
	}
	o.log.Info("refunded own bitcoin htlc after counterparty timeout", "txid", txid)
	return refundExecuted{cause: swaperrors.NewTimeoutError("bitcoin")}
}
