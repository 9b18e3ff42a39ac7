package swap

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitswaplabs/accs-btc-bts/internal/bitcoinchain"
	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
	"github.com/bitswaplabs/accs-btc-bts/internal/wallet"
)

// DustThreshold is the minimum non-dust output value, matching Bitcoin
// Core's default relay policy for a P2WPKH/P2WSH output.
const DustThreshold = int64(546)

// fundingTxOverheadVByte and perInput/perOutputVByte approximate the vsize
// of a P2WPKH-input/P2WPKH-or-P2WSH-output funding transaction well enough
// to size its own miner fee; the HTLC redeem fee itself uses the fixed
// RedeemVsize constant instead (see fee.go).
const (
	fundingTxOverheadVByte = 10
	p2wpkhInputVByte       = 68
	outputVByte            = 31
)

func p2wpkhScriptCode(pubKeyHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// selectFundingUTXOs greedily selects UTXOs (largest first) to cover target
// plus the per-input cost of whatever is selected.
func selectFundingUTXOs(utxos []bitcoinchain.UTXOOutput, target int64, feeRateSatPerVByte float64) ([]bitcoinchain.UTXOOutput, int64, error) {
	if len(utxos) == 0 {
		return nil, 0, fmt.Errorf("no UTXOs available to fund HTLC")
	}
	sorted := append([]bitcoinchain.UTXOOutput(nil), utxos...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })

	baseFee := int64(math.Ceil(float64(fundingTxOverheadVByte+2*outputVByte) * feeRateSatPerVByte))

	var selected []bitcoinchain.UTXOOutput
	var total int64
	for _, u := range sorted {
		selected = append(selected, u)
		total += u.Value
		inputFee := int64(math.Ceil(float64(len(selected)*p2wpkhInputVByte) * feeRateSatPerVByte))
		if total >= target+baseFee+inputFee {
			return selected, total, nil
		}
	}
	inputFee := int64(math.Ceil(float64(len(selected)*p2wpkhInputVByte) * feeRateSatPerVByte))
	needed := target + baseFee + inputFee
	return nil, 0, swaperrors.NewInsufficientFundsError(total, needed)
}

// FundingResult is the outcome of building and signing the funding
// transaction that locks funds into a P2WSH HTLC output.
type FundingResult struct {
	Tx              *wire.MsgTx
	TxHex           string
	AmountAfterFees int64 // value actually deposited into the P2WSH output
}

// BuildFundingTx spends sender-owned P2WPKH UTXOs to fund p2wsh with
// swapAmount minus redeemFeeWant (the fee the later HTLC redeem transaction
// will need), returning change to the sender's own P2WPKH address. UTXOs
// must already be scoped to the sender (the caller looks them up from the
// agreed funding txid via BitcoinChain.GetUTXOs).
func BuildFundingTx(
	params *chain.Params,
	fundingTxID string,
	utxos []bitcoinchain.UTXOOutput,
	senderPriv *btcec.PrivateKey,
	p2wsh *P2WSHPayment,
	swapAmount int64,
	redeemFeeWant int64,
	feeRateSatPerVByte float64,
) (*FundingResult, error) {
	amountAfterFees := swapAmount - redeemFeeWant
	if amountAfterFees <= DustThreshold {
		return nil, fmt.Errorf("swap amount %d minus redeem fee %d leaves a dust or negative HTLC output", swapAmount, redeemFeeWant)
	}

	selected, total, err := selectFundingUTXOs(utxos, swapAmount, feeRateSatPerVByte)
	if err != nil {
		return nil, err
	}

	senderPub := senderPriv.PubKey()
	senderPubHash := wallet.PubKeyHash160(senderPub)

	senderScriptCode, err := p2wpkhScriptCode(senderPubHash)
	if err != nil {
		return nil, fmt.Errorf("build sender script code: %w", err)
	}
	senderScriptPubKey, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(senderPubHash).
		Script()
	if err != nil {
		return nil, fmt.Errorf("build sender scriptPubKey: %w", err)
	}

	fundingHash, err := chainhash.NewHashFromStr(fundingTxID)
	if err != nil {
		return nil, fmt.Errorf("parse funding txid: %w", err)
	}

	tx := wire.NewMsgTx(2)
	for _, u := range selected {
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(fundingHash, u.Vout), nil, nil))
	}

	tx.AddTxOut(wire.NewTxOut(amountAfterFees, p2wsh.ScriptPubKey))

	fee := int64(math.Ceil(float64(fundingTxOverheadVByte+2*outputVByte+len(selected)*p2wpkhInputVByte) * feeRateSatPerVByte))
	change := total - swapAmount - fee
	if change > DustThreshold {
		tx.AddTxOut(wire.NewTxOut(change, senderScriptPubKey))
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, fmt.Errorf("create psbt packet: %w", err)
	}

	for i, u := range selected {
		packet.Inputs[i].WitnessUtxo = &wire.TxOut{
			Value:    u.Value,
			PkScript: senderScriptPubKey,
		}
		packet.Inputs[i].SighashType = txscript.SigHashAll

		prevFetcher := txscript.NewCannedPrevOutputFetcher(senderScriptPubKey, u.Value)
		sigHashes := txscript.NewTxSigHashes(tx, prevFetcher)
		sighash, err := txscript.CalcWitnessSigHash(senderScriptCode, sigHashes, txscript.SigHashAll, tx, i, u.Value)
		if err != nil {
			return nil, fmt.Errorf("compute funding sighash: %w", err)
		}
		sig := btcecdsa.Sign(senderPriv, sighash)
		sigWithType := append(sig.Serialize(), byte(txscript.SigHashAll))

		packet.Inputs[i].PartialSigs = append(packet.Inputs[i].PartialSigs, &psbt.PartialSig{
			PubKey:    senderPub.SerializeCompressed(),
			Signature: sigWithType,
		})

		if err := psbt.Finalize(packet, i); err != nil {
			return nil, fmt.Errorf("finalize funding input %d: %w", i, err)
		}
	}

	finalTx, err := psbt.Extract(packet)
	if err != nil {
		return nil, fmt.Errorf("extract funding tx: %w", err)
	}

	var buf bytes.Buffer
	if err := finalTx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("serialize funding tx: %w", err)
	}

	return &FundingResult{
		Tx:              finalTx,
		TxHex:           fmt.Sprintf("%x", buf.Bytes()),
		AmountAfterFees: amountAfterFees,
	}, nil
}

// buildHTLCSpendPSBT constructs the shared skeleton for both the claim and
// refund transactions: one P2WSH input, one P2WPKH output, CSV-aware
// sequence, and the sighash that the caller signs before attaching the
// manually-built witness stack.
func buildHTLCSpendPSBT(
	params *chain.Params,
	fundingTxID string,
	fundingVout uint32,
	fundingAmount int64,
	p2wsh *P2WSHPayment,
	destPubHash []byte,
	sequence uint32,
	fee int64,
) (*psbt.Packet, *wire.MsgTx, []byte, error) {
	outputAmount := fundingAmount - fee
	if outputAmount <= DustThreshold {
		return nil, nil, nil, fmt.Errorf("funding amount %d minus fee %d leaves a dust or negative output", fundingAmount, fee)
	}

	txid, err := chainhash.NewHashFromStr(fundingTxID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse funding txid: %w", err)
	}

	tx := wire.NewMsgTx(2)
	txIn := wire.NewTxIn(wire.NewOutPoint(txid, fundingVout), nil, nil)
	txIn.Sequence = sequence
	tx.AddTxIn(txIn)

	destScriptPubKey, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(destPubHash).
		Script()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build destination scriptPubKey: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(outputAmount, destScriptPubKey))

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create psbt packet: %w", err)
	}
	packet.Inputs[0].WitnessUtxo = &wire.TxOut{
		Value:    fundingAmount,
		PkScript: p2wsh.ScriptPubKey,
	}
	packet.Inputs[0].SighashType = txscript.SigHashAll

	prevFetcher := txscript.NewCannedPrevOutputFetcher(p2wsh.ScriptPubKey, fundingAmount)
	sigHashes := txscript.NewTxSigHashes(tx, prevFetcher)
	sighash, err := txscript.CalcWitnessSigHash(p2wsh.RedeemScript, sigHashes, txscript.SigHashAll, tx, 0, fundingAmount)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("compute htlc sighash: %w", err)
	}

	return packet, tx, sighash, nil
}

// finalizeHTLCWitness serializes witness into the PSBT's FinalScriptWitness
// directly, bypassing the standard finalizer's isP2WSH/isSegwit script-type
// detection: that finalizer expects to derive the witness from partial
// signatures against a recognized script template, but an HTLC redeem
// script's two branches aren't a template it knows. Then extracts the fully
// signed transaction.
func finalizeHTLCWitness(packet *psbt.Packet, witness wire.TxWitness) (*wire.MsgTx, string, error) {
	var buf bytes.Buffer
	if err := psbt.WriteTxWitness(&buf, witness); err != nil {
		return nil, "", fmt.Errorf("serialize witness: %w", err)
	}
	packet.Inputs[0].FinalScriptWitness = buf.Bytes()
	packet.Inputs[0].PartialSigs = nil

	finalTx, err := psbt.Extract(packet)
	if err != nil {
		return nil, "", fmt.Errorf("extract htlc spend tx: %w", err)
	}

	var rawBuf bytes.Buffer
	if err := finalTx.Serialize(&rawBuf); err != nil {
		return nil, "", fmt.Errorf("serialize htlc spend tx: %w", err)
	}
	return finalTx, fmt.Sprintf("%x", rawBuf.Bytes()), nil
}

// BuildRefundTx constructs the sender's pre-signed refund transaction:
// spends the P2WSH output back to the sender's own P2WPKH address with
// nSequence = sequence, selecting the OP_ELSE branch.
func BuildRefundTx(
	params *chain.Params,
	fundingTxID string,
	fundingVout uint32,
	fundingAmount int64,
	p2wsh *P2WSHPayment,
	sequence uint32,
	fee int64,
	senderPriv *btcec.PrivateKey,
) (*wire.MsgTx, string, error) {
	senderPub := senderPriv.PubKey()
	senderPubBytes := senderPub.SerializeCompressed()
	senderPubHash := wallet.PubKeyHash160(senderPub)

	packet, _, sighash, err := buildHTLCSpendPSBT(params, fundingTxID, fundingVout, fundingAmount, p2wsh, senderPubHash, sequence, fee)
	if err != nil {
		return nil, "", err
	}

	sig := btcecdsa.Sign(senderPriv, sighash)
	sigWithType := append(sig.Serialize(), byte(txscript.SigHashAll))

	witness := wire.TxWitness(BuildRefundWitness(sigWithType, senderPubBytes, p2wsh.RedeemScript))
	return finalizeHTLCWitness(packet, witness)
}

// BuildClaimTx constructs the receiver's spend of the P2WSH output using the
// revealed preimage, selecting the OP_IF branch.
func BuildClaimTx(
	params *chain.Params,
	fundingTxID string,
	fundingVout uint32,
	fundingAmount int64,
	p2wsh *P2WSHPayment,
	fee int64,
	receiverPriv *btcec.PrivateKey,
	preimage []byte,
) (*wire.MsgTx, string, error) {
	if len(preimage) != 32 {
		return nil, "", fmt.Errorf("preimage must be 32 bytes, got %d", len(preimage))
	}

	receiverPub := receiverPriv.PubKey()
	receiverPubBytes := receiverPub.SerializeCompressed()
	receiverPubHash := wallet.PubKeyHash160(receiverPub)

	// The claim spend does not need to wait on the CSV timelock, so the
	// input sequence can be any value that still signals RBF opt-in.
	packet, _, sighash, err := buildHTLCSpendPSBT(params, fundingTxID, fundingVout, fundingAmount, p2wsh, receiverPubHash, wire.MaxTxInSequenceNum-2, fee)
	if err != nil {
		return nil, "", err
	}

	sig := btcecdsa.Sign(receiverPriv, sighash)
	sigWithType := append(sig.Serialize(), byte(txscript.SigHashAll))

	witness := wire.TxWitness(BuildClaimWitness(sigWithType, receiverPubBytes, preimage, p2wsh.RedeemScript))
	return finalizeHTLCWitness(packet, witness)
}
