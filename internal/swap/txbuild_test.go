package swap

import (
	"crypto/sha256"
	"testing"

	"github.com/bitswaplabs/accs-btc-bts/internal/bitcoinchain"
	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
)

const testFundingTxID = "11111111" + "11111111" + "11111111" + "11111111" + "11111111" + "11111111" + "11111111" + "11111111"

func sha256Sum(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

func preimageBytes(s string) []byte {
	h := sha256.Sum256([]byte(s))
	return h[:]
}

func testParams(t *testing.T) *chain.Params {
	t.Helper()
	params, ok := chain.Get(chain.Testnet)
	if !ok {
		t.Fatal("testnet params not registered")
	}
	return params
}

func TestBuildFundingTxLocksAmountAfterFee(t *testing.T) {
	params := testParams(t)
	sender := mustKey(t)
	receiver := mustKey(t)

	payment, err := GetP2WSH(RedeemScriptParams{
		Hash:        sha256Sum("preimage"),
		Sequence:    144,
		SenderPub:   sender.PubKey(),
		ReceiverPub: receiver.PubKey(),
	}, params)
	if err != nil {
		t.Fatalf("GetP2WSH: %v", err)
	}

	utxos := []bitcoinchain.UTXOOutput{
		{Vout: 0, Value: 200_000, Confirmed: true},
	}

	result, err := BuildFundingTx(params, testFundingTxID, utxos, sender, payment, 100_000, 700, 5)
	if err != nil {
		t.Fatalf("BuildFundingTx: %v", err)
	}
	if result.AmountAfterFees != 100_000-700 {
		t.Errorf("AmountAfterFees = %d, want %d", result.AmountAfterFees, 100_000-700)
	}
	if result.TxHex == "" {
		t.Error("expected non-empty tx hex")
	}
	if len(result.Tx.TxOut) == 0 || result.Tx.TxOut[0].Value != result.AmountAfterFees {
		t.Errorf("expected first output to be the P2WSH output with AmountAfterFees")
	}
}

func TestBuildFundingTxRejectsDustHTLCOutput(t *testing.T) {
	params := testParams(t)
	sender := mustKey(t)
	receiver := mustKey(t)

	payment, err := GetP2WSH(RedeemScriptParams{
		Hash:        sha256Sum("preimage"),
		Sequence:    144,
		SenderPub:   sender.PubKey(),
		ReceiverPub: receiver.PubKey(),
	}, params)
	if err != nil {
		t.Fatalf("GetP2WSH: %v", err)
	}

	utxos := []bitcoinchain.UTXOOutput{{Vout: 0, Value: 10_000, Confirmed: true}}

	// redeemFeeWant alone exceeds the swap amount, leaving nothing for the
	// HTLC output.
	if _, err := BuildFundingTx(params, testFundingTxID, utxos, sender, payment, 500, 700, 5); err == nil {
		t.Fatal("expected dust rejection error")
	}
}

func TestBuildFundingTxRejectsInsufficientFunds(t *testing.T) {
	params := testParams(t)
	sender := mustKey(t)
	receiver := mustKey(t)

	payment, err := GetP2WSH(RedeemScriptParams{
		Hash:        sha256Sum("preimage"),
		Sequence:    144,
		SenderPub:   sender.PubKey(),
		ReceiverPub: receiver.PubKey(),
	}, params)
	if err != nil {
		t.Fatalf("GetP2WSH: %v", err)
	}

	utxos := []bitcoinchain.UTXOOutput{{Vout: 0, Value: 1_000, Confirmed: true}}

	if _, err := BuildFundingTx(params, testFundingTxID, utxos, sender, payment, 100_000, 700, 5); err == nil {
		t.Fatal("expected insufficient funds error")
	}
}

func TestBuildClaimAndRefundTxProduceDistinctWitnesses(t *testing.T) {
	params := testParams(t)
	sender := mustKey(t)
	receiver := mustKey(t)

	payment, err := GetP2WSH(RedeemScriptParams{
		Hash:        sha256Sum("preimage"),
		Sequence:    144,
		SenderPub:   sender.PubKey(),
		ReceiverPub: receiver.PubKey(),
	}, params)
	if err != nil {
		t.Fatalf("GetP2WSH: %v", err)
	}

	const fundingAmount = 99_300

	_, claimHex, err := BuildClaimTx(params, testFundingTxID, 0, fundingAmount, payment, 700, receiver, preimageBytes("preimage"))
	if err != nil {
		t.Fatalf("BuildClaimTx: %v", err)
	}
	if claimHex == "" {
		t.Error("expected non-empty claim tx hex")
	}

	_, refundHex, err := BuildRefundTx(params, testFundingTxID, 0, fundingAmount, payment, 144, 700, sender)
	if err != nil {
		t.Fatalf("BuildRefundTx: %v", err)
	}
	if refundHex == "" {
		t.Error("expected non-empty refund tx hex")
	}

	if claimHex == refundHex {
		t.Error("claim and refund transactions should differ")
	}
}

func TestBuildClaimTxRejectsWrongPreimageLength(t *testing.T) {
	params := testParams(t)
	sender := mustKey(t)
	receiver := mustKey(t)

	payment, err := GetP2WSH(RedeemScriptParams{
		Hash:        sha256Sum("preimage"),
		Sequence:    144,
		SenderPub:   sender.PubKey(),
		ReceiverPub: receiver.PubKey(),
	}, params)
	if err != nil {
		t.Fatalf("GetP2WSH: %v", err)
	}

	_, _, err = BuildClaimTx(params, testFundingTxID, 0, 99_300, payment, 700, receiver, []byte("too-short"))
	if err == nil {
		t.Fatal("expected error for malformed preimage length")
	}
}
