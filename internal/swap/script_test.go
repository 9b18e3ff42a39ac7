package swap

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
	"github.com/bitswaplabs/accs-btc-bts/internal/wallet"
)

func mustKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return priv
}

func TestBuildRedeemScriptRoundTrip(t *testing.T) {
	sender := mustKey(t)
	receiver := mustKey(t)
	hash := sha256.Sum256([]byte("preimage"))

	cases := []struct {
		name     string
		sequence uint32
	}{
		{"zero sequence", 0},
		{"max sequence", MaxSequence},
		{"typical sequence", 144},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := RedeemScriptParams{
				Hash:        hash,
				Sequence:    tc.sequence,
				SenderPub:   sender.PubKey(),
				ReceiverPub: receiver.PubKey(),
			}
			script, err := BuildRedeemScript(params)
			if err != nil {
				t.Fatalf("BuildRedeemScript: %v", err)
			}

			parsed, err := ParseRedeemScript(script)
			if err != nil {
				t.Fatalf("ParseRedeemScript: %v", err)
			}

			if parsed.Hash != hash {
				t.Errorf("hash mismatch: got %x, want %x", parsed.Hash, hash)
			}
			if parsed.Sequence != tc.sequence {
				t.Errorf("sequence mismatch: got %d, want %d", parsed.Sequence, tc.sequence)
			}
			wantReceiverHash := wallet.PubKeyHash160(receiver.PubKey())
			if string(parsed.ReceiverPubHash) != string(wantReceiverHash) {
				t.Errorf("receiver pubkey hash mismatch")
			}
			wantSenderHash := wallet.PubKeyHash160(sender.PubKey())
			if string(parsed.SenderPubHash) != string(wantSenderHash) {
				t.Errorf("sender pubkey hash mismatch")
			}
		})
	}
}

func TestBuildRedeemScriptRejectsSequenceOverflow(t *testing.T) {
	sender := mustKey(t)
	receiver := mustKey(t)
	params := RedeemScriptParams{
		Hash:        sha256.Sum256([]byte("x")),
		Sequence:    MaxSequence + 1,
		SenderPub:   sender.PubKey(),
		ReceiverPub: receiver.PubKey(),
	}
	if _, err := BuildRedeemScript(params); err == nil {
		t.Fatal("expected error for sequence exceeding MaxSequence")
	}
}

func TestBuildRedeemScriptRequiresBothKeys(t *testing.T) {
	sender := mustKey(t)
	params := RedeemScriptParams{
		Hash:      sha256.Sum256([]byte("x")),
		SenderPub: sender.PubKey(),
	}
	if _, err := BuildRedeemScript(params); err == nil {
		t.Fatal("expected error for missing receiver public key")
	}
}

func TestParseRedeemScriptRejectsMalformedScript(t *testing.T) {
	if _, err := ParseRedeemScript([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatal("expected error parsing garbage bytes")
	}
}

func TestParseRedeemScriptRejectsTruncatedScript(t *testing.T) {
	sender := mustKey(t)
	receiver := mustKey(t)
	script, err := BuildRedeemScript(RedeemScriptParams{
		Hash:        sha256.Sum256([]byte("x")),
		Sequence:    10,
		SenderPub:   sender.PubKey(),
		ReceiverPub: receiver.PubKey(),
	})
	if err != nil {
		t.Fatalf("BuildRedeemScript: %v", err)
	}
	truncated := script[:len(script)-3]
	if _, err := ParseRedeemScript(truncated); err == nil {
		t.Fatal("expected error parsing truncated script")
	}
}

func TestGetP2WSHDerivesAddress(t *testing.T) {
	sender := mustKey(t)
	receiver := mustKey(t)
	params, ok := chain.Get(chain.Testnet)
	if !ok {
		t.Fatal("testnet params not registered")
	}

	payment, err := GetP2WSH(RedeemScriptParams{
		Hash:        sha256.Sum256([]byte("preimage")),
		Sequence:    144,
		SenderPub:   sender.PubKey(),
		ReceiverPub: receiver.PubKey(),
	}, params)
	if err != nil {
		t.Fatalf("GetP2WSH: %v", err)
	}
	if payment.Address == "" {
		t.Error("expected non-empty address")
	}
	if len(payment.ScriptPubKey) != 34 {
		t.Errorf("expected 34-byte P2WSH scriptPubKey, got %d", len(payment.ScriptPubKey))
	}
}

func TestBuildClaimAndRefundWitnessShapes(t *testing.T) {
	claim := BuildClaimWitness([]byte("sig"), []byte("pub"), []byte("preimage"), []byte("script"))
	if len(claim) != 5 {
		t.Fatalf("claim witness expected 5 items, got %d", len(claim))
	}
	if len(claim[3]) != 1 || claim[3][0] != 0x01 {
		t.Errorf("claim witness selector should be single 0x01 byte, got %x", claim[3])
	}

	refund := BuildRefundWitness([]byte("sig"), []byte("pub"), []byte("script"))
	if len(refund) != 4 {
		t.Fatalf("refund witness expected 4 items, got %d", len(refund))
	}
	if len(refund[2]) != 0 {
		t.Errorf("refund witness selector should be empty push, got %x", refund[2])
	}
}
