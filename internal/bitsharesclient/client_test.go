package bitsharesclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestFakeChainCreateRecordsParams(t *testing.T) {
	fake := NewFakeChain()
	hash := sha256.Sum256([]byte("preimage"))
	params := HTLCCreateParams{
		FromAccountID: "1.2.1", ToAccountID: "1.2.2",
		Amount: 500000, Asset: "1.3.0", Hash: hash, TimeSeconds: 3600,
	}
	if err := fake.Create(context.Background(), params); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(fake.Created) != 1 {
		t.Fatalf("expected 1 recorded Create call, got %d", len(fake.Created))
	}
	if fake.Created[0].ToAccountID != "1.2.2" {
		t.Errorf("ToAccountID = %q, want 1.2.2", fake.Created[0].ToAccountID)
	}
}

func TestFakeChainGetIDMatchesExactTuple(t *testing.T) {
	fake := NewFakeChain()
	hash := sha256.Sum256([]byte("preimage"))
	hashHex := hex.EncodeToString(hash[:])
	fake.HTLCsByID["1.16.0"] = htlcObject{
		ID: "1.16.0", From: "1.2.1", To: "1.2.2", Amount: 500000,
		HashHex: hashHex, TimeLockSeconds: 3600,
	}

	id, ok, err := fake.GetID(context.Background(), "1.2.1", "1.2.2", 500000, hash, 3600)
	if err != nil {
		t.Fatalf("GetID: %v", err)
	}
	if !ok || id != "1.16.0" {
		t.Fatalf("GetID = (%q, %v), want (1.16.0, true)", id, ok)
	}

	if _, ok, _ := fake.GetID(context.Background(), "1.2.1", "1.2.2", 1, hash, 3600); ok {
		t.Error("expected no match for a different amount")
	}
}

func TestFakeChainRedeemNotYetFound(t *testing.T) {
	fake := NewFakeChain()
	ok, err := fake.Redeem(context.Background(), "1.16.0", 500000, "wif", []byte("preimage-bytes-padded-to-32-byte"))
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if ok {
		t.Error("expected Redeem to report not-yet-found as (false, nil)")
	}
}

func TestFakeChainRedeemSucceedsAndExposesPreimage(t *testing.T) {
	fake := NewFakeChain()
	hash := sha256.Sum256([]byte("preimage"))
	hashHex := hex.EncodeToString(hash[:])
	fake.HTLCsByID["1.16.0"] = htlcObject{ID: "1.16.0", From: "1.2.1", To: "1.2.2", HashHex: hashHex}
	fake.RedeemResult["1.16.0"] = true

	ok, err := fake.Redeem(context.Background(), "1.16.0", 500000, "wif", []byte("preimage"))
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !ok {
		t.Fatal("expected Redeem to succeed")
	}

	preimageHex, found, err := fake.GetPreimageFromHTLC(context.Background(), "1.2.1", "1.2.2", hashHex)
	if err != nil {
		t.Fatalf("GetPreimageFromHTLC: %v", err)
	}
	if !found {
		t.Fatal("expected preimage to be found after redemption")
	}
	if preimageHex != hex.EncodeToString([]byte("preimage")) {
		t.Errorf("preimageHex = %q", preimageHex)
	}
}

func TestFakeChainAccountResolution(t *testing.T) {
	fake := NewFakeChain()
	fake.AccountIDs["alice"] = "1.2.10"
	fake.KeyAccounts["5Jwif..."] = "1.2.11"

	id, err := fake.GetAccountID(context.Background(), "alice")
	if err != nil || id != "1.2.10" {
		t.Fatalf("GetAccountID = (%q, %v), want (1.2.10, nil)", id, err)
	}

	id, err = fake.ToAccountID(context.Background(), "5Jwif...")
	if err != nil || id != "1.2.11" {
		t.Fatalf("ToAccountID = (%q, %v), want (1.2.11, nil)", id, err)
	}

	if _, err := fake.GetAccountID(context.Background(), "unknown"); err == nil {
		t.Fatal("expected error resolving an unknown account name")
	}
}

func TestFakeChainCloseIsIdempotent(t *testing.T) {
	fake := NewFakeChain()
	if err := fake.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := fake.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if fake.ClosedCount != 2 {
		t.Errorf("ClosedCount = %d, want 2", fake.ClosedCount)
	}
}
