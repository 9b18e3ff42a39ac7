package secret

import "testing"

func TestRandom_HashMatchesPreimage(t *testing.T) {
	s, err := Random()
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if !s.HasPreimage() {
		t.Fatal("expected preimage to be known")
	}

	preimage := s.Preimage()
	reconstructed, err := FromPreimage(preimage[:], s.Hash())
	if err != nil {
		t.Fatalf("FromPreimage: %v", err)
	}
	if reconstructed.Hash() != s.Hash() {
		t.Error("round-tripped hash does not match original")
	}
}

func TestFromHash_NoPreimage(t *testing.T) {
	s, _ := Random()
	hashOnly := FromHash(s.Hash())

	if hashOnly.HasPreimage() {
		t.Error("expected hash-only secret to have no preimage")
	}
	if hashOnly.Hash() != s.Hash() {
		t.Error("hash mismatch")
	}
}

func TestFromPreimage_RejectsWrongPreimage(t *testing.T) {
	a, _ := Random()
	b, _ := Random()

	aPreimage := a.Preimage()
	if _, err := FromPreimage(aPreimage[:], b.Hash()); err == nil {
		t.Error("expected error when preimage does not match hash")
	}
}

func TestFromPreimage_RejectsWrongLength(t *testing.T) {
	s, _ := Random()
	if _, err := FromPreimage([]byte{1, 2, 3}, s.Hash()); err == nil {
		t.Error("expected error for short preimage")
	}
}

func TestHashFromHex_RoundTrip(t *testing.T) {
	s, _ := Random()
	parsed, err := HashFromHex(s.HashHex())
	if err != nil {
		t.Fatalf("HashFromHex: %v", err)
	}
	if parsed != s.Hash() {
		t.Error("round-tripped hash via hex does not match")
	}
}

func TestTwoRandomSecretsDiffer(t *testing.T) {
	a, _ := Random()
	b, _ := Random()
	if a.Hash() == b.Hash() {
		t.Error("two random secrets produced the same hash")
	}
}
