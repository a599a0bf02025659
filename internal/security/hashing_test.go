package security

import "testing"

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, []byte("correct horse battery staple")); err != nil {
		t.Errorf("Compare with right value: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong password")); err == nil {
		t.Error("Compare with wrong value should fail")
	}
	if !h.Matches(hash, []byte("correct horse battery staple")) {
		t.Error("Matches with right value should be true")
	}
	if h.Matches(hash, []byte("wrong password")) {
		t.Error("Matches with wrong value should be false")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	if h := NewHasher(0); h.Cost <= 0 {
		t.Errorf("cost %d not defaulted", h.Cost)
	}
	if h := NewHasher(1000); h.Cost > 31 {
		t.Errorf("cost %d not clamped", h.Cost)
	}
}
