package security

import "testing"

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(64)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if len(a) != 128 {
		t.Errorf("len = %d, want 128 hex chars for 64 bytes", len(a))
	}
	b, err := RandomToken(64)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if a == b {
		t.Error("two tokens should not collide")
	}
}

func TestRandomDigits(t *testing.T) {
	s, err := RandomDigits(10)
	if err != nil {
		t.Fatalf("RandomDigits: %v", err)
	}
	if len(s) != 10 {
		t.Fatalf("len = %d, want 10", len(s))
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			t.Errorf("non-digit %q in output", c)
		}
	}
}

func TestRandomRecordID(t *testing.T) {
	for i := 0; i < 100; i++ {
		id, err := RandomRecordID()
		if err != nil {
			t.Fatalf("RandomRecordID: %v", err)
		}
		if id < 10000000 || id > 19999999 {
			t.Errorf("id %d outside the 10xxxxxx range", id)
		}
	}
}
