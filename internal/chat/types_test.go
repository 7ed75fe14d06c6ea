package chat

import "testing"

func TestPairIDOrderInsensitive(t *testing.T) {
	if PairID("alice", "bob") != PairID("bob", "alice") {
		t.Error("PairID should be order-insensitive")
	}
}

func TestPairIDDistinct(t *testing.T) {
	ab := PairID("alice", "bob")
	ac := PairID("alice", "carol")
	if ab == ac {
		t.Errorf("distinct pairs produced the same id %q", ab)
	}
}

func TestPairIDStable(t *testing.T) {
	first := PairID("u1", "u2")
	second := PairID("u1", "u2")
	if first != second || first == "" {
		t.Errorf("PairID not deterministic: %q vs %q", first, second)
	}
}
