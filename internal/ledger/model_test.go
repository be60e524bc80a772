package ledger

import (
	"errors"
	"testing"
)

func TestTokenAsset(t *testing.T) {
	id, err := TokenAsset("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	if err != nil {
		t.Fatalf("token asset: %v", err)
	}
	if id != "token:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" {
		t.Fatalf("unexpected id %s", id)
	}

	same, err := TokenAsset("a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	if err != nil || same != id {
		t.Fatalf("expected prefix-less address to map to %s, got %s (%v)", id, same, err)
	}
	if id == EtherAsset {
		t.Fatalf("token asset collides with ether")
	}

	for _, bad := range []string{"", "0x1234", "0xzz", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb4800"} {
		if _, err := TokenAsset(bad); !errors.Is(err, ErrInvalidAsset) {
			t.Fatalf("expected invalid asset for %q, got %v", bad, err)
		}
	}
}

func TestSaturatingArithmetic(t *testing.T) {
	if got := saturatingAdd(maxU256(), n(1)); !got.Eq(maxU256()) {
		t.Fatalf("expected saturation at max, got %s", got.Dec())
	}
	if got := saturatingSub(n(1), n(2)); !got.IsZero() {
		t.Fatalf("expected saturation at zero, got %s", got.Dec())
	}
	if got := saturatingAdd(n(2), n(3)); !got.Eq(n(5)) {
		t.Fatalf("expected 5, got %s", got.Dec())
	}
}
