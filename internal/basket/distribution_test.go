package basket

import (
	"testing"

	"zaakiyah/internal/core"
)

func TestDistributeEquallyFirstItemAbsorbsRemainder(t *testing.T) {
	b := New()
	_ = b.Add(recipient("r1"), nil)
	_ = b.Add(recipient("r2"), nil)
	_ = b.Add(recipient("r3"), nil)

	b.DistributeEqually(core.Money{Cents: 10000}) // 100.00 over 3

	want := []int64{3334, 3333, 3333}
	items := b.Items()
	var sum int64
	for i, item := range items {
		if item.Amount.Cents != want[i] {
			t.Fatalf("item %d: expected %d, got %d", i, want[i], item.Amount.Cents)
		}
		sum += item.Amount.Cents
	}
	if sum != 10000 {
		t.Fatalf("allocations must sum exactly: %d", sum)
	}
	if b.Method() != core.DistributionEqual {
		t.Fatalf("expected equal method, got %q", b.Method())
	}
}

func TestDistributeEquallyEvenSplit(t *testing.T) {
	b := New()
	_ = b.Add(recipient("r1"), nil)
	_ = b.Add(recipient("r2"), nil)

	b.DistributeEqually(core.Money{Cents: 100000}) // 1000.00 over 2

	for i, item := range b.Items() {
		if item.Amount.Cents != 50000 {
			t.Fatalf("item %d: expected 50000, got %d", i, item.Amount.Cents)
		}
	}
}

func TestDistributeEquallyZeroTotalIsNoOp(t *testing.T) {
	b := New()
	_ = b.Add(recipient("r1"), cents(1234))

	b.DistributeEqually(core.Money{})

	if got := b.Items()[0].Amount.Cents; got != 1234 {
		t.Fatalf("amount should be untouched, got %d", got)
	}
	if b.Method() != core.DistributionUnset {
		t.Fatalf("method should stay unset, got %q", b.Method())
	}
}

func TestDistributeEquallyEmptyBasketIsNoOp(t *testing.T) {
	b := New()
	b.DistributeEqually(core.Money{Cents: 10000})
	if b.Len() != 0 || b.Method() != core.DistributionUnset {
		t.Fatal("empty basket must be unchanged")
	}
}

func TestDistributeEquallyClearsManualFlags(t *testing.T) {
	b := New()
	_ = b.Add(recipient("r1"), nil)
	_ = b.Add(recipient("r2"), nil)
	_ = b.UpdateAmount("r1", core.Money{Cents: 50000})

	if !b.Items()[0].ManuallyAllocated {
		t.Fatal("precondition: r1 manually allocated")
	}

	b.DistributeEqually(core.Money{Cents: 10000})

	for i, item := range b.Items() {
		if item.ManuallyAllocated {
			t.Fatalf("item %d should no longer be manually allocated", i)
		}
	}
}
