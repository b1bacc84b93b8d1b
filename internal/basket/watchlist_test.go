package basket

import "testing"

func TestWatchlistAddIsIdempotent(t *testing.T) {
	w := NewWatchlist()
	added, err := w.Add(recipient("r1"))
	if err != nil || !added {
		t.Fatalf("first add should change the watchlist (added=%v, err=%v)", added, err)
	}
	added, err = w.Add(recipient("r1"))
	if err != nil || added {
		t.Fatalf("second add should be a no-op (added=%v, err=%v)", added, err)
	}
	if w.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", w.Len())
	}
	item := w.Items()[0]
	if item.ID == "" || item.AddedAt.IsZero() {
		t.Fatalf("item should carry id and timestamp: %+v", item)
	}
}

func TestWatchlistRemoveAndContains(t *testing.T) {
	w := NewWatchlist()
	_, _ = w.Add(recipient("r1"))

	if !w.Contains("r1") {
		t.Fatal("expected membership for r1")
	}
	if w.Remove("missing") {
		t.Fatal("removing a non-member should report false")
	}
	if !w.Remove("r1") {
		t.Fatal("removing a member should report true")
	}
	if w.Contains("r1") || w.Len() != 0 {
		t.Fatal("r1 should be gone")
	}
}

func TestWatchlistIndependentOfBasket(t *testing.T) {
	w := NewWatchlist()
	b := New()

	_, _ = w.Add(recipient("r1"))
	_ = b.Add(recipient("r1"), nil)

	b.Clear()
	if !w.Contains("r1") {
		t.Fatal("clearing the basket must not touch the watchlist")
	}

	w.Remove("r1")
	_ = b.Add(recipient("r2"), nil)
	if w.Contains("r2") {
		t.Fatal("basket membership must not leak into the watchlist")
	}
}
