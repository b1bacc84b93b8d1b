package basket

import (
	"time"

	"github.com/google/uuid"

	"zaakiyah/internal/core"
)

// Watchlist is a set of recipients saved for later. Membership is independent
// of the basket: a recipient may be in both, either, or neither.
type Watchlist struct {
	items []core.WatchlistItem
}

func NewWatchlist() *Watchlist {
	return &Watchlist{}
}

// Add saves a recipient. Adding one already present is a no-op; the method
// reports whether the watchlist changed.
func (w *Watchlist) Add(r core.Recipient) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	if w.Contains(r.ID) {
		return false, nil
	}
	w.items = append(w.items, core.WatchlistItem{
		ID:          uuid.NewString(),
		RecipientID: r.ID,
		Recipient:   r,
		AddedAt:     time.Now(),
	})
	return true, nil
}

func (w *Watchlist) Remove(recipientID string) bool {
	for i := range w.items {
		if w.items[i].RecipientID == recipientID {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contains is the membership predicate.
func (w *Watchlist) Contains(recipientID string) bool {
	for i := range w.items {
		if w.items[i].RecipientID == recipientID {
			return true
		}
	}
	return false
}

// Items returns a snapshot in insertion order.
func (w *Watchlist) Items() []core.WatchlistItem {
	out := make([]core.WatchlistItem, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Watchlist) Len() int {
	return len(w.items)
}
