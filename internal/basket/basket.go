// Package basket implements the donation basket, the fund distribution
// algorithm, and the watchlist.
package basket

import (
	"errors"
	"sync"

	"zaakiyah/internal/core"
)

var (
	ErrNotInBasket = errors.New("recipient not in basket")
)

// Basket tracks the recipients a donor has selected and the amount allocated
// to each, plus basket-level flags. It is an explicit object owned by its
// session and guards its own state: an in-flight checkout snapshots or clears
// the basket while the session's handlers may still be mutating it, so every
// operation takes the basket lock. Compound reads go through Snapshot.
type Basket struct {
	mu              sync.Mutex
	items           []core.BasketItem
	method          core.DistributionMethod
	supportZaakiyah bool
	zaakiyahAmount  core.Money
	anonymous       bool
}

// Snapshot is a point-in-time copy of the whole basket taken under one lock,
// so Total always equals the sum of the item amounts plus ZaakiyahAmount.
type Snapshot struct {
	Items           []core.BasketItem
	Method          core.DistributionMethod
	SupportZaakiyah bool
	ZaakiyahAmount  core.Money
	Anonymous       bool
	Total           core.Money
}

func New() *Basket {
	return &Basket{}
}

// Add puts a recipient into the basket. If the recipient is already present,
// the amount is overwritten only when one is explicitly given; otherwise the
// existing allocation is left untouched. New items start unallocated.
// Shortfall bounds are not enforced here; that is server-side validation.
func (b *Basket) Add(r core.Recipient, amount *core.Money) error {
	if err := r.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].RecipientID == r.ID {
			if amount != nil {
				b.items[i].Amount = *amount
			}
			return nil
		}
	}
	item := core.BasketItem{RecipientID: r.ID, Recipient: r}
	if amount != nil {
		item.Amount = *amount
	}
	b.items = append(b.items, item)
	return nil
}

// Remove drops at most one item; removing an absent recipient is a no-op.
func (b *Basket) Remove(recipientID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].RecipientID == recipientID {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateAmount sets the allocation for one recipient and marks it manually
// allocated. Other items are not recomputed.
func (b *Basket) UpdateAmount(recipientID string, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].RecipientID == recipientID {
			b.items[i].Amount = amount
			b.items[i].ManuallyAllocated = true
			return nil
		}
	}
	return ErrNotInBasket
}

// Clear resets to the empty basket, discarding method and flags.
func (b *Basket) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
	b.method = core.DistributionUnset
	b.supportZaakiyah = false
	b.zaakiyahAmount = core.Money{}
	b.anonymous = false
}

func (b *Basket) SetDistributionMethod(m core.DistributionMethod) error {
	if err := m.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.method = m
	return nil
}

// SetSupportZaakiyah toggles the platform-support contribution. Opting out
// forces the amount back to zero.
func (b *Basket) SetSupportZaakiyah(support bool, amount core.Money) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supportZaakiyah = support
	if support {
		b.zaakiyahAmount = amount
	} else {
		b.zaakiyahAmount = core.Money{}
	}
}

func (b *Basket) SetAnonymous(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.anonymous = v
}

// Total returns the payable amount, recipient allocations plus the platform
// support amount. It is recomputed on every call, never cached, so it is
// always consistent with the latest mutation.
func (b *Basket) Total() core.Money {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total()
}

// total assumes b.mu is held.
func (b *Basket) total() core.Money {
	total := b.zaakiyahAmount
	for i := range b.items {
		total = total.Add(b.items[i].Amount)
	}
	return total
}

// Snapshot copies the basket in one critical section. Callers that need the
// items and the total to agree (payment requests, views) use this instead of
// the individual getters.
func (b *Basket) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]core.BasketItem, len(b.items))
	copy(items, b.items)
	return Snapshot{
		Items:           items,
		Method:          b.method,
		SupportZaakiyah: b.supportZaakiyah,
		ZaakiyahAmount:  b.zaakiyahAmount,
		Anonymous:       b.anonymous,
		Total:           b.total(),
	}
}

// Items returns a copy of the basket contents in insertion order.
func (b *Basket) Items() []core.BasketItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.BasketItem, len(b.items))
	copy(out, b.items)
	return out
}

// Contains reports whether the recipient is in the basket.
func (b *Basket) Contains(recipientID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].RecipientID == recipientID {
			return true
		}
	}
	return false
}

func (b *Basket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Basket) Method() core.DistributionMethod {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.method
}

func (b *Basket) SupportZaakiyah() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.supportZaakiyah
}

func (b *Basket) ZaakiyahAmount() core.Money {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.zaakiyahAmount
}

func (b *Basket) Anonymous() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.anonymous
}
