package basket

import "zaakiyah/internal/core"

// DistributeEqually splits total across all current items evenly in cents.
// Integer division floors the per-recipient share; the first item in
// insertion order absorbs the remainder, so the allocations always sum to the
// input total exactly. The asymmetric remainder rule is a deliberate, simple
// tie-break, not a fairness guarantee.
//
// The call sets the distribution method to equal and clears the manual flag
// on every item. It is a no-op on an empty basket or a non-positive total.
func (b *Basket) DistributeEqually(total core.Money) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := int64(len(b.items))
	if n == 0 || total.Cents <= 0 {
		return
	}

	per := total.Cents / n
	remainder := total.Cents - per*n
	for i := range b.items {
		cents := per
		if i == 0 {
			cents += remainder
		}
		b.items[i].Amount = core.Money{Cents: cents}
		b.items[i].ManuallyAllocated = false
	}
	b.method = core.DistributionEqual
}
