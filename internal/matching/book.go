package matching

import (
	"sort"

	"github.com/epic1st/optioncore/backend/internal/core"
	"github.com/epic1st/optioncore/backend/internal/order"
)

// level is one FIFO price level: orders at the same price fill in
// arrival order, per spec.md §4.3 ("within a price level, FIFO by
// insertion"). Time here is book-arrival time (post-delay), not the
// order's original submit time.
type level struct {
	price  core.Ticks
	orders []*order.Order
}

// book is a price-priority, time-priority order book keyed by Ticks.
// It is grounded on manangoyal18-GOLANG-ORDER-MATCHING-SYSTEM's
// PriceLevel/OrderBook pattern (a map of levels plus a cached sorted
// key slice), adapted from decimal-string keys to scaled-integer
// Ticks keys per spec.md §9's fixed-point design note.
type book struct {
	levels map[core.Ticks]*level
	sorted []core.Ticks // cached, ascending; invalidated on structural change
	dirty  bool
	desc   bool // true: best price is the highest (bid book); false: lowest (ask book)
}

func newBook(desc bool) *book {
	return &book{levels: make(map[core.Ticks]*level), desc: desc}
}

func (b *book) add(price core.Ticks, o *order.Order) {
	lv, ok := b.levels[price]
	if !ok {
		lv = &level{price: price}
		b.levels[price] = lv
		b.dirty = true
	}
	lv.orders = append(lv.orders, o)
}

// remove deletes orderID from the book, searching every level. It is
// O(n) in book size; the matching engine is single-threaded and book
// sizes in backtests/paper trading are small, so this trades simplicity
// for a fast path on the hot (match) side.
func (b *book) remove(orderID uint64) (*order.Order, bool) {
	for price, lv := range b.levels {
		for i, o := range lv.orders {
			if o.ID() == orderID {
				lv.orders = append(lv.orders[:i], lv.orders[i+1:]...)
				if len(lv.orders) == 0 {
					delete(b.levels, price)
					b.dirty = true
				}
				return o, true
			}
		}
	}
	return nil, false
}

func (b *book) refreshSorted() {
	if !b.dirty && b.sorted != nil {
		return
	}
	b.sorted = b.sorted[:0]
	for price := range b.levels {
		b.sorted = append(b.sorted, price)
	}
	if b.desc {
		sort.Slice(b.sorted, func(i, j int) bool { return b.sorted[i] > b.sorted[j] })
	} else {
		sort.Slice(b.sorted, func(i, j int) bool { return b.sorted[i] < b.sorted[j] })
	}
	b.dirty = false
}

// bestPrice returns the best (highest for desc books, lowest otherwise) price.
func (b *book) bestPrice() (core.Ticks, bool) {
	b.refreshSorted()
	if len(b.sorted) == 0 {
		return 0, false
	}
	return b.sorted[0], true
}

// levelsFrom walks levels in priority order while keep(price) is true,
// invoking fn on each non-empty level. fn may remove orders from the
// level (via the book's remove, or by trimming lv.orders directly) —
// levelsFrom re-checks emptiness after each call and prunes the level.
func (b *book) levelsFrom(keep func(price core.Ticks) bool, fn func(lv *level) (stop bool)) {
	b.refreshSorted()
	for _, price := range b.sorted {
		if !keep(price) {
			break
		}
		lv, ok := b.levels[price]
		if !ok {
			continue
		}
		stop := fn(lv)
		if len(lv.orders) == 0 {
			delete(b.levels, price)
			b.dirty = true
		}
		if stop {
			break
		}
	}
}

// isEmpty reports whether the book holds no resting orders.
func (b *book) isEmpty() bool {
	return len(b.levels) == 0
}
