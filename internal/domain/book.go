// Package domain defines the core types shared across the market maker:
// order book snapshots, purchase plans, order requests, and the sentinel
// errors used to classify failures at the exchange boundary.
package domain

import "time"

// PriceLevel is a single price+quantity entry in an order book. Price is in
// quote-currency units per base-currency unit.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// Notional returns the quote-currency cost of taking the whole level.
func (l PriceLevel) Notional() float64 {
	return l.Price * l.Quantity
}

// OrderBook is a snapshot of bids and asks for one trading pair. Bids are
// ordered by descending price, asks by ascending price, as returned by the
// exchange. The planner relies on the ask ordering and does not re-sort.
type OrderBook struct {
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest bid, or false if the bid side is empty.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, or false if the ask side is empty.
func (b OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// AskDepth returns the total base-currency quantity available on the ask side.
func (b OrderBook) AskDepth() float64 {
	var total float64
	for _, l := range b.Asks {
		total += l.Quantity
	}
	return total
}
