package domain

// Allocation is one fill against one ask level of a purchase plan.
// Cost == Price * Quantity within floating-point tolerance, Quantity > 0.
type Allocation struct {
	Price    float64
	Quantity float64
	Cost     float64
}

// PurchasePlan is the computed allocation of a fixed quote-currency budget
// across ask levels. TotalCost never exceeds the budget it was computed from;
// it may be strictly less when the book runs out of depth, which is a fact to
// report rather than an error. Allocations appear in the same ascending-price
// order they were consumed from the book.
type PurchasePlan struct {
	TotalQuantity float64
	TotalCost     float64
	AveragePrice  float64
	Allocations   []Allocation
}

// IsZero reports whether the plan allocates nothing. A zero plan is the
// defined result for a non-positive budget or an empty ask side.
func (p PurchasePlan) IsZero() bool {
	return p.TotalQuantity == 0
}

// Levels returns the number of ask levels the plan touches.
func (p PurchasePlan) Levels() int {
	return len(p.Allocations)
}

// Slippage returns the difference between the plan's average price and the
// best ask it consumed. Zero for a zero plan.
func (p PurchasePlan) Slippage() float64 {
	if p.IsZero() || len(p.Allocations) == 0 {
		return 0
	}
	return p.AveragePrice - p.Allocations[0].Price
}
