// Package planner computes budget-respecting purchase plans from order book
// ask levels. It is pure: no I/O, no clocks, no errors for degenerate inputs.
package planner

import "github.com/agroverse/marketmaker/internal/domain"

// Plan walks the ask levels in the order given (ascending price, as the
// exchange returns them) and greedily allocates the budget: whole levels
// while they fit, then one partial fill, stopping when the budget or the book
// is exhausted.
//
// A non-positive budget or an empty ask side yields the zero plan; both are
// legitimate outcomes, not failures. A zero-price level is skipped rather
// than dividing by zero. The returned plan never spends more than budget.
func Plan(budget float64, asks []domain.PriceLevel) domain.PurchasePlan {
	if budget <= 0 {
		return domain.PurchasePlan{}
	}

	var (
		plan      domain.PurchasePlan
		remaining = budget
	)

	for _, level := range asks {
		if remaining <= 0 {
			break
		}
		if level.Price <= 0 {
			continue
		}

		var qty, cost float64
		if levelCost := level.Notional(); levelCost <= remaining {
			qty = level.Quantity
			cost = levelCost
		} else {
			qty = remaining / level.Price
			cost = qty * level.Price
		}
		if qty <= 0 {
			continue
		}

		plan.Allocations = append(plan.Allocations, domain.Allocation{
			Price:    level.Price,
			Quantity: qty,
			Cost:     cost,
		})
		plan.TotalQuantity += qty
		plan.TotalCost += cost
		remaining -= cost
	}

	if plan.TotalQuantity > 0 {
		plan.AveragePrice = plan.TotalCost / plan.TotalQuantity
	}
	return plan
}
