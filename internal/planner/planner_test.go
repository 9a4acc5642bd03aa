package planner

import (
	"math"
	"testing"

	"github.com/agroverse/marketmaker/internal/domain"
)

const eps = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestPlan_WalksLevelsAndSplitsLast(t *testing.T) {
	asks := []domain.PriceLevel{
		{Price: 1.0, Quantity: 10},
		{Price: 2.0, Quantity: 10},
	}

	plan := Plan(15, asks)

	if !approxEqual(plan.TotalQuantity, 12.5) {
		t.Errorf("TotalQuantity = %v, want 12.5", plan.TotalQuantity)
	}
	if !approxEqual(plan.TotalCost, 15) {
		t.Errorf("TotalCost = %v, want 15", plan.TotalCost)
	}
	if !approxEqual(plan.AveragePrice, 1.2) {
		t.Errorf("AveragePrice = %v, want 1.2", plan.AveragePrice)
	}
	if len(plan.Allocations) != 2 {
		t.Fatalf("Allocations = %d, want 2", len(plan.Allocations))
	}
	first := plan.Allocations[0]
	if !approxEqual(first.Quantity, 10) || !approxEqual(first.Cost, 10) {
		t.Errorf("level 1 fill = {qty %v, cost %v}, want full level {10, 10}", first.Quantity, first.Cost)
	}
	second := plan.Allocations[1]
	if !approxEqual(second.Quantity, 2.5) || !approxEqual(second.Cost, 5) {
		t.Errorf("level 2 fill = {qty %v, cost %v}, want partial {2.5, 5}", second.Quantity, second.Cost)
	}
}

func TestPlan_BudgetExceedsDepth(t *testing.T) {
	asks := []domain.PriceLevel{{Price: 1.0, Quantity: 5}}

	plan := Plan(100, asks)

	if !approxEqual(plan.TotalQuantity, 5) {
		t.Errorf("TotalQuantity = %v, want 5", plan.TotalQuantity)
	}
	if !approxEqual(plan.TotalCost, 5) {
		t.Errorf("TotalCost = %v, want 5", plan.TotalCost)
	}
	if !approxEqual(plan.AveragePrice, 1.0) {
		t.Errorf("AveragePrice = %v, want 1.0", plan.AveragePrice)
	}
}

func TestPlan_ZeroPlanCases(t *testing.T) {
	asks := []domain.PriceLevel{
		{Price: 1.0, Quantity: 10},
	}

	tests := []struct {
		name   string
		budget float64
		asks   []domain.PriceLevel
	}{
		{"zero budget", 0, asks},
		{"negative budget", -5, asks},
		{"empty book", 100, nil},
		{"only zero-price levels", 100, []domain.PriceLevel{{Price: 0, Quantity: 50}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(tt.budget, tt.asks)
			if !plan.IsZero() {
				t.Errorf("plan = %+v, want zero plan", plan)
			}
			if plan.TotalCost != 0 || plan.AveragePrice != 0 || len(plan.Allocations) != 0 {
				t.Errorf("zero plan has residue: %+v", plan)
			}
		})
	}
}

func TestPlan_SkipsZeroPriceLevel(t *testing.T) {
	asks := []domain.PriceLevel{
		{Price: 0, Quantity: 100},
		{Price: 2.0, Quantity: 10},
	}

	plan := Plan(10, asks)

	if len(plan.Allocations) != 1 {
		t.Fatalf("Allocations = %d, want 1 (zero-price level skipped)", len(plan.Allocations))
	}
	if !approxEqual(plan.Allocations[0].Price, 2.0) {
		t.Errorf("allocation price = %v, want 2.0", plan.Allocations[0].Price)
	}
	if !approxEqual(plan.TotalQuantity, 5) {
		t.Errorf("TotalQuantity = %v, want 5", plan.TotalQuantity)
	}
	// The skipped level must not dilute the average either.
	if !approxEqual(plan.AveragePrice, 2.0) {
		t.Errorf("AveragePrice = %v, want 2.0", plan.AveragePrice)
	}
}

func TestPlan_Properties(t *testing.T) {
	books := [][]domain.PriceLevel{
		{{Price: 0.001, Quantity: 100000}, {Price: 0.0012, Quantity: 250000}},
		{{Price: 1, Quantity: 1}, {Price: 1, Quantity: 1}, {Price: 1, Quantity: 1}},
		{{Price: 0.5, Quantity: 3}, {Price: 0.75, Quantity: 0}, {Price: 0.9, Quantity: 7}},
		{{Price: 12345.67, Quantity: 0.003}},
	}
	budgets := []float64{0, 0.01, 1, 99.99, 1e6}

	for _, asks := range books {
		var depth float64
		for _, l := range asks {
			depth += l.Quantity
		}
		for _, budget := range budgets {
			plan := Plan(budget, asks)

			if plan.TotalCost > budget+eps {
				t.Errorf("budget conservation violated: cost %v > budget %v", plan.TotalCost, budget)
			}
			if plan.TotalQuantity > depth+eps {
				t.Errorf("manufactured depth: qty %v > available %v", plan.TotalQuantity, depth)
			}
			if plan.TotalQuantity > 0 && !approxEqual(plan.AveragePrice*plan.TotalQuantity, plan.TotalCost) {
				t.Errorf("avg price inconsistent: %v * %v != %v", plan.AveragePrice, plan.TotalQuantity, plan.TotalCost)
			}

			var sumQty, sumCost float64
			for i, a := range plan.Allocations {
				if a.Quantity <= 0 {
					t.Errorf("allocation %d has non-positive quantity %v", i, a.Quantity)
				}
				if !approxEqual(a.Cost, a.Price*a.Quantity) {
					t.Errorf("allocation %d cost %v != price*qty %v", i, a.Cost, a.Price*a.Quantity)
				}
				if i > 0 && a.Price < plan.Allocations[i-1].Price {
					t.Errorf("allocations not in ascending price order at %d", i)
				}
				sumQty += a.Quantity
				sumCost += a.Cost
			}
			if !approxEqual(sumQty, plan.TotalQuantity) || !approxEqual(sumCost, plan.TotalCost) {
				t.Errorf("totals do not match allocation sums: %v/%v vs %v/%v",
					plan.TotalQuantity, plan.TotalCost, sumQty, sumCost)
			}
		}
	}
}

func TestPlan_Deterministic(t *testing.T) {
	asks := []domain.PriceLevel{
		{Price: 0.0031, Quantity: 4000},
		{Price: 0.0032, Quantity: 9500},
		{Price: 0.0035, Quantity: 120000},
	}

	a := Plan(42.5, asks)
	b := Plan(42.5, asks)

	if a.TotalQuantity != b.TotalQuantity || a.TotalCost != b.TotalCost || a.AveragePrice != b.AveragePrice {
		t.Errorf("plan is not deterministic: %+v vs %+v", a, b)
	}
}

func TestPurchasePlan_Slippage(t *testing.T) {
	asks := []domain.PriceLevel{
		{Price: 1.0, Quantity: 1},
		{Price: 3.0, Quantity: 1},
	}

	plan := Plan(4, asks)
	// avg = 4 / 2 = 2.0, best ask = 1.0
	if !approxEqual(plan.Slippage(), 1.0) {
		t.Errorf("Slippage = %v, want 1.0", plan.Slippage())
	}
	if s := Plan(0, asks).Slippage(); s != 0 {
		t.Errorf("zero plan slippage = %v, want 0", s)
	}
}
