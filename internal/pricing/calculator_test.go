package pricing_test

import (
	"math"
	"testing"

	"github.com/minebank/bank-service/internal/pricing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPrice_Formula(t *testing.T) {
	// base_rate 1, stock 1000, total 10000:
	// baseValue = 10, normalized = 100, price = 100*10/1000 = 1.
	got := pricing.Price(1, 1000, 10000)
	if !almostEqual(got, 1.0) {
		t.Fatalf("Price got=%v want=%v", got, 1.0)
	}
}

func TestPrice_EmptyStockUsesFloorOfOne(t *testing.T) {
	zero := pricing.Price(1, 0, 10000)
	one := pricing.Price(1, 1, 10000)
	if !almostEqual(zero, one) {
		t.Fatalf("Price at zero stock got=%v want=%v", zero, one)
	}
}

func TestPrice_Monotonicity(t *testing.T) {
	// More money in circulation raises the price.
	if pricing.Price(1, 1000, 20000) <= pricing.Price(1, 1000, 10000) {
		t.Fatalf("price did not rise with total dollars")
	}
	// More stock lowers the price.
	if pricing.Price(1, 2000, 10000) >= pricing.Price(1, 1000, 10000) {
		t.Fatalf("price did not fall with stock")
	}
}

func TestDepositEarned_CommissionApplied(t *testing.T) {
	// price=1, 100 units, 5% commission: 100*0.95.
	got := pricing.DepositEarned(1, 1000, 100, 10000)
	if !almostEqual(got, 95.0) {
		t.Fatalf("DepositEarned got=%v want=%v", got, 95.0)
	}
}

func TestWithdrawCost_TieredAboveFixedPrice(t *testing.T) {
	// Each successive unit is priced against a smaller stock, so the total
	// exceeds amount * pre-trade price.
	fixed := pricing.Price(1, 1000, 10000) * 100
	tiered := pricing.WithdrawCost(1, 1000, 100, 10000)
	if tiered <= fixed {
		t.Fatalf("tiered cost %v not above fixed-price cost %v", tiered, fixed)
	}
}

func TestWithdrawCost_StrictlyIncreasingAndConvex(t *testing.T) {
	prev := 0.0
	prevStep := 0.0
	for n := int64(1); n <= 50; n++ {
		cost := pricing.WithdrawCost(2, 200, n, 50000)
		if cost <= prev {
			t.Fatalf("cost not increasing at n=%d: %v <= %v", n, cost, prev)
		}
		step := cost - prev
		if n > 1 && step < prevStep {
			t.Fatalf("marginal cost decreasing at n=%d: %v < %v", n, step, prevStep)
		}
		prev, prevStep = cost, step
	}
}

func TestDepositAmountForMoney_RoundTrip(t *testing.T) {
	tests := []struct {
		baseRate float64
		amount   int64
		target   float64
		total    float64
	}{
		{1, 1000, 95, 10000},
		{1, 1000, 100, 10000},
		{8, 500, 33.3, 25000},
		{128, 4000, 7.5, 60000},
	}
	for _, tt := range tests {
		n, money := pricing.DepositAmountForMoney(tt.baseRate, tt.amount, tt.target, tt.total)
		if money < tt.target {
			t.Fatalf("amount-for-money(%v) earned=%v below target", tt.target, money)
		}
		if n > 1 {
			under := pricing.DepositEarned(tt.baseRate, tt.amount, n-1, tt.total)
			if under >= tt.target {
				t.Fatalf("n=%d not minimal: n-1 already earns %v >= %v", n, under, tt.target)
			}
		}
		got := pricing.DepositEarned(tt.baseRate, tt.amount, n, tt.total)
		if !almostEqual(got, money) {
			t.Fatalf("earned(n) got=%v want=%v", got, money)
		}
	}
}

func TestWithdrawAmountForMoney_MaximalWithinBudget(t *testing.T) {
	n, cost := pricing.WithdrawAmountForMoney(1, 1000, 50, 10000)
	if cost > 50 {
		t.Fatalf("cost %v exceeds budget", cost)
	}
	if n < 1 {
		t.Fatalf("expected at least one unit, got %d", n)
	}
	next := pricing.WithdrawCost(1, 1000, n+1, 10000)
	if next <= 50 && n+1 <= 1000 {
		t.Fatalf("n=%d not maximal: n+1 costs %v within budget", n, next)
	}
}

func TestWithdrawAmountForMoney_CappedByStock(t *testing.T) {
	n, _ := pricing.WithdrawAmountForMoney(1, 5, 1e9, 10000)
	if n != 5 {
		t.Fatalf("amount got=%d want=%d", n, 5)
	}
}
