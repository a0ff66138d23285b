package pricing

// Resource pricing for the game economy. The unit price of a resource is
// derived from the total money supply (bank capital plus all client
// balances) and the bank's remaining stock: more money in circulation means
// higher prices, more stock means lower prices. BaseRate is the per-resource
// exchange constant ("1 diamond = N units").

const (
	// BaseDiamondPrice is the reference price of one diamond at a
	// normalized money supply.
	BaseDiamondPrice = 10.0

	// MarketNormalization divides the total money supply before it enters
	// the price formula.
	MarketNormalization = 100.0

	// DepositCommission is deducted from gross proceeds on
	// resource-deposit trades. Withdrawals carry no commission.
	DepositCommission = 0.05

	// MaxSearchAmount caps the inverse-quote searches.
	MaxSearchAmount = 100000
)

// baseValue converts a resource's exchange rate into its diamond-relative
// unit value.
func baseValue(baseRate float64) float64 {
	return (1 / baseRate) * BaseDiamondPrice
}

// Price returns the current unit price of a resource given its remaining
// stock and the total money supply.
func Price(baseRate float64, amount int64, totalDollars float64) float64 {
	den := amount
	if den < 1 {
		den = 1
	}
	normalized := totalDollars / MarketNormalization
	return normalized * baseValue(baseRate) / float64(den)
}

// DepositEarned returns the money a client receives for depositing
// addAmount units, at the price fixed before the trade, minus commission.
func DepositEarned(baseRate float64, amount, addAmount int64, totalDollars float64) float64 {
	earned := Price(baseRate, amount, totalDollars) * float64(addAmount)
	return earned * (1 - DepositCommission)
}

// WithdrawCost returns the cost of buying withdrawAmount units out of the
// vault. Each successive unit is priced against the stock remaining after
// the previous one, so the cost curve steepens as the vault empties.
func WithdrawCost(baseRate float64, amount, withdrawAmount int64, totalDollars float64) float64 {
	normalized := totalDollars / MarketNormalization
	value := baseValue(baseRate)
	var cost float64
	for i := int64(0); i < withdrawAmount; i++ {
		den := amount - i
		if den < 1 {
			den = 1
		}
		cost += normalized * value / float64(den)
	}
	return cost
}

// DepositAmountForMoney returns the smallest number of units a client must
// deposit to net at least targetMoney after commission, and the money that
// amount actually earns. The search stops at MaxSearchAmount.
func DepositAmountForMoney(baseRate float64, amount int64, targetMoney, totalDollars float64) (int64, float64) {
	var n int64
	var money float64
	for money < targetMoney {
		n++
		money = DepositEarned(baseRate, amount, n, totalDollars)
		if n > MaxSearchAmount {
			break
		}
	}
	return n, money
}

// WithdrawAmountForMoney returns the largest number of units purchasable
// with availableMoney under the tiered curve, bounded by the vault stock,
// and the cost of that amount.
func WithdrawAmountForMoney(baseRate float64, amount int64, availableMoney, totalDollars float64) (int64, float64) {
	var n int64
	for {
		n++
		cost := WithdrawCost(baseRate, amount, n, totalDollars)
		if cost > availableMoney || n > amount || n > MaxSearchAmount {
			n--
			break
		}
	}
	return n, WithdrawCost(baseRate, amount, n, totalDollars)
}
