package service

import "github.com/shopspring/decimal"

var (
	incrementRate = decimal.NewFromFloat(0.05)
	alignEpsilon  = decimal.NewFromFloat(0.001)
)

const (
	reasonNotHigher   = "amount not higher than current highest"
	reasonMisaligned  = "amount is not a valid bid increment"
	reasonNonPositive = "amount must be positive"
)

// BidCheck is the outcome of ValidateBid.
type BidCheck struct {
	Valid     bool
	Reason    string
	Increment decimal.Decimal
	// NextValid is the smallest aligned amount at or above the proposal
	// (and above currentHighest) when the bid is rejected.
	NextValid decimal.Decimal
}

// MinimumIncrement is ceil(startingPrice * 5%), never less than one unit.
func MinimumIncrement(startingPrice decimal.Decimal) decimal.Decimal {
	inc := startingPrice.Mul(incrementRate).Ceil()
	if inc.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return inc
}

// NextValidAmount is the lowest aligned amount strictly above currentHighest.
func NextValidAmount(startingPrice, currentHighest decimal.Decimal) decimal.Decimal {
	inc := MinimumIncrement(startingPrice)
	if currentHighest.LessThan(startingPrice) {
		return startingPrice
	}
	steps := currentHighest.Sub(startingPrice).Div(inc).Floor().Add(decimal.NewFromInt(1))
	return startingPrice.Add(steps.Mul(inc))
}

// ValidateBid accepts proposed iff it is above currentHighest and lies on the
// startingPrice + k*increment grid. It has no side effects.
func ValidateBid(startingPrice, currentHighest, proposed decimal.Decimal) BidCheck {
	inc := MinimumIncrement(startingPrice)
	check := BidCheck{Increment: inc}

	if !proposed.IsPositive() {
		check.Reason = reasonNonPositive
		check.NextValid = NextValidAmount(startingPrice, currentHighest)
		return check
	}
	if proposed.LessThanOrEqual(currentHighest) {
		check.Reason = reasonNotHigher
		check.NextValid = NextValidAmount(startingPrice, currentHighest)
		return check
	}

	offset := proposed.Sub(startingPrice)
	steps := offset.Div(inc).Floor()
	if steps.IsNegative() {
		steps = decimal.Zero
	}
	aligned := startingPrice.Add(steps.Mul(inc))
	if proposed.Sub(aligned).Abs().LessThanOrEqual(alignEpsilon) {
		check.Valid = true
		return check
	}

	up := offset.Div(inc).Ceil()
	if up.IsNegative() {
		up = decimal.Zero
	}
	check.Reason = reasonMisaligned
	check.NextValid = startingPrice.Add(up.Mul(inc))
	return check
}
