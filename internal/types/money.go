package types

import "github.com/shopspring/decimal"

// AmountPrecision is the number of fractional digits monetary amounts carry.
// All contract, accrual and invoice amounts round to this precision.
const AmountPrecision = 2

// Epsilon is the tolerance used when comparing monetary amounts, per
// spec.md's "all comparisons use an explicit epsilon <= 0.01".
var Epsilon = decimal.NewFromFloat(0.01)

// RoundAmount rounds a monetary amount to AmountPrecision using banker-free
// half-up rounding, matching shopspring/decimal's default Round behavior.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPrecision)
}

// AmountEqual reports whether two monetary amounts are equal within Epsilon.
func AmountEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// AmountIsZero reports whether an amount is zero within Epsilon.
func AmountIsZero(a decimal.Decimal) bool {
	return a.Abs().LessThanOrEqual(Epsilon)
}

// AmountLessThanOrEqualZero reports whether a <= 0 within Epsilon, i.e. the
// amount is exhausted or would go negative.
func AmountLessThanOrEqualZero(a decimal.Decimal) bool {
	return a.LessThanOrEqual(Epsilon.Neg()) || AmountIsZero(a)
}

// Portion is a value in [0, 1] representing a proportional allocation.
type Portion = decimal.Decimal

// ClampPortion clamps a portion into [0, 1].
func ClampPortion(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return p
}
