package finance

import "math"

// MaxLeaseDepreciation caps total depreciation; the residual never drops
// below 25% of the price.
const MaxLeaseDepreciation = 0.75

// LeaseTerminationRate is the share of the outstanding obligation charged
// when a lease is ended early.
const LeaseTerminationRate = 0.5

// monthlyDepreciation is the share of the price lost in the given month of
// ownership (0-based).
func monthlyDepreciation(month int) float64 {
	switch {
	case month < 12:
		return 0.015
	case month < 36:
		return 0.010
	default:
		return 0.006
	}
}

// ResidualValue accumulates depreciation month by month over termMonths. A
// fractional final month depreciates proportionally.
func ResidualValue(price, termMonths float64) float64 {
	if price <= 0 {
		return 0
	}
	if termMonths <= 0 {
		return price
	}
	depreciation := 0.0
	for m := 0; float64(m) < termMonths; m++ {
		portion := math.Min(1, termMonths-float64(m))
		depreciation += price * monthlyDepreciation(m) * portion
	}
	depreciation = math.Min(depreciation, price*MaxLeaseDepreciation)
	return price - depreciation
}

// LeasePayment is the depreciation part (price − residual)/n plus the money
// factor part ((price + residual)/2)·(rate/12), rounded up.
func LeasePayment(price, residual float64, termMonths int, annualRate float64) float64 {
	if price <= 0 || termMonths <= 0 {
		return 0
	}
	depreciation := (price - residual) / float64(termMonths)
	interest := ((price + residual) / 2) * (annualRate / MonthsPerYear)
	return ceilMoney(depreciation + interest)
}

// LeaseTerminationFee is 50% of the remaining scheduled payments plus residual.
func LeaseTerminationFee(remainingPayments int, monthlyPayment, residual float64) float64 {
	if remainingPayments < 0 {
		remainingPayments = 0
	}
	return LeaseTerminationRate * (float64(remainingPayments)*monthlyPayment + residual)
}
