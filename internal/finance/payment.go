package finance

import "math"

// MonthsPerYear converts annual rates and year-based terms.
const MonthsPerYear = 12

// zeroRate is the monthly rate below which the annuity formula degenerates.
const zeroRate = 1e-9

// MonthlyPayment is the annuity payment M = P·r(1+r)^n / ((1+r)^n − 1) with
// r = annualRate/12, rounded up to the next whole unit. At a zero rate the
// payment is exactly P/n.
func MonthlyPayment(principal, annualRate float64, termMonths int) float64 {
	if principal <= 0 || termMonths <= 0 {
		return 0
	}
	n := float64(termMonths)
	r := annualRate / MonthsPerYear
	if math.Abs(r) < zeroRate {
		return principal / n
	}
	f := math.Pow(1+r, n)
	return ceilMoney(principal * r * f / (f - 1))
}

// TotalInterest is payment·n − principal, floored at zero.
func TotalInterest(payment float64, termMonths int, principal float64) float64 {
	return math.Max(0, payment*float64(termMonths)-principal)
}

// ScheduleRow is one month of an amortization schedule.
type ScheduleRow struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Balance   float64 `json:"balance"`
}

// AmortizationSchedule splits every payment into interest and principal. The
// last row absorbs rounding so the balance ends at zero.
func AmortizationSchedule(principal, annualRate float64, termMonths int) []ScheduleRow {
	payment := MonthlyPayment(principal, annualRate, termMonths)
	if payment == 0 {
		return nil
	}
	r := annualRate / MonthsPerYear
	balance := principal
	rows := make([]ScheduleRow, 0, termMonths)
	for m := 1; m <= termMonths && balance > 0; m++ {
		interest := roundCents(balance * r)
		pay := payment
		if m == termMonths || pay > balance+interest {
			pay = roundCents(balance + interest)
		}
		toPrincipal := pay - interest
		balance = math.Max(0, roundCents(balance-toPrincipal))
		rows = append(rows, ScheduleRow{
			Month:     m,
			Payment:   pay,
			Interest:  interest,
			Principal: toPrincipal,
			Balance:   balance,
		})
	}
	return rows
}

// Prepayment penalty rates for an early payoff.
const (
	ShortPayoffPenalty = 0.01
	LongPayoffPenalty  = 0.02
	shortPayoffMonths  = 12
)

// Payoff returns the amount due to close a deal early and the penalty part.
func Payoff(balance float64, remainingMonths int) (payoff, penalty float64) {
	if balance <= 0 {
		return 0, 0
	}
	rate := LongPayoffPenalty
	if remainingMonths <= shortPayoffMonths {
		rate = ShortPayoffPenalty
	}
	penalty = roundCents(balance * rate)
	return balance + penalty, penalty
}

func ceilMoney(v float64) float64 {
	return math.Ceil(v - 1e-9)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
