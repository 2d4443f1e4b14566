package finance

import (
	"errors"
	"fmt"
)

// Kind is the product being financed, for validation bounds.
type Kind string

const (
	KindVehicle Kind = "vehicle"
	KindLand    Kind = "land"
	KindLease   Kind = "lease"
)

// Category is a financing category with a minimum principal.
type Category string

const (
	CategoryVehicleFinance Category = "vehicle_finance"
	CategoryLandFinance    Category = "land_finance"
	CategoryLease          Category = "lease"
	CategoryCashLoan       Category = "cash_loan"
	CategoryRepair         Category = "repair_finance"
)

var minimumPrincipal = map[Category]float64{
	CategoryVehicleFinance: 2500,
	CategoryLandFinance:    10000,
	CategoryLease:          5000,
	CategoryCashLoan:       1000,
	CategoryRepair:         500,
}

type bounds struct {
	maxDownPayment float64
	minYears       int
	maxYears       int
}

var kindBounds = map[Kind]bounds{
	KindVehicle: {maxDownPayment: 0.50, minYears: 1, maxYears: 20},
	KindLand:    {maxDownPayment: 0.40, minYears: 1, maxYears: 30},
	KindLease:   {maxDownPayment: 0.20, minYears: 1, maxYears: 5},
}

// Validation is a pass/fail flag with a human-readable reason. Callers must
// not proceed when OK is false.
type Validation struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

var passed = Validation{OK: true}

func failed(format string, args ...any) Validation {
	return Validation{Reason: fmt.Sprintf(format, args...)}
}

// Err returns nil for a passing validation.
func (v Validation) Err() error {
	if v.OK {
		return nil
	}
	return errors.New(v.Reason)
}

func ValidatePrice(price float64) Validation {
	if price <= 0 {
		return failed("price must be greater than zero")
	}
	return passed
}

func ValidateDownPayment(kind Kind, pct float64) Validation {
	b, ok := kindBounds[kind]
	if !ok {
		return failed("unknown finance kind %q", kind)
	}
	if pct < 0 {
		return failed("down payment cannot be negative")
	}
	if pct > b.maxDownPayment {
		return failed("down payment cannot exceed %.0f%% for %s", b.maxDownPayment*100, kind)
	}
	return passed
}

func ValidateTerm(kind Kind, termMonths int) Validation {
	b, ok := kindBounds[kind]
	if !ok {
		return failed("unknown finance kind %q", kind)
	}
	if termMonths < b.minYears*MonthsPerYear || termMonths > b.maxYears*MonthsPerYear {
		return failed("term must be between %d and %d years for %s", b.minYears, b.maxYears, kind)
	}
	return passed
}

func MinimumPrincipal(c Category) (float64, bool) {
	v, ok := minimumPrincipal[c]
	return v, ok
}

// ValidatePrincipal rejects amounts below the category's minimum.
func ValidatePrincipal(c Category, amount float64) Validation {
	min, ok := minimumPrincipal[c]
	if !ok {
		return failed("unknown financing category %q", c)
	}
	if amount < min {
		return failed("amount %.0f is below the %.0f minimum for %s", amount, min, c)
	}
	return passed
}

// ValidateDeal runs price, down payment and term checks in order and returns
// the first failure.
func ValidateDeal(kind Kind, price, downPaymentPct float64, termMonths int) Validation {
	for _, v := range []Validation{
		ValidatePrice(price),
		ValidateDownPayment(kind, downPaymentPct),
		ValidateTerm(kind, termMonths),
	} {
		if !v.OK {
			return v
		}
	}
	return passed
}
