// Package finance holds the deterministic money math of the economy: interest
// rate selection, amortization, lease depreciation, payoff and deposit rules,
// validation and trade-in valuation. Rates are annual decimal fractions
// (0.045 is 4.5%); the rate tables below are authored in percentage points.
package finance

import (
	"fmt"
	"math"
)

// Profile selects one of the three interest rate tables.
type Profile string

const (
	ProfileVehicle Profile = "vehicle"
	ProfileLand    Profile = "land"
	ProfileLease   Profile = "lease"
)

// CreditStep applies Points when score >= MinScore. Steps are ordered from the
// highest MinScore down; the last step should have MinScore 0.
type CreditStep struct {
	MinScore int
	Points   float64
}

// TermStep applies Points when term <= MaxMonths. MaxMonths 0 is unbounded.
type TermStep struct {
	MaxMonths int
	Points    float64
}

// DownPaymentStep applies Points when the down payment fraction is below Below.
// Below 0 is unbounded.
type DownPaymentStep struct {
	Below  float64
	Points float64
}

// RateTable is one interest profile, in percentage points.
type RateTable struct {
	BasePercent float64
	MinPercent  float64
	MaxPercent  float64
	Credit      []CreditStep
	Term        []TermStep
	DownPayment []DownPaymentStep
}

var vehicleRates = RateTable{
	BasePercent: 4.5,
	MinPercent:  2.0,
	MaxPercent:  15.0,
	Credit: []CreditStep{
		{MinScore: 750, Points: -1.0},
		{MinScore: 700, Points: 0},
		{MinScore: 650, Points: 1.5},
		{MinScore: 600, Points: 3.0},
		{MinScore: 0, Points: 5.0},
	},
	Term: []TermStep{
		{MaxMonths: 60, Points: 0},
		{MaxMonths: 120, Points: 0.5},
		{MaxMonths: 180, Points: 1.0},
		{MaxMonths: 0, Points: 1.5},
	},
	DownPayment: []DownPaymentStep{
		{Below: 0.10, Points: 1.0},
		{Below: 0.25, Points: 0},
		{Below: 0.40, Points: -0.25},
		{Below: 0, Points: -0.5},
	},
}

var landRates = RateTable{
	BasePercent: 3.5,
	MinPercent:  2.0,
	MaxPercent:  12.0,
	Credit: []CreditStep{
		{MinScore: 750, Points: -0.75},
		{MinScore: 700, Points: 0},
		{MinScore: 650, Points: 1.0},
		{MinScore: 600, Points: 2.0},
		{MinScore: 0, Points: 3.5},
	},
	Term: []TermStep{
		{MaxMonths: 120, Points: 0},
		{MaxMonths: 240, Points: 0.5},
		{MaxMonths: 0, Points: 1.0},
	},
	DownPayment: []DownPaymentStep{
		{Below: 0.10, Points: 1.0},
		{Below: 0.20, Points: 0.5},
		{Below: 0.30, Points: 0},
		{Below: 0, Points: -0.25},
	},
}

var leaseRates = RateTable{
	BasePercent: 5.5,
	MinPercent:  3.0,
	MaxPercent:  18.0,
	Credit: []CreditStep{
		{MinScore: 750, Points: -1.0},
		{MinScore: 700, Points: 0},
		{MinScore: 650, Points: 2.0},
		{MinScore: 600, Points: 4.0},
		{MinScore: 0, Points: 6.0},
	},
	Term: []TermStep{
		{MaxMonths: 24, Points: 0},
		{MaxMonths: 36, Points: 0.25},
		{MaxMonths: 48, Points: 0.5},
		{MaxMonths: 0, Points: 0.75},
	},
	DownPayment: []DownPaymentStep{
		{Below: 0.05, Points: 0.5},
		{Below: 0.10, Points: 0.25},
		{Below: 0, Points: 0},
	},
}

func VehicleRates() RateTable { return vehicleRates.clone() }

func LandRates() RateTable { return landRates.clone() }

func LeaseRates() RateTable { return leaseRates.clone() }

// Table returns a copy of the rate table for a profile.
func Table(p Profile) (RateTable, error) {
	switch p {
	case ProfileVehicle:
		return VehicleRates(), nil
	case ProfileLand:
		return LandRates(), nil
	case ProfileLease:
		return LeaseRates(), nil
	}
	return RateTable{}, fmt.Errorf("finance: unknown rate profile %q", p)
}

// clone copies the step slices so callers cannot edit the shared tables.
func (t RateTable) clone() RateTable {
	t.Credit = append([]CreditStep(nil), t.Credit...)
	t.Term = append([]TermStep(nil), t.Term...)
	t.DownPayment = append([]DownPaymentStep(nil), t.DownPayment...)
	return t
}

// WithBase returns a copy of the table with a different base rate, used when
// the base is overridden through settings.
func (t RateTable) WithBase(percent float64) RateTable {
	t.BasePercent = percent
	return t
}

func (t RateTable) CreditAdjustment(score int) float64 {
	for _, s := range t.Credit {
		if score >= s.MinScore {
			return s.Points
		}
	}
	return 0
}

func (t RateTable) TermAdjustment(termMonths int) float64 {
	for _, s := range t.Term {
		if s.MaxMonths == 0 || termMonths <= s.MaxMonths {
			return s.Points
		}
	}
	return 0
}

func (t RateTable) DownPaymentAdjustment(pct float64) float64 {
	for _, s := range t.DownPayment {
		if s.Below == 0 || pct < s.Below {
			return s.Points
		}
	}
	return 0
}

// Rate is clamp(base + credit + term + down, min, max) as an annual decimal.
func (t RateTable) Rate(score, termMonths int, downPaymentPct float64) float64 {
	points := t.BasePercent +
		t.CreditAdjustment(score) +
		t.TermAdjustment(termMonths) +
		t.DownPaymentAdjustment(downPaymentPct)
	return clamp(points, t.MinPercent, t.MaxPercent) / 100
}

func InterestRate(p Profile, score, termMonths int, downPaymentPct float64) (float64, error) {
	t, err := Table(p)
	if err != nil {
		return 0, err
	}
	return t.Rate(score, termMonths, downPaymentPct), nil
}

func VehicleInterestRate(score, termMonths int, downPaymentPct float64) float64 {
	return vehicleRates.Rate(score, termMonths, downPaymentPct)
}

func LandInterestRate(score, termMonths int, downPaymentPct float64) float64 {
	return landRates.Rate(score, termMonths, downPaymentPct)
}

func LeaseInterestRate(score, termMonths int, downPaymentPct float64) float64 {
	return leaseRates.Rate(score, termMonths, downPaymentPct)
}

// Percent converts a decimal rate for display.
func Percent(rate float64) float64 {
	return math.Round(rate*100*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
