package search

import (
	"math/rand"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/domain"
)

// TierParams are the fixed parameters of a search tier.
type TierParams struct {
	RetainerPercent    float64
	MinRetainer        float64
	SuccessProbability float64
	MaxMonths          int
	MaxListings        int
	CommissionPercent  float64
	// Toggle is the settings key that enables the tier.
	Toggle string
}

var DefaultTiers = map[domain.SearchTier]TierParams{
	domain.TierLocal: {
		RetainerPercent: 0.5, MinRetainer: 250, SuccessProbability: 0.60,
		MaxMonths: 1, MaxListings: 1, CommissionPercent: 8,
		Toggle: settings.EnableLocalSearch,
	},
	domain.TierRegional: {
		RetainerPercent: 1.0, MinRetainer: 250, SuccessProbability: 0.75,
		MaxMonths: 3, MaxListings: 3, CommissionPercent: 10,
		Toggle: settings.EnableRegionalSearch,
	},
	domain.TierNational: {
		RetainerPercent: 2.0, MinRetainer: 250, SuccessProbability: 0.90,
		MaxMonths: 6, MaxListings: 5, CommissionPercent: 12,
		Toggle: settings.EnableNationalSearch,
	},
}

// Range is a closed interval sampled uniformly.
type Range struct {
	Min, Max float64
}

func (r Range) pick(rnd *rand.Rand) float64 {
	return r.Min + rnd.Float64()*(r.Max-r.Min)
}

// QualityParams shape the listings a quality preference produces.
type QualityParams struct {
	AgeYears        Range
	Hours           Range
	Damage          Range
	Wear            Range
	PriceMultiplier Range
	SuccessModifier float64
	DNABias         float64
	Dirt            Range
}

var qualities = map[domain.QualityPreference]QualityParams{
	domain.QualityAny: {
		AgeYears: Range{1, 15}, Hours: Range{200, 8000},
		Damage: Range{0, 0.5}, Wear: Range{0, 0.6},
		PriceMultiplier: Range{0.35, 0.85},
		SuccessModifier: 1.0, DNABias: 0,
		Dirt: Range{0.1, 0.7},
	},
	domain.QualityPoor: {
		AgeYears: Range{10, 20}, Hours: Range{5000, 12000},
		Damage: Range{0.3, 0.6}, Wear: Range{0.4, 0.8},
		PriceMultiplier: Range{0.25, 0.45},
		SuccessModifier: 1.1, DNABias: -0.15,
		Dirt: Range{0.5, 0.9},
	},
	domain.QualityFair: {
		AgeYears: Range{5, 12}, Hours: Range{2500, 6000},
		Damage: Range{0.15, 0.35}, Wear: Range{0.2, 0.5},
		PriceMultiplier: Range{0.45, 0.65},
		SuccessModifier: 1.0, DNABias: -0.05,
		Dirt: Range{0.3, 0.7},
	},
	domain.QualityGood: {
		AgeYears: Range{2, 6}, Hours: Range{800, 3000},
		Damage: Range{0.05, 0.15}, Wear: Range{0.05, 0.25},
		PriceMultiplier: Range{0.65, 0.80},
		SuccessModifier: 0.9, DNABias: 0.05,
		Dirt: Range{0.1, 0.4},
	},
	domain.QualityExcellent: {
		AgeYears: Range{0.5, 2}, Hours: Range{50, 800},
		Damage: Range{0, 0.05}, Wear: Range{0, 0.08},
		PriceMultiplier: Range{0.80, 0.92},
		SuccessModifier: 0.75, DNABias: 0.15,
		Dirt: Range{0, 0.15},
	},
}

// Quality returns the parameters of a quality preference.
func Quality(q domain.QualityPreference) (QualityParams, bool) {
	p, ok := qualities[q]
	return p, ok
}

const (
	minMonthlyProbability = 0.05
	maxMonthlyProbability = 0.95
)
