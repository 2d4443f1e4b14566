// Package reliability synthesizes the hidden per-vehicle reliability scores
// attached to used listings.
package reliability

import (
	"math"
	"math/rand"

	"usedplus-economy/internal/domain"
)

const (
	minScore = 0.1
	maxScore = 1.0

	// Age and hours saturate at these values when scoring.
	ageHorizonMonths = 240
	hoursHorizon     = 12000
)

// Generator derives reliability from condition plus a random DNA draw.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// DNA draws the workhorse/lemon scalar. Positive bias shifts it towards
// workhorse, negative towards lemon. The result is always in [0,1].
func (g *Generator) DNA(bias float64) float64 {
	v := g.rnd.Float64() + bias
	return clamp(v, 0, 1)
}

// Generate scores engine, hydraulic and electrical systems. Damage hurts
// everything, hours hit the engine, wear hits hydraulics, age hits electrics.
func (g *Generator) Generate(c domain.Condition, dna float64) domain.Reliability {
	age := math.Min(1, float64(c.AgeMonths)/ageHorizonMonths)
	hours := math.Min(1, c.OperatingHours/hoursHorizon)
	base := 1 - 0.35*c.Damage - 0.10*age - 0.10*hours + 0.30*(dna-0.5)

	return domain.Reliability{
		Engine:     clamp(base-0.15*hours+g.jitter(), minScore, maxScore),
		Hydraulic:  clamp(base-0.15*c.Wear+g.jitter(), minScore, maxScore),
		Electrical: clamp(base-0.15*age+g.jitter(), minScore, maxScore),
		DNA:        clamp(dna, 0, 1),
	}
}

func (g *Generator) jitter() float64 {
	return (g.rnd.Float64() - 0.5) * 0.1
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
