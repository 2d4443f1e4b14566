package search

import (
	"math"

	"usedplus-economy/internal/domain"
)

const (
	msPerHour       = 3600 * 1000
	dirtDamageBonus = 0.2
)

// ApplyCondition copies a listing's condition onto a spawned instance.
// Properties the target has no handler for are skipped. Each instance is
// conditioned at most once; it reports whether anything was applied.
func (m *Manager) ApplyCondition(l *domain.Listing, t domain.ConditionTarget) bool {
	if t.InstanceID != "" {
		if _, done := m.conditioned[t.InstanceID]; done {
			return false
		}
		m.conditioned[t.InstanceID] = struct{}{}
	}

	c := l.Condition
	if t.SetDamage != nil {
		t.SetDamage(c.Damage)
	}
	if t.SetWear != nil {
		t.SetWear(c.Wear)
	}
	if t.SetOperatingTime != nil {
		t.SetOperatingTime(c.OperatingHours * msPerHour)
	}
	if t.SetAge != nil {
		t.SetAge(c.AgeMonths)
	}
	if t.SetDirt != nil {
		t.SetDirt(m.dirtFor(l))
	}
	if t.SetReliability != nil {
		t.SetReliability(l.Reliability)
	}
	return true
}

// dirtFor: lower quality means a wider, dirtier range, plus a little extra
// for damaged machines.
func (m *Manager) dirtFor(l *domain.Listing) float64 {
	q, ok := qualities[l.Quality]
	if !ok {
		q = qualities[domain.QualityAny]
	}
	d := q.Dirt.pick(m.rnd) + l.Condition.Damage*dirtDamageBonus
	return math.Max(0, math.Min(1, d))
}
