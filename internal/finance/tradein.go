package finance

import "math"

// Trade-in percentage window and modifier bounds.
const (
	TradeInSpread       = 7.5
	TradeInFloorPercent = 30.0
	TradeInCeilPercent  = 80.0

	minConditionMultiplier = 0.70
	minMaintenanceModifier = 0.85
	maxMaintenanceModifier = 1.10
)

// RandomSource is satisfied by *rand.Rand.
type RandomSource interface {
	Float64() float64
}

// MaintenanceHistory is the optional reliability record of a traded vehicle.
type MaintenanceHistory struct {
	Engine        float64 `json:"engine"`
	Hydraulic     float64 `json:"hydraulic"`
	Electrical    float64 `json:"electrical"`
	FailureCount  int     `json:"failure_count"`
	RepairCount   int     `json:"repair_count"`
	PurchasedUsed bool    `json:"purchased_used"`
	WasInspected  bool    `json:"was_inspected"`
}

func (h MaintenanceHistory) AverageReliability() float64 {
	return (h.Engine + h.Hydraulic + h.Electrical) / 3
}

// TradeInInput describes the vehicle being traded.
type TradeInInput struct {
	ResalePrice    float64
	Damage         float64
	Wear           float64
	OperatingHours float64
	Brand          string
	TargetBrand    string
	History        *MaintenanceHistory
}

// TradeInParams are the settings-driven knobs.
type TradeInParams struct {
	CenterPercent     float64
	MinimumValue      float64
	BrandBonusPercent float64
}

var DefaultTradeInParams = TradeInParams{CenterPercent: 50, MinimumValue: 500, BrandBonusPercent: 5}

// TradeInQuote shows how the value was derived.
type TradeInQuote struct {
	BasePercent         float64 `json:"base_percent"`
	ConditionMultiplier float64 `json:"condition_multiplier"`
	MaintenanceModifier float64 `json:"maintenance_modifier"`
	BrandBonus          float64 `json:"brand_bonus"`
	RawValue            float64 `json:"raw_value"`
	Value               float64 `json:"value"`
}

// TradeInWindow is the [min, max] percentage the base percent is drawn from.
func TradeInWindow(center float64) (lo, hi float64) {
	lo = math.Max(TradeInFloorPercent, center-TradeInSpread)
	hi = math.Min(TradeInCeilPercent, center+TradeInSpread)
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// ConditionMultiplier penalises damage twice as hard as wear.
func ConditionMultiplier(damage, wear float64) float64 {
	damage = clamp(damage, 0, 1)
	wear = clamp(wear, 0, 1)
	return clamp((1-damage*0.20)*(1-wear*0.10), minConditionMultiplier, 1.0)
}

// MaintenanceModifier is 1.0 without history.
func MaintenanceModifier(h *MaintenanceHistory) float64 {
	if h == nil {
		return 1.0
	}
	mod := 1.0
	avg := h.AverageReliability()
	switch {
	case avg >= 0.8:
		mod += 0.10 * math.Min(1, (avg-0.8)/0.2)
	case avg < 0.5:
		mod -= 0.09 * math.Min(1, (0.5-avg)/0.5)
	}
	mod -= math.Min(0.10, 0.01*float64(h.FailureCount))
	mod += math.Min(0.05, 0.005*float64(h.RepairCount))
	if h.PurchasedUsed {
		mod -= 0.02
	}
	if h.WasInspected {
		mod += 0.02
	}
	return clamp(mod, minMaintenanceModifier, maxMaintenanceModifier)
}

// TradeInValue computes the disposal value offered against a new purchase.
func TradeInValue(in TradeInInput, p TradeInParams, rnd RandomSource) TradeInQuote {
	lo, hi := TradeInWindow(p.CenterPercent)
	q := TradeInQuote{
		BasePercent:         lo + rnd.Float64()*(hi-lo),
		ConditionMultiplier: ConditionMultiplier(in.Damage, in.Wear),
		MaintenanceModifier: MaintenanceModifier(in.History),
	}
	q.RawValue = q.BasePercent / 100 * q.ConditionMultiplier * q.MaintenanceModifier * in.ResalePrice
	if in.Brand != "" && in.Brand == in.TargetBrand {
		q.BrandBonus = in.ResalePrice * p.BrandBonusPercent / 100
	}
	q.Value = floorHundreds(math.Max(p.MinimumValue, q.RawValue) + q.BrandBonus)
	return q
}

func floorHundreds(v float64) float64 {
	return math.Floor(v/100) * 100
}
