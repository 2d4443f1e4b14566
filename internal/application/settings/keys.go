package settings

// Keys read by the core. Base rates are in percentage points, the way they are
// shown to players; the finance package converts them to fractions.
const (
	VehicleBaseRate = "vehicleBaseRate"
	LandBaseRate    = "landBaseRate"
	LeaseBaseRate   = "leaseBaseRate"

	EnableFinance    = "enableFinance"
	EnableLeasing    = "enableLeasing"
	EnableUsedSearch = "enableUsedSearch"

	EnableLocalSearch    = "enableLocalSearch"
	EnableRegionalSearch = "enableRegionalSearch"
	EnableNationalSearch = "enableNationalSearch"

	SearchFeeCreditScaling  = "searchFeeCreditScaling"
	SearchSuccessMultiplier = "searchSuccessMultiplier"
	ListingExpiryDays       = "listingExpiryDays"

	TradeInPercent      = "tradeInPercent"
	TradeInMinimumValue = "tradeInMinimumValue"
	BrandLoyaltyBonus   = "brandLoyaltyBonus"

	MissedPaymentsToDefault = "missedPaymentsToDefault"
	StartingCreditScore     = "startingCreditScore"
)

type valueKind int

const (
	kindFloat valueKind = iota
	kindInt
	kindBool
)

type definition struct {
	kind     valueKind
	def      any
	min, max float64
}

var definitions = map[string]definition{
	VehicleBaseRate: {kind: kindFloat, def: 4.5, min: 0, max: 20},
	LandBaseRate:    {kind: kindFloat, def: 3.5, min: 0, max: 20},
	LeaseBaseRate:   {kind: kindFloat, def: 5.5, min: 0, max: 20},

	EnableFinance:    {kind: kindBool, def: true},
	EnableLeasing:    {kind: kindBool, def: true},
	EnableUsedSearch: {kind: kindBool, def: true},

	EnableLocalSearch:    {kind: kindBool, def: true},
	EnableRegionalSearch: {kind: kindBool, def: true},
	EnableNationalSearch: {kind: kindBool, def: true},

	SearchFeeCreditScaling:  {kind: kindBool, def: true},
	SearchSuccessMultiplier: {kind: kindFloat, def: 1.0, min: 0.1, max: 3},
	ListingExpiryDays:       {kind: kindInt, def: 7, min: 1, max: 365},

	TradeInPercent:      {kind: kindFloat, def: 50.0, min: 30, max: 80},
	TradeInMinimumValue: {kind: kindFloat, def: 500.0, min: 0, max: 100000},
	BrandLoyaltyBonus:   {kind: kindFloat, def: 5.0, min: 0, max: 25},

	MissedPaymentsToDefault: {kind: kindInt, def: 3, min: 1, max: 12},
	StartingCreditScore:     {kind: kindInt, def: 650, min: 300, max: 850},
}

// Keys returns every known setting key.
func Keys() []string {
	out := make([]string, 0, len(definitions))
	for k := range definitions {
		out = append(out, k)
	}
	return out
}

// Preset names.
const (
	PresetEasy     = "easy"
	PresetBalanced = "balanced"
	PresetHardcore = "hardcore"
)

var presets = map[string]map[string]any{
	PresetEasy: {
		VehicleBaseRate:         3.0,
		LandBaseRate:            2.5,
		LeaseBaseRate:           4.0,
		TradeInPercent:          60.0,
		SearchSuccessMultiplier: 1.2,
		MissedPaymentsToDefault: 5,
	},
	PresetBalanced: {
		VehicleBaseRate:         4.5,
		LandBaseRate:            3.5,
		LeaseBaseRate:           5.5,
		TradeInPercent:          50.0,
		SearchSuccessMultiplier: 1.0,
		MissedPaymentsToDefault: 3,
	},
	PresetHardcore: {
		VehicleBaseRate:         6.5,
		LandBaseRate:            5.0,
		LeaseBaseRate:           7.5,
		TradeInPercent:          40.0,
		SearchSuccessMultiplier: 0.8,
		MissedPaymentsToDefault: 2,
	},
}
