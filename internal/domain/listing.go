package domain

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingSold      ListingStatus = "sold"
	ListingExpired   ListingStatus = "expired"
)

// Condition is the synthesized wear state of a used vehicle.
type Condition struct {
	AgeMonths      int     `json:"age_months"`
	OperatingHours float64 `json:"operating_hours"`
	Damage         float64 `json:"damage"`
	Wear           float64 `json:"wear"`
}

// Reliability holds the hidden per-vehicle scores. DNA is the workhorse/lemon
// scalar in [0,1]; 1 is a workhorse.
type Reliability struct {
	Engine     float64 `json:"engine"`
	Hydraulic  float64 `json:"hydraulic"`
	Electrical float64 `json:"electrical"`
	DNA        float64 `json:"dna"`
}

// NeutralReliability is used when no reliability generator is available.
var NeutralReliability = Reliability{Engine: 1, Hydraulic: 1, Electrical: 1, DNA: 0.5}

func (r Reliability) Average() float64 {
	return (r.Engine + r.Hydraulic + r.Electrical) / 3
}

// Listing is a synthesized used-vehicle offer produced by a successful roll.
type Listing struct {
	ID               int64             `json:"id"`
	FarmID           int               `json:"farm_id"`
	SearchID         int64             `json:"search_id"`
	StoreKey         string            `json:"store_key"`
	Name             string            `json:"name"`
	Brand            string            `json:"brand"`
	Quality          QualityPreference `json:"quality"`
	Configuration    map[string]int    `json:"configuration"`
	Condition        Condition         `json:"condition"`
	Reliability      Reliability       `json:"-"`
	BasePrice        float64           `json:"base_price"`
	CommissionAmount float64           `json:"commission_amount"`
	AskingPrice      float64           `json:"asking_price"`
	Status           ListingStatus     `json:"status"`
	FoundDay         int               `json:"found_day"`
	// ExpiresDay is set once the parent search has ended; 0 means the
	// listing lives as long as its search.
	ExpiresDay int `json:"expires_day,omitempty"`
}

// SetPrice keeps AskingPrice = BasePrice + CommissionAmount.
func (l *Listing) SetPrice(base, commission float64) {
	l.BasePrice = base
	l.CommissionAmount = commission
	l.AskingPrice = base + commission
}

func (l *Listing) IsAvailable() bool { return l != nil && l.Status == ListingAvailable }

func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	if l.Configuration != nil {
		c.Configuration = make(map[string]int, len(l.Configuration))
		for k, v := range l.Configuration {
			c.Configuration[k] = v
		}
	}
	return &c
}
