package domain

import (
	"errors"
	"fmt"
)

type SearchStatus string

const (
	SearchActive    SearchStatus = "active"
	SearchCompleted SearchStatus = "completed"
	SearchCancelled SearchStatus = "cancelled"
)

type SearchTier string

const (
	TierLocal    SearchTier = "local"
	TierRegional SearchTier = "regional"
	TierNational SearchTier = "national"
)

type QualityPreference string

const (
	QualityAny       QualityPreference = "any"
	QualityPoor      QualityPreference = "poor"
	QualityFair      QualityPreference = "fair"
	QualityGood      QualityPreference = "good"
	QualityExcellent QualityPreference = "excellent"
)

var ErrSearchNotActive = errors.New("search is not active")

// ItemRef points at a purchasable catalog entry.
type ItemRef struct {
	StoreKey  string  `json:"store_key"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	BasePrice float64 `json:"base_price"`
}

// Search is one outstanding "find me a used X" request owned by a farm.
type Search struct {
	ID                        int64             `json:"id"`
	FarmID                    int               `json:"farm_id"`
	Item                      ItemRef           `json:"item"`
	Tier                      SearchTier        `json:"tier"`
	Quality                   QualityPreference `json:"quality"`
	RequestedConfig           map[string]int    `json:"requested_config,omitempty"`
	Status                    SearchStatus      `json:"status"`
	MonthsElapsed             int               `json:"months_elapsed"`
	MaxMonths                 int               `json:"max_months"`
	MonthlySuccessProbability float64           `json:"monthly_success_probability"`
	MaxListings               int               `json:"max_listings"`
	FoundListings             []int64           `json:"found_listings"`
	CommissionPercent         float64           `json:"commission_percent"`
	RetainerFee               float64           `json:"retainer_fee"`
	CreatedDay                int               `json:"created_day"`
}

func (s *Search) IsActive() bool { return s != nil && s.Status == SearchActive }

// ListingCapReached reports whether the portfolio is full.
func (s *Search) ListingCapReached() bool {
	return len(s.FoundListings) >= s.MaxListings
}

// MonthsCapReached reports whether the search has run out of time.
func (s *Search) MonthsCapReached() bool {
	return s.MonthsElapsed >= s.MaxMonths
}

// AddListing appends a listing id, refusing to exceed MaxListings.
func (s *Search) AddListing(id int64) error {
	if !s.IsActive() {
		return fmt.Errorf("search %d: %w", s.ID, ErrSearchNotActive)
	}
	if s.ListingCapReached() {
		return fmt.Errorf("search %d: listing cap %d reached", s.ID, s.MaxListings)
	}
	s.FoundListings = append(s.FoundListings, id)
	return nil
}

// AdvanceMonth bumps the elapsed counter without passing MaxMonths.
func (s *Search) AdvanceMonth() error {
	if !s.IsActive() {
		return fmt.Errorf("search %d: %w", s.ID, ErrSearchNotActive)
	}
	if s.MonthsElapsed < s.MaxMonths {
		s.MonthsElapsed++
	}
	return nil
}

func (s *Search) Complete() error {
	if !s.IsActive() {
		return fmt.Errorf("search %d: %w", s.ID, ErrSearchNotActive)
	}
	s.Status = SearchCompleted
	return nil
}

func (s *Search) Cancel() error {
	if !s.IsActive() {
		return fmt.Errorf("search %d: %w", s.ID, ErrSearchNotActive)
	}
	s.Status = SearchCancelled
	return nil
}

// Clone returns a deep copy safe to hand to followers.
func (s *Search) Clone() *Search {
	if s == nil {
		return nil
	}
	c := *s
	c.FoundListings = append([]int64(nil), s.FoundListings...)
	if s.RequestedConfig != nil {
		c.RequestedConfig = make(map[string]int, len(s.RequestedConfig))
		for k, v := range s.RequestedConfig {
			c.RequestedConfig[k] = v
		}
	}
	return &c
}

// FarmStats aggregates used-market activity for one farm.
type FarmStats struct {
	SearchesStarted   int     `json:"searches_started"`
	SearchesCancelled int     `json:"searches_cancelled"`
	SearchesCompleted int     `json:"searches_completed"`
	ListingsFound     int     `json:"listings_found"`
	ListingsPurchased int     `json:"listings_purchased"`
	AmountSpent       float64 `json:"amount_spent"`
	CommissionsPaid   float64 `json:"commissions_paid"`
	FeesPaid          float64 `json:"fees_paid"`
}
