package search

import (
	"fmt"
	"math"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/finance"
	"usedplus-economy/internal/transport"

	"github.com/rs/zerolog/log"
)

// CreateRequest starts a search. Configuration pins option indexes by
// configuration set name; unpinned sets are picked at random per listing.
type CreateRequest struct {
	FarmID        int                      `json:"farm_id"`
	StoreKey      string                   `json:"store_key"`
	Tier          domain.SearchTier        `json:"tier"`
	Quality       domain.QualityPreference `json:"quality"`
	Configuration map[string]int           `json:"configuration,omitempty"`
}

// Quote is what a search would cost before committing to it.
type Quote struct {
	Tier               domain.SearchTier        `json:"tier"`
	Quality            domain.QualityPreference `json:"quality"`
	RetainerFee        float64                  `json:"retainer_fee"`
	MonthlyProbability float64                  `json:"monthly_probability"`
	MaxMonths          int                      `json:"max_months"`
	MaxListings        int                      `json:"max_listings"`
	CommissionPercent  float64                  `json:"commission_percent"`
}

// Quote validates a request and prices it without charging anything.
func (m *Manager) Quote(req CreateRequest) (*Quote, *domain.StoreItem, error) {
	if !m.settings.Bool(settings.EnableUsedSearch) {
		return nil, nil, ErrSearchDisabled
	}
	tier, ok := m.tiers[req.Tier]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidTier, req.Tier)
	}
	if tier.Toggle != "" && !m.settings.Bool(tier.Toggle) {
		return nil, nil, fmt.Errorf("%w: %s", ErrTierDisabled, req.Tier)
	}
	quality := req.Quality
	if quality == "" {
		quality = domain.QualityAny
	}
	if _, ok := qualities[quality]; !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidQuality, req.Quality)
	}
	if !m.farms.Exists(req.FarmID) {
		return nil, nil, fmt.Errorf("%w: %d", ErrFarmNotFound, req.FarmID)
	}
	item, ok := m.catalog.Item(req.StoreKey)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrItemNotFound, req.StoreKey)
	}

	return &Quote{
		Tier:               req.Tier,
		Quality:            quality,
		RetainerFee:        m.RetainerFee(req.FarmID, tier, item.Price),
		MonthlyProbability: m.MonthlyProbability(tier, quality),
		MaxMonths:          tier.MaxMonths,
		MaxListings:        tier.MaxListings,
		CommissionPercent:  tier.CommissionPercent,
	}, item, nil
}

// RetainerFee is the tier percentage of the base price, at least the tier
// minimum, scaled by the farm's credit when fee scaling is on.
func (m *Manager) RetainerFee(farmID int, tier TierParams, basePrice float64) float64 {
	fee := math.Max(tier.MinRetainer, basePrice*tier.RetainerPercent/100)
	if m.credit != nil && m.settings.Bool(settings.SearchFeeCreditScaling) {
		fee *= finance.SearchFeeModifier(m.credit.CachedScore(farmID))
	}
	return math.Round(fee)
}

func (m *Manager) MonthlyProbability(tier TierParams, quality domain.QualityPreference) float64 {
	q := qualities[quality]
	p := tier.SuccessProbability * q.SuccessModifier
	if mult := m.settings.Float(settings.SearchSuccessMultiplier); mult > 0 {
		p *= mult
	}
	return math.Max(minMonthlyProbability, math.Min(maxMonthlyProbability, p))
}

// Create charges the retainer and registers a new active search.
func (m *Manager) Create(req CreateRequest) (*domain.Search, error) {
	q, item, err := m.Quote(req)
	if err != nil {
		log.Warn().Err(err).Int("farm_id", req.FarmID).Str("store_key", req.StoreKey).Msg("Search not created")
		return nil, err
	}

	balance, err := m.farms.Balance(req.FarmID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFarmNotFound, err)
	}
	if balance < q.RetainerFee {
		log.Warn().Int("farm_id", req.FarmID).Float64("fee", q.RetainerFee).Float64("balance", balance).Msg("Search not created: insufficient funds")
		return nil, fmt.Errorf("%w: retainer %.0f, balance %.0f", ErrCannotAfford, q.RetainerFee, balance)
	}
	if err := m.farms.AddMoney(req.FarmID, -q.RetainerFee, domain.MoneyUsedVehicleFee); err != nil {
		return nil, err
	}

	s := &domain.Search{
		ID:                        m.nextSearchID,
		FarmID:                    req.FarmID,
		Item:                      item.Ref(),
		Tier:                      q.Tier,
		Quality:                   q.Quality,
		RequestedConfig:           copyConfig(req.Configuration),
		Status:                    domain.SearchActive,
		MaxMonths:                 q.MaxMonths,
		MonthlySuccessProbability: q.MonthlyProbability,
		MaxListings:               q.MaxListings,
		FoundListings:             []int64{},
		CommissionPercent:         q.CommissionPercent,
		RetainerFee:               q.RetainerFee,
		CreatedDay:                m.clock.Day(),
	}
	m.nextSearchID++
	m.addSearch(s)

	st := m.farmStats(s.FarmID)
	st.SearchesStarted++
	st.FeesPaid += s.RetainerFee

	log.Info().Int64("search_id", s.ID).Int("farm_id", s.FarmID).Str("tier", string(s.Tier)).
		Float64("fee", s.RetainerFee).Msg("Search started")
	m.record(s, nil, domain.SearchEventCreated, map[string]any{
		"tier": s.Tier, "quality": s.Quality, "fee": s.RetainerFee, "store_key": s.Item.StoreKey,
	})
	m.publish(transport.SearchUpserted{Search: s.Clone()})
	m.publishStats(s.FarmID)
	m.notifier.Notify(domain.Notice{
		FarmID: s.FarmID,
		Kind:   domain.NoticeSuccess,
		Text:   fmt.Sprintf("Agent is looking for a used %s (%s search).", s.Item.Name, s.Tier),
	})
	return s.Clone(), nil
}

// Renew starts a fresh search with the parameters of a completed one and
// charges a new retainer.
func (m *Manager) Renew(farmID int, searchID int64) (*domain.Search, error) {
	r, ok := m.renewable[searchID]
	if !ok || r.req.FarmID != farmID {
		return nil, fmt.Errorf("%w: renewable search %d", ErrSearchNotFound, searchID)
	}
	s, err := m.Create(r.req)
	if err != nil {
		return nil, err
	}
	delete(m.renewable, searchID)
	m.record(s, nil, domain.SearchEventRenewed, map[string]any{"previous_search_id": searchID})
	return s, nil
}

// DeclineRenewal forgets a completed search's renew offer.
func (m *Manager) DeclineRenewal(farmID int, searchID int64) error {
	r, ok := m.renewable[searchID]
	if !ok || r.req.FarmID != farmID {
		return fmt.Errorf("%w: renewable search %d", ErrSearchNotFound, searchID)
	}
	delete(m.renewable, searchID)
	return nil
}

// Cancel ends an active search. The retainer is not refunded and listings
// already found are withdrawn.
func (m *Manager) Cancel(farmID int, searchID int64) error {
	s, ok := m.searches[searchID]
	if !ok || s.FarmID != farmID {
		log.Warn().Int("farm_id", farmID).Int64("search_id", searchID).Msg("Cancel of unknown search")
		return fmt.Errorf("%w: %d", ErrSearchNotFound, searchID)
	}
	if err := s.Cancel(); err != nil {
		return fmt.Errorf("%w: %d", ErrSearchNotActive, searchID)
	}
	m.removeSearch(s.ID)
	m.dropPortfolio(s.FarmID, s.ID, "withdrawn")

	m.farmStats(s.FarmID).SearchesCancelled++

	log.Info().Int64("search_id", s.ID).Int("farm_id", s.FarmID).Msg("Search cancelled")
	m.record(s, nil, domain.SearchEventCancelled, nil)
	m.publish(transport.SearchRemoved{SearchID: s.ID, FarmID: s.FarmID, Reason: string(domain.SearchCancelled)})
	m.publishStats(s.FarmID)
	return nil
}

// dropPortfolio removes every listing a search found for a farm.
func (m *Manager) dropPortfolio(farmID int, searchID int64, reason string) {
	for _, id := range append([]int64(nil), m.farmListings[farmID]...) {
		l := m.listings[id]
		if l.SearchID != searchID {
			continue
		}
		l.Status = domain.ListingExpired
		m.removeListing(id)
		m.publish(transport.ListingRemoved{ListingID: id, FarmID: farmID, Reason: reason})
	}
}

func copyConfig(c map[string]int) map[string]int {
	if len(c) == 0 {
		return nil
	}
	out := make(map[string]int, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func requestFor(s *domain.Search) CreateRequest {
	return CreateRequest{
		FarmID:        s.FarmID,
		StoreKey:      s.Item.StoreKey,
		Tier:          s.Tier,
		Quality:       s.Quality,
		Configuration: copyConfig(s.RequestedConfig),
	}
}
