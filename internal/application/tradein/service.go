// Package tradein values owned vehicles and takes them in against a purchase.
package tradein

import (
	"context"
	"fmt"
	"sync"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/finance"
	"usedplus-economy/internal/host"

	"github.com/rs/zerolog/log"
)

var (
	ErrVehicleNotFound = fmt.Errorf("vehicle: %w", domain.ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("store item: %w", domain.ErrNotFound)
	ErrNotEligible     = fmt.Errorf("vehicle cannot be traded in: %w", domain.ErrInvalidInput)
)

// Reasons a vehicle is not eligible.
const (
	ReasonLeased   = "leased"
	ReasonFinanced = "under an active finance deal"
)

type Settings interface {
	Float(key string) float64
}

// Registry is the owned-vehicle view plus removal on sale.
type Registry interface {
	host.Vehicles
	Remove(instanceID string)
}

// DealIndex reports which vehicle instances are under an active deal.
type DealIndex interface {
	ActiveAssetIDs(ctx context.Context, farmID int) (map[string]bool, error)
}

type Service struct {
	Vehicles Registry
	Deals    DealIndex
	Farms    host.Farms
	Catalog  host.Catalog
	Settings Settings
	Rand     finance.RandomSource

	mu     sync.Mutex
	quotes map[string]cachedQuote
}

// basis is everything a trade-in value depends on. A cached quote is only
// honoured while its basis is unchanged.
type basis struct {
	input      finance.TradeInInput
	history    finance.MaintenanceHistory
	hasHistory bool
	params     finance.TradeInParams
}

type cachedQuote struct {
	quote Quote
	basis basis
}

func (s *Service) basisFor(v host.Vehicle, targetBrand string) basis {
	b := basis{
		input: finance.TradeInInput{
			ResalePrice:    v.Price,
			Damage:         v.Damage,
			Wear:           v.Wear,
			OperatingHours: v.OperatingHours,
			Brand:          v.Brand,
			TargetBrand:    targetBrand,
		},
		params: s.params(),
	}
	if v.Maintenance != nil {
		b.history, b.hasHistory = *v.Maintenance, true
	}
	return b
}

type Candidate struct {
	Vehicle  host.Vehicle `json:"vehicle"`
	Eligible bool         `json:"eligible"`
	Reason   string       `json:"reason,omitempty"`
}

// Quote is a trade-in offer for one vehicle.
type Quote struct {
	InstanceID  string  `json:"instance_id"`
	FarmID      int     `json:"farm_id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	TargetBrand string  `json:"target_brand,omitempty"`
	ResalePrice float64 `json:"resale_price"`
	finance.TradeInQuote
}

func (s *Service) params() finance.TradeInParams {
	if s.Settings == nil {
		return finance.DefaultTradeInParams
	}
	return finance.TradeInParams{
		CenterPercent:     s.Settings.Float(settings.TradeInPercent),
		MinimumValue:      s.Settings.Float(settings.TradeInMinimumValue),
		BrandBonusPercent: s.Settings.Float(settings.BrandLoyaltyBonus),
	}
}

// Candidates lists the farm's vehicles and whether each can be traded in.
func (s *Service) Candidates(ctx context.Context, farmID int) ([]Candidate, error) {
	financed, err := s.Deals.ActiveAssetIDs(ctx, farmID)
	if err != nil {
		return nil, err
	}
	owned := s.Vehicles.OwnedBy(farmID)
	out := make([]Candidate, 0, len(owned))
	for _, v := range owned {
		c := Candidate{Vehicle: v, Eligible: true}
		if reason := ineligible(v, financed); reason != "" {
			c.Eligible, c.Reason = false, reason
		}
		out = append(out, c)
	}
	return out, nil
}

func ineligible(v host.Vehicle, financed map[string]bool) string {
	switch {
	case v.Leased:
		return ReasonLeased
	case financed[v.InstanceID]:
		return ReasonFinanced
	}
	return ""
}

// Quote values a vehicle against an optional target store item; the brand
// bonus applies only when the brands match. The latest quote per vehicle is
// kept so Accept pays what was shown.
func (s *Service) Quote(ctx context.Context, farmID int, instanceID, targetKey string) (*Quote, error) {
	v, err := s.eligible(ctx, farmID, instanceID)
	if err != nil {
		return nil, err
	}
	target := ""
	if targetKey != "" {
		item, ok := s.Catalog.Item(targetKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, targetKey)
		}
		target = item.Brand
	}

	b := s.basisFor(v, target)
	in := b.input
	if b.hasHistory {
		h := b.history
		in.History = &h
	}
	tq := finance.TradeInValue(in, b.params, s.Rand)

	q := Quote{
		InstanceID:   v.InstanceID,
		FarmID:       farmID,
		Name:         v.Name,
		Brand:        v.Brand,
		TargetBrand:  target,
		ResalePrice:  v.Price,
		TradeInQuote: tq,
	}
	s.mu.Lock()
	if s.quotes == nil {
		s.quotes = make(map[string]cachedQuote)
	}
	s.quotes[v.InstanceID] = cachedQuote{quote: q, basis: b}
	s.mu.Unlock()
	return &q, nil
}

// Accept sells the vehicle to the dealer and credits the farm. It pays the
// last quoted value while the vehicle, target brand and trade-in settings are
// as they were when quoted, and re-quotes otherwise.
func (s *Service) Accept(ctx context.Context, farmID int, instanceID, targetKey string) (*Quote, error) {
	v, err := s.eligible(ctx, farmID, instanceID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	cached, ok := s.quotes[instanceID]
	s.mu.Unlock()

	q := cached.quote
	if !ok || q.FarmID != farmID || cached.basis != s.basisFor(v, s.brandOf(targetKey)) {
		fresh, err := s.Quote(ctx, farmID, instanceID, targetKey)
		if err != nil {
			return nil, err
		}
		q = *fresh
	}

	if err := s.Farms.AddMoney(farmID, q.Value, domain.MoneyTradeIn); err != nil {
		return nil, err
	}
	s.Vehicles.Remove(instanceID)

	s.mu.Lock()
	delete(s.quotes, instanceID)
	s.mu.Unlock()

	log.Info().Int("farm_id", farmID).Str("instance_id", instanceID).Str("name", q.Name).Float64("value", q.Value).Msg("Vehicle traded in")
	return &q, nil
}

func (s *Service) brandOf(storeKey string) string {
	if storeKey == "" {
		return ""
	}
	if item, ok := s.Catalog.Item(storeKey); ok {
		return item.Brand
	}
	return ""
}

func (s *Service) eligible(ctx context.Context, farmID int, instanceID string) (host.Vehicle, error) {
	v, ok := s.Vehicles.Vehicle(instanceID)
	if !ok || v.FarmID != farmID {
		return host.Vehicle{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, instanceID)
	}
	financed, err := s.Deals.ActiveAssetIDs(ctx, farmID)
	if err != nil {
		return host.Vehicle{}, err
	}
	if reason := ineligible(v, financed); reason != "" {
		return host.Vehicle{}, fmt.Errorf("%w: %s", ErrNotEligible, reason)
	}
	return v, nil
}
