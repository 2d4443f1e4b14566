package search

import (
	"fmt"

	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/transport"

	"github.com/rs/zerolog/log"
)

// PurchaseResult describes a completed purchase.
type PurchaseResult struct {
	Listing   *domain.Listing `json:"listing"`
	Instances []string        `json:"instances"`
}

// Purchase buys a listing. Funds are checked before anything changes; if
// the vehicle cannot be spawned the price is refunded and no search or
// listing state changes. A purchase always ends the parent search and
// discards the rest of its portfolio.
func (m *Manager) Purchase(farmID int, listingID int64) (*PurchaseResult, error) {
	l, ok := m.listings[listingID]
	if !ok || l.FarmID != farmID {
		log.Warn().Int("farm_id", farmID).Int64("listing_id", listingID).Msg("Purchase of unknown listing")
		return nil, fmt.Errorf("%w: %d", ErrListingNotFound, listingID)
	}
	if !l.IsAvailable() {
		return nil, fmt.Errorf("%w: %d", ErrListingUnavailable, listingID)
	}
	if m.spawner == nil {
		return nil, ErrNoSpawner
	}

	balance, err := m.farms.Balance(farmID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFarmNotFound, err)
	}
	if balance < l.AskingPrice {
		log.Warn().Int("farm_id", farmID).Int64("listing_id", l.ID).Float64("price", l.AskingPrice).
			Float64("balance", balance).Msg("Purchase refused: insufficient funds")
		return nil, fmt.Errorf("%w: price %.0f, balance %.0f", ErrCannotAfford, l.AskingPrice, balance)
	}
	if err := m.farms.AddMoney(farmID, -l.AskingPrice, domain.MoneyUsedVehiclePurchase); err != nil {
		return nil, err
	}

	targets, err := m.spawner.Spawn(farmID, l.Clone())
	if err != nil {
		if rerr := m.farms.AddMoney(farmID, l.AskingPrice, domain.MoneyRefund); rerr != nil {
			log.Error().Err(rerr).Int("farm_id", farmID).Float64("amount", l.AskingPrice).Msg("Refund after failed spawn failed")
		}
		log.Error().Err(err).Int("farm_id", farmID).Int64("listing_id", l.ID).Msg("Purchase rolled back: spawn failed")
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	l.Status = domain.ListingSold
	m.removeListing(l.ID)
	m.publish(transport.ListingRemoved{ListingID: l.ID, FarmID: farmID, Reason: string(domain.ListingSold)})

	st := m.farmStats(farmID)
	if s, ok := m.searches[l.SearchID]; ok && s.IsActive() {
		_ = s.Complete()
		m.removeSearch(s.ID)
		st.SearchesCompleted++
		m.publish(transport.SearchRemoved{SearchID: s.ID, FarmID: farmID, Reason: "purchased"})
	}
	delete(m.renewable, l.SearchID)
	m.dropPortfolio(farmID, l.SearchID, "discarded")

	st.ListingsPurchased++
	st.AmountSpent += l.AskingPrice
	st.CommissionsPaid += l.CommissionAmount

	log.Info().Int("farm_id", farmID).Int64("listing_id", l.ID).Int64("search_id", l.SearchID).
		Float64("price", l.AskingPrice).Msg("Used vehicle purchased")
	m.recordListing(l, domain.SearchEventPurchased, map[string]any{
		"price": l.AskingPrice, "commission": l.CommissionAmount,
	})

	res := &PurchaseResult{Listing: l.Clone()}
	for _, t := range targets {
		m.ApplyCondition(l, t)
		res.Instances = append(res.Instances, t.InstanceID)
	}
	m.publishStats(farmID)
	m.notifier.Notify(domain.Notice{
		FarmID: farmID,
		Kind:   domain.NoticeSuccess,
		Text:   fmt.Sprintf("Bought a used %s %s for %.0f.", l.Brand, l.Name, l.AskingPrice),
	})
	return res, nil
}
