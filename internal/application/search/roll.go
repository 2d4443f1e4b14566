package search

import (
	"fmt"
	"math"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/transport"

	"github.com/rs/zerolog/log"
)

// OnHourChanged runs the daily work the first time it is called on a new
// in-game day: expire stale listings, then one monthly roll per active
// search. Further calls on the same day do nothing. It reports whether the
// day was processed.
func (m *Manager) OnHourChanged() bool {
	day := m.clock.Day()
	if day <= m.lastProcessedDay {
		return false
	}
	m.lastProcessedDay = day

	m.expireListings(day)
	m.expireRenewals(day)
	m.runMonthlyRoll(day)
	return true
}

func (m *Manager) runMonthlyRoll(day int) {
	for _, farmID := range m.farmIDs() {
		ids := append([]int64(nil), m.farmSearches[farmID]...)
		for _, id := range ids {
			if s, ok := m.searches[id]; ok && s.IsActive() {
				m.rollSearch(s, day)
			}
		}
	}
}

func (m *Manager) rollSearch(s *domain.Search, day int) {
	item, ok := m.catalog.Item(s.Item.StoreKey)
	if !ok {
		log.Error().Int64("search_id", s.ID).Int("farm_id", s.FarmID).Str("store_key", s.Item.StoreKey).
			Msg("Skipped monthly roll: catalog item missing")
		return
	}

	roll := m.roller.Float64()
	if roll < s.MonthlySuccessProbability && !s.ListingCapReached() {
		l := m.synthesize(s, item, day)
		if err := s.AddListing(l.ID); err == nil {
			m.addListing(l)
			m.farmStats(s.FarmID).ListingsFound++

			log.Info().Int64("search_id", s.ID).Int64("listing_id", l.ID).Int("farm_id", s.FarmID).
				Float64("asking_price", l.AskingPrice).Msg("Listing found")
			m.record(s, &l.ID, domain.SearchEventFound, map[string]any{
				"asking_price": l.AskingPrice, "age_months": l.Condition.AgeMonths, "damage": l.Condition.Damage,
			})
			m.publish(transport.ListingUpserted{Listing: l.Clone()})
			m.notifier.ShowDialog(domain.Dialog{
				FarmID:    s.FarmID,
				Kind:      domain.DialogListingFound,
				Title:     "Used vehicle found",
				Text:      fmt.Sprintf("Your agent found a %s %s for %.0f.", l.Brand, l.Name, l.AskingPrice),
				SearchID:  s.ID,
				ListingID: l.ID,
				Options:   []string{"buy", "later"},
			})
		}
	}

	if err := s.AdvanceMonth(); err != nil {
		log.Error().Err(err).Int64("search_id", s.ID).Int("farm_id", s.FarmID).Msg("Month not advanced")
	}

	switch {
	case s.ListingCapReached():
		m.complete(s, day, "listing cap reached")
	case s.MonthsCapReached():
		m.complete(s, day, "search time ran out")
	default:
		m.publish(transport.SearchUpserted{Search: s.Clone()})
	}
	m.publishStats(s.FarmID)
}

// complete ends a search by cap. Its listings stay on sale until they expire.
func (m *Manager) complete(s *domain.Search, day int, reason string) {
	if err := s.Complete(); err != nil {
		return
	}
	m.removeSearch(s.ID)
	m.farmStats(s.FarmID).SearchesCompleted++
	expires := day + m.settings.Int(settings.ListingExpiryDays)
	m.renewable[s.ID] = renewal{req: requestFor(s), expiresDay: expires}
	for _, id := range m.farmListings[s.FarmID] {
		if l := m.listings[id]; l.SearchID == s.ID {
			l.ExpiresDay = expires
			m.publish(transport.ListingUpserted{Listing: l.Clone()})
		}
	}

	log.Info().Int64("search_id", s.ID).Int("farm_id", s.FarmID).Int("months", s.MonthsElapsed).
		Int("listings", len(s.FoundListings)).Str("reason", reason).Msg("Search completed")
	m.record(s, nil, domain.SearchEventCompleted, map[string]any{
		"reason": reason, "months": s.MonthsElapsed, "listings": len(s.FoundListings),
	})
	m.publish(transport.SearchRemoved{SearchID: s.ID, FarmID: s.FarmID, Reason: string(domain.SearchCompleted)})
	m.notifier.ShowDialog(domain.Dialog{
		FarmID:   s.FarmID,
		Kind:     domain.DialogSearchExpired,
		Title:    "Search finished",
		Text:     fmt.Sprintf("Search for %s ended (%s) with %d listing(s). Renew it?", s.Item.Name, reason, len(s.FoundListings)),
		SearchID: s.ID,
		Options:  []string{"renew", "dismiss"},
	})
}

func (m *Manager) expireListings(day int) {
	for _, farmID := range m.farmIDs() {
		for _, id := range append([]int64(nil), m.farmListings[farmID]...) {
			l := m.listings[id]
			if l.ExpiresDay == 0 || day < l.ExpiresDay {
				continue
			}
			l.Status = domain.ListingExpired
			m.removeListing(id)

			log.Info().Int64("listing_id", id).Int("farm_id", farmID).Msg("Listing expired")
			m.recordListing(l, domain.SearchEventExpired, nil)
			m.publish(transport.ListingRemoved{ListingID: id, FarmID: farmID, Reason: string(domain.ListingExpired)})
		}
	}
}

// expireRenewals drops renew offers the player never answered.
func (m *Manager) expireRenewals(day int) {
	for id, r := range m.renewable {
		if r.expiresDay > 0 && day >= r.expiresDay {
			delete(m.renewable, id)
			log.Info().Int64("search_id", id).Int("farm_id", r.req.FarmID).Msg("Renew offer lapsed")
		}
	}
}

func (m *Manager) synthesize(s *domain.Search, item *domain.StoreItem, day int) *domain.Listing {
	q := qualities[s.Quality]
	cond := domain.Condition{
		AgeMonths:      int(math.Round(q.AgeYears.pick(m.rnd) * 12)),
		OperatingHours: math.Round(q.Hours.pick(m.rnd)),
		Damage:         round3(q.Damage.pick(m.rnd)),
		Wear:           round3(q.Wear.pick(m.rnd)),
	}

	rel := domain.NeutralReliability
	if m.reliability != nil {
		rel = m.reliability.Generate(cond, m.reliability.DNA(q.DNABias))
	}

	base := math.Round(item.Price*q.PriceMultiplier.pick(m.rnd)/10) * 10
	commission := math.Round(base * s.CommissionPercent / 100)

	l := &domain.Listing{
		ID:            m.nextListingID,
		FarmID:        s.FarmID,
		SearchID:      s.ID,
		StoreKey:      item.Key,
		Name:          item.Name,
		Brand:         item.Brand,
		Quality:       s.Quality,
		Configuration: m.pickConfiguration(item, s.RequestedConfig),
		Condition:     cond,
		Reliability:   rel,
		Status:        domain.ListingAvailable,
		FoundDay:      day,
	}
	l.SetPrice(base, commission)
	m.nextListingID++
	return l
}

// pickConfiguration keeps valid requested options and rolls the rest.
func (m *Manager) pickConfiguration(item *domain.StoreItem, requested map[string]int) map[string]int {
	if len(item.Configurations) == 0 {
		return nil
	}
	out := make(map[string]int, len(item.Configurations))
	for _, set := range item.Configurations {
		if len(set.Options) == 0 {
			continue
		}
		if idx, ok := requested[set.Name]; ok && idx >= 0 && idx < len(set.Options) {
			out[set.Name] = idx
			continue
		}
		out[set.Name] = m.rnd.Intn(len(set.Options))
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
