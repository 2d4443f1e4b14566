package search

import (
	"sort"

	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/savegame"

	"github.com/rs/zerolog/log"
)

const (
	rootPath     = "usedPlus"
	searchesPath = rootPath + ".searches"
	statsPath    = rootPath + ".stats"
)

var attr = savegame.Attr

// Save writes every active search, available listing, farm statistic and
// the id counters into doc.
func (m *Manager) Save(doc savegame.Document) {
	doc.SetInt(attr(rootPath, "nextSearchId"), int(m.nextSearchID))
	doc.SetInt(attr(rootPath, "nextListingId"), int(m.nextListingID))
	doc.SetInt(attr(rootPath, "lastProcessedDay"), m.lastProcessedDay)

	for i, farmID := range m.farmIDs() {
		farm := savegame.Child(searchesPath, "farm", i)
		doc.SetInt(attr(farm, "farmId"), farmID)

		for j, id := range m.farmSearches[farmID] {
			saveSearch(doc, savegame.Child(farm, "search", j), m.searches[id])
		}
		for k, id := range m.farmListings[farmID] {
			saveListing(doc, savegame.Child(farm, "listing", k), m.listings[id])
		}
		for k, id := range m.Renewable(farmID) {
			saveRenewal(doc, savegame.Child(farm, "renewable", k), id, m.renewable[id])
		}
	}

	statFarms := make([]int, 0, len(m.stats))
	for id := range m.stats {
		statFarms = append(statFarms, id)
	}
	sort.Ints(statFarms)
	for i, farmID := range statFarms {
		p := savegame.Child(statsPath, "farm", i)
		st := m.stats[farmID]
		doc.SetInt(attr(p, "farmId"), farmID)
		doc.SetInt(attr(p, "searchesStarted"), st.SearchesStarted)
		doc.SetInt(attr(p, "searchesCancelled"), st.SearchesCancelled)
		doc.SetInt(attr(p, "searchesCompleted"), st.SearchesCompleted)
		doc.SetInt(attr(p, "listingsFound"), st.ListingsFound)
		doc.SetInt(attr(p, "listingsPurchased"), st.ListingsPurchased)
		doc.SetFloat(attr(p, "amountSpent"), st.AmountSpent)
		doc.SetFloat(attr(p, "commissionsPaid"), st.CommissionsPaid)
		doc.SetFloat(attr(p, "feesPaid"), st.FeesPaid)
	}
}

func saveSearch(doc savegame.Document, p string, s *domain.Search) {
	doc.SetInt(attr(p, "id"), int(s.ID))
	doc.SetString(attr(p, "itemKey"), s.Item.StoreKey)
	doc.SetString(attr(p, "itemName"), s.Item.Name)
	doc.SetString(attr(p, "brand"), s.Item.Brand)
	doc.SetFloat(attr(p, "basePrice"), s.Item.BasePrice)
	doc.SetString(attr(p, "tier"), string(s.Tier))
	doc.SetString(attr(p, "quality"), string(s.Quality))
	doc.SetString(attr(p, "status"), string(s.Status))
	doc.SetInt(attr(p, "monthsElapsed"), s.MonthsElapsed)
	doc.SetInt(attr(p, "maxMonths"), s.MaxMonths)
	doc.SetFloat(attr(p, "probability"), s.MonthlySuccessProbability)
	doc.SetInt(attr(p, "maxListings"), s.MaxListings)
	doc.SetFloat(attr(p, "commissionPercent"), s.CommissionPercent)
	doc.SetFloat(attr(p, "retainerFee"), s.RetainerFee)
	doc.SetInt(attr(p, "createdDay"), s.CreatedDay)
	saveConfig(doc, p, s.RequestedConfig)
}

func saveListing(doc savegame.Document, p string, l *domain.Listing) {
	doc.SetInt(attr(p, "id"), int(l.ID))
	doc.SetInt(attr(p, "searchId"), int(l.SearchID))
	doc.SetString(attr(p, "storeKey"), l.StoreKey)
	doc.SetString(attr(p, "name"), l.Name)
	doc.SetString(attr(p, "brand"), l.Brand)
	doc.SetString(attr(p, "quality"), string(l.Quality))
	doc.SetInt(attr(p, "ageMonths"), l.Condition.AgeMonths)
	doc.SetFloat(attr(p, "operatingHours"), l.Condition.OperatingHours)
	doc.SetFloat(attr(p, "damage"), l.Condition.Damage)
	doc.SetFloat(attr(p, "wear"), l.Condition.Wear)
	doc.SetFloat(attr(p, "engine"), l.Reliability.Engine)
	doc.SetFloat(attr(p, "hydraulic"), l.Reliability.Hydraulic)
	doc.SetFloat(attr(p, "electrical"), l.Reliability.Electrical)
	doc.SetFloat(attr(p, "dna"), l.Reliability.DNA)
	doc.SetFloat(attr(p, "basePrice"), l.BasePrice)
	doc.SetFloat(attr(p, "commission"), l.CommissionAmount)
	doc.SetFloat(attr(p, "askingPrice"), l.AskingPrice)
	doc.SetString(attr(p, "status"), string(l.Status))
	doc.SetInt(attr(p, "foundDay"), l.FoundDay)
	doc.SetInt(attr(p, "expiresDay"), l.ExpiresDay)
	saveConfig(doc, p, l.Configuration)
}

func saveRenewal(doc savegame.Document, p string, searchID int64, r renewal) {
	doc.SetInt(attr(p, "searchId"), int(searchID))
	doc.SetString(attr(p, "itemKey"), r.req.StoreKey)
	doc.SetString(attr(p, "tier"), string(r.req.Tier))
	doc.SetString(attr(p, "quality"), string(r.req.Quality))
	doc.SetInt(attr(p, "expiresDay"), r.expiresDay)
	saveConfig(doc, p, r.req.Configuration)
}

func loadRenewal(doc savegame.Document, p string, farmID int) (int64, renewal, bool) {
	id := int64(doc.Int(attr(p, "searchId"), 0))
	key := doc.String(attr(p, "itemKey"), "")
	if id <= 0 || key == "" {
		log.Warn().Str("path", p).Msg("Skipped saved renew offer without search or item")
		return 0, renewal{}, false
	}
	return id, renewal{
		req: CreateRequest{
			FarmID:        farmID,
			StoreKey:      key,
			Tier:          domain.SearchTier(doc.String(attr(p, "tier"), string(domain.TierLocal))),
			Quality:       domain.QualityPreference(doc.String(attr(p, "quality"), string(domain.QualityAny))),
			Configuration: loadConfig(doc, p),
		},
		expiresDay: doc.Int(attr(p, "expiresDay"), 0),
	}, true
}

func saveConfig(doc savegame.Document, p string, cfg map[string]int) {
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		c := savegame.Child(p, "config", i)
		doc.SetString(attr(c, "name"), name)
		doc.SetInt(attr(c, "value"), cfg[name])
	}
}

func loadConfig(doc savegame.Document, p string) map[string]int {
	children := doc.Children(p, "config")
	if len(children) == 0 {
		return nil
	}
	cfg := make(map[string]int, len(children))
	for _, c := range children {
		name := doc.String(attr(c, "name"), "")
		if name == "" {
			continue
		}
		cfg[name] = doc.Int(attr(c, "value"), 0)
	}
	return cfg
}

// Load replaces all state with what doc holds. Records missing an id or
// item key are skipped; other missing fields take defaults.
func (m *Manager) Load(doc savegame.Document) {
	m.reset()
	m.lastProcessedDay = doc.Int(attr(rootPath, "lastProcessedDay"), m.clock.Day())

	var maxSearch, maxListing int64
	for _, farm := range doc.Children(searchesPath, "farm") {
		farmID := doc.Int(attr(farm, "farmId"), -1)
		if farmID < 0 {
			log.Warn().Str("path", farm).Msg("Skipped saved farm without id")
			continue
		}
		for _, p := range doc.Children(farm, "search") {
			s := m.loadSearch(doc, p, farmID)
			if s == nil {
				continue
			}
			m.addSearch(s)
			if s.ID > maxSearch {
				maxSearch = s.ID
			}
		}
		for _, p := range doc.Children(farm, "listing") {
			l := loadListing(doc, p, farmID)
			if l == nil {
				continue
			}
			m.addListing(l)
			if l.ID > maxListing {
				maxListing = l.ID
			}
		}
		for _, p := range doc.Children(farm, "renewable") {
			id, r, ok := loadRenewal(doc, p, farmID)
			if !ok {
				continue
			}
			m.renewable[id] = r
			if id > maxSearch {
				maxSearch = id
			}
		}
	}

	// found listings are derived from the listings that point at a search
	for _, farmID := range m.farmIDs() {
		for _, id := range m.farmListings[farmID] {
			l := m.listings[id]
			if s, ok := m.searches[l.SearchID]; ok && !s.ListingCapReached() {
				s.FoundListings = append(s.FoundListings, l.ID)
			}
		}
	}

	for _, p := range doc.Children(statsPath, "farm") {
		farmID := doc.Int(attr(p, "farmId"), -1)
		if farmID < 0 {
			continue
		}
		m.stats[farmID] = &domain.FarmStats{
			SearchesStarted:   doc.Int(attr(p, "searchesStarted"), 0),
			SearchesCancelled: doc.Int(attr(p, "searchesCancelled"), 0),
			SearchesCompleted: doc.Int(attr(p, "searchesCompleted"), 0),
			ListingsFound:     doc.Int(attr(p, "listingsFound"), 0),
			ListingsPurchased: doc.Int(attr(p, "listingsPurchased"), 0),
			AmountSpent:       doc.Float(attr(p, "amountSpent"), 0),
			CommissionsPaid:   doc.Float(attr(p, "commissionsPaid"), 0),
			FeesPaid:          doc.Float(attr(p, "feesPaid"), 0),
		}
	}

	m.nextSearchID = max(int64(doc.Int(attr(rootPath, "nextSearchId"), 1)), maxSearch+1)
	m.nextListingID = max(int64(doc.Int(attr(rootPath, "nextListingId"), 1)), maxListing+1)

	log.Info().Int("searches", len(m.searches)).Int("listings", len(m.listings)).Int("renew_offers", len(m.renewable)).Msg("Used vehicle agent state loaded")
}

func (m *Manager) loadSearch(doc savegame.Document, p string, farmID int) *domain.Search {
	id := int64(doc.Int(attr(p, "id"), 0))
	key := doc.String(attr(p, "itemKey"), "")
	if id <= 0 || key == "" {
		log.Warn().Str("path", p).Msg("Skipped saved search without id or item")
		return nil
	}
	status := domain.SearchStatus(doc.String(attr(p, "status"), string(domain.SearchActive)))
	if status != domain.SearchActive {
		return nil
	}

	tier := domain.SearchTier(doc.String(attr(p, "tier"), string(domain.TierLocal)))
	params, ok := m.tiers[tier]
	if !ok {
		tier, params = domain.TierLocal, m.tiers[domain.TierLocal]
	}
	quality := domain.QualityPreference(doc.String(attr(p, "quality"), string(domain.QualityAny)))
	if _, ok := qualities[quality]; !ok {
		quality = domain.QualityAny
	}

	s := &domain.Search{
		ID:     id,
		FarmID: farmID,
		Item: domain.ItemRef{
			StoreKey:  key,
			Name:      doc.String(attr(p, "itemName"), key),
			Brand:     doc.String(attr(p, "brand"), ""),
			BasePrice: doc.Float(attr(p, "basePrice"), 0),
		},
		Tier:                      tier,
		Quality:                   quality,
		RequestedConfig:           loadConfig(doc, p),
		Status:                    domain.SearchActive,
		MonthsElapsed:             doc.Int(attr(p, "monthsElapsed"), 0),
		MaxMonths:                 doc.Int(attr(p, "maxMonths"), params.MaxMonths),
		MonthlySuccessProbability: doc.Float(attr(p, "probability"), m.MonthlyProbability(params, quality)),
		MaxListings:               doc.Int(attr(p, "maxListings"), params.MaxListings),
		FoundListings:             []int64{},
		CommissionPercent:         doc.Float(attr(p, "commissionPercent"), params.CommissionPercent),
		RetainerFee:               doc.Float(attr(p, "retainerFee"), 0),
		CreatedDay:                doc.Int(attr(p, "createdDay"), 0),
	}
	if s.MonthsElapsed > s.MaxMonths {
		s.MonthsElapsed = s.MaxMonths
	}
	return s
}

func loadListing(doc savegame.Document, p string, farmID int) *domain.Listing {
	id := int64(doc.Int(attr(p, "id"), 0))
	key := doc.String(attr(p, "storeKey"), "")
	if id <= 0 || key == "" {
		log.Warn().Str("path", p).Msg("Skipped saved listing without id or item")
		return nil
	}
	status := domain.ListingStatus(doc.String(attr(p, "status"), string(domain.ListingAvailable)))
	if status != domain.ListingAvailable {
		return nil
	}
	neutral := domain.NeutralReliability

	l := &domain.Listing{
		ID:       id,
		FarmID:   farmID,
		SearchID: int64(doc.Int(attr(p, "searchId"), 0)),
		StoreKey: key,
		Name:     doc.String(attr(p, "name"), key),
		Brand:    doc.String(attr(p, "brand"), ""),
		Quality:  domain.QualityPreference(doc.String(attr(p, "quality"), string(domain.QualityAny))),
		Condition: domain.Condition{
			AgeMonths:      doc.Int(attr(p, "ageMonths"), 0),
			OperatingHours: doc.Float(attr(p, "operatingHours"), 0),
			Damage:         doc.Float(attr(p, "damage"), 0),
			Wear:           doc.Float(attr(p, "wear"), 0),
		},
		Reliability: domain.Reliability{
			Engine:     doc.Float(attr(p, "engine"), neutral.Engine),
			Hydraulic:  doc.Float(attr(p, "hydraulic"), neutral.Hydraulic),
			Electrical: doc.Float(attr(p, "electrical"), neutral.Electrical),
			DNA:        doc.Float(attr(p, "dna"), neutral.DNA),
		},
		Configuration: loadConfig(doc, p),
		Status:        domain.ListingAvailable,
		FoundDay:      doc.Int(attr(p, "foundDay"), 0),
		ExpiresDay:    doc.Int(attr(p, "expiresDay"), 0),
	}
	base := doc.Float(attr(p, "basePrice"), 0)
	commission := doc.Float(attr(p, "commission"), 0)
	l.SetPrice(base, commission)
	if asking := doc.Float(attr(p, "askingPrice"), l.AskingPrice); asking != l.AskingPrice && base == 0 {
		// older saves only carried the asking price
		l.SetPrice(asking-commission, commission)
	}
	return l
}
