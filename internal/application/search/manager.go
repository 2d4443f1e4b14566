// Package search runs the used-vehicle agent: players pay a retainer, the
// agent rolls once per in-game month for listings, and players buy one of
// them or let the search run out.
package search

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/host"
	"usedplus-economy/internal/transport"
)

// Settings is the subset of the settings provider the agent reads.
type Settings interface {
	Float(key string) float64
	Int(key string) int
	Bool(key string) bool
}

// Roller decides monthly success. *rand.Rand satisfies it.
type Roller interface {
	Float64() float64
}

// ReliabilityGenerator synthesizes hidden reliability scores.
type ReliabilityGenerator interface {
	DNA(bias float64) float64
	Generate(c domain.Condition, dna float64) domain.Reliability
}

// CreditScorer returns a farm's last known credit score.
type CreditScorer interface {
	CachedScore(farmID int) int
}

// EventRecorder stores audit rows.
type EventRecorder interface {
	Record(ev domain.SearchEvent)
}

// Publisher receives state changes for followers.
type Publisher interface {
	Publish(ev transport.Event)
}

// Deps wires a Manager. Farms, Catalog, Clock and Settings are required.
type Deps struct {
	Farms    host.Farms
	Catalog  host.Catalog
	Clock    host.Clock
	Settings Settings

	Notifier    host.Notifier
	Spawner     host.Spawner
	Reliability ReliabilityGenerator
	Credit      CreditScorer
	Events      EventRecorder
	Publisher   Publisher

	// Roller drives monthly success rolls; Rand drives listing synthesis.
	Roller Roller
	Rand   *rand.Rand
	// Tiers overrides DefaultTiers.
	Tiers map[domain.SearchTier]TierParams
}

// Manager owns every search and listing. It is not safe for concurrent use;
// the session serialises calls.
type Manager struct {
	farms       host.Farms
	catalog     host.Catalog
	clock       host.Clock
	settings    Settings
	notifier    host.Notifier
	spawner     host.Spawner
	reliability ReliabilityGenerator
	credit      CreditScorer
	events      EventRecorder
	publisher   Publisher
	roller      Roller
	rnd         *rand.Rand
	tiers       map[domain.SearchTier]TierParams

	searches     map[int64]*domain.Search
	listings     map[int64]*domain.Listing
	farmSearches map[int][]int64
	farmListings map[int][]int64
	stats        map[int]*domain.FarmStats
	renewable    map[int64]renewal
	conditioned  map[string]struct{}

	nextSearchID     int64
	nextListingID    int64
	lastProcessedDay int
}

func New(d Deps) (*Manager, error) {
	if d.Farms == nil || d.Catalog == nil || d.Clock == nil || d.Settings == nil {
		return nil, errors.New("search manager needs farms, catalog, clock and settings")
	}
	m := &Manager{
		farms:       d.Farms,
		catalog:     d.Catalog,
		clock:       d.Clock,
		settings:    d.Settings,
		notifier:    d.Notifier,
		spawner:     d.Spawner,
		reliability: d.Reliability,
		credit:      d.Credit,
		events:      d.Events,
		publisher:   d.Publisher,
		roller:      d.Roller,
		rnd:         d.Rand,
		tiers:       d.Tiers,
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.rnd == nil {
		m.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.roller == nil {
		m.roller = m.rnd
	}
	if m.tiers == nil {
		m.tiers = DefaultTiers
	}
	m.reset()
	m.lastProcessedDay = m.clock.Day()
	return m, nil
}

func (m *Manager) reset() {
	m.searches = make(map[int64]*domain.Search)
	m.listings = make(map[int64]*domain.Listing)
	m.farmSearches = make(map[int][]int64)
	m.farmListings = make(map[int][]int64)
	m.stats = make(map[int]*domain.FarmStats)
	m.renewable = make(map[int64]renewal)
	m.conditioned = make(map[string]struct{})
	m.nextSearchID = 1
	m.nextListingID = 1
}

// Close drops all in-memory state.
func (m *Manager) Close() {
	m.reset()
}

// renewal is the renew offer of a search that completed by cap. The offer
// lapses with the search's listings.
type renewal struct {
	req        CreateRequest
	expiresDay int
}

type nopNotifier struct{}

func (nopNotifier) Notify(domain.Notice)     {}
func (nopNotifier) ShowDialog(domain.Dialog) {}

// registry helpers: the maps are the only owners, the farm indexes only
// hold ids.

func (m *Manager) addSearch(s *domain.Search) {
	m.searches[s.ID] = s
	m.farmSearches[s.FarmID] = append(m.farmSearches[s.FarmID], s.ID)
}

func (m *Manager) removeSearch(id int64) {
	s, ok := m.searches[id]
	if !ok {
		return
	}
	delete(m.searches, id)
	m.farmSearches[s.FarmID] = without(m.farmSearches[s.FarmID], id)
	if len(m.farmSearches[s.FarmID]) == 0 {
		delete(m.farmSearches, s.FarmID)
	}
}

func (m *Manager) addListing(l *domain.Listing) {
	m.listings[l.ID] = l
	m.farmListings[l.FarmID] = append(m.farmListings[l.FarmID], l.ID)
}

func (m *Manager) removeListing(id int64) {
	l, ok := m.listings[id]
	if !ok {
		return
	}
	delete(m.listings, id)
	m.farmListings[l.FarmID] = without(m.farmListings[l.FarmID], id)
	if len(m.farmListings[l.FarmID]) == 0 {
		delete(m.farmListings, l.FarmID)
	}
}

func without(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (m *Manager) farmStats(farmID int) *domain.FarmStats {
	st, ok := m.stats[farmID]
	if !ok {
		st = &domain.FarmStats{}
		m.stats[farmID] = st
	}
	return st
}

func (m *Manager) publish(ev transport.Event) {
	if m.publisher != nil {
		m.publisher.Publish(ev)
	}
}

func (m *Manager) publishStats(farmID int) {
	m.publish(transport.StatsUpdated{FarmID: farmID, Stats: *m.farmStats(farmID)})
}

// Search returns a copy of an active search.
func (m *Manager) Search(id int64) (*domain.Search, bool) {
	s, ok := m.searches[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Listing returns a copy of an available listing.
func (m *Manager) Listing(id int64) (*domain.Listing, bool) {
	l, ok := m.listings[id]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

func (m *Manager) FarmSearches(farmID int) []*domain.Search {
	ids := m.farmSearches[farmID]
	out := make([]*domain.Search, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.searches[id].Clone())
	}
	return out
}

func (m *Manager) FarmListings(farmID int) []*domain.Listing {
	ids := m.farmListings[farmID]
	out := make([]*domain.Listing, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.listings[id].Clone())
	}
	return out
}

func (m *Manager) ActiveSearchCount() int { return len(m.searches) }

func (m *Manager) AvailableListingCount() int { return len(m.listings) }

func (m *Manager) Stats(farmID int) domain.FarmStats {
	if st, ok := m.stats[farmID]; ok {
		return *st
	}
	return domain.FarmStats{}
}

// Renewable lists completed searches of a farm that can still be renewed.
func (m *Manager) Renewable(farmID int) []int64 {
	var out []int64
	for id, r := range m.renewable {
		if r.req.FarmID == farmID {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Manager) farmIDs() []int {
	seen := make(map[int]struct{})
	for id := range m.farmSearches {
		seen[id] = struct{}{}
	}
	for id := range m.farmListings {
		seen[id] = struct{}{}
	}
	for _, r := range m.renewable {
		seen[r.req.FarmID] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
