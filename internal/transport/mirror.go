package transport

import (
	"sort"
	"sync"

	"usedplus-economy/internal/domain"

	"github.com/google/uuid"
)

// Mirror is a follower's read-only copy of authoritative state, kept
// current by applying broadcast events.
type Mirror struct {
	mu       sync.RWMutex
	searches map[int64]*domain.Search
	listings map[int64]*domain.Listing
	deals    map[uuid.UUID]domain.FinanceDeal
	stats    map[int]domain.FarmStats
	settings map[string]any

	// OnSettings, when set, receives every settings broadcast.
	OnSettings func(values map[string]any)
}

func NewMirror() *Mirror {
	return &Mirror{
		searches: make(map[int64]*domain.Search),
		listings: make(map[int64]*domain.Listing),
		deals:    make(map[uuid.UUID]domain.FinanceDeal),
		stats:    make(map[int]domain.FarmStats),
		settings: make(map[string]any),
	}
}

func (m *Mirror) Apply(ev Event) {
	m.mu.Lock()
	switch e := ev.(type) {
	case SearchUpserted:
		if e.Search != nil {
			m.searches[e.Search.ID] = e.Search.Clone()
		}
	case SearchRemoved:
		delete(m.searches, e.SearchID)
	case ListingUpserted:
		if e.Listing != nil {
			m.listings[e.Listing.ID] = e.Listing.Clone()
		}
	case ListingRemoved:
		delete(m.listings, e.ListingID)
	case DealUpdated:
		m.deals[e.Deal.DealID] = e.Deal
	case StatsUpdated:
		m.stats[e.FarmID] = e.Stats
	case SettingsChanged:
		for k, v := range e.Values {
			m.settings[k] = v
		}
	}
	hook := m.OnSettings
	m.mu.Unlock()

	if sc, ok := ev.(SettingsChanged); ok && hook != nil {
		hook(sc.Values)
	}
}

// Run applies events from a subscription until it closes.
func (m *Mirror) Run(events <-chan Event) {
	for ev := range events {
		m.Apply(ev)
	}
}

func (m *Mirror) Searches(farmID int) []*domain.Search {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Search
	for _, s := range m.searches {
		if s.FarmID == farmID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Mirror) Listings(farmID int) []*domain.Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Listing
	for _, l := range m.listings {
		if l.FarmID == farmID {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Mirror) Deals(farmID int) []domain.FinanceDeal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.FinanceDeal
	for _, d := range m.deals {
		if d.FarmID == farmID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedDay < out[j].CreatedDay })
	return out
}

func (m *Mirror) Stats(farmID int) domain.FarmStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats[farmID]
}

func (m *Mirror) Setting(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	return v, ok
}
