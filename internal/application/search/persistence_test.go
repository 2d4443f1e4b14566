package search

import (
	"context"
	"errors"
	"testing"

	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/savegame"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	f := newFixture(t, &scriptedRoller{values: []float64{0.1, 0.9, 0.1, 0.9}}, nil)
	first, err := f.m.Create(CreateRequest{
		FarmID: 1, StoreKey: "tractor", Tier: domain.TierNational, Quality: domain.QualityFair,
		Configuration: map[string]int{"wheels": 1},
	})
	require.NoError(t, err)
	second, err := f.m.Create(CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierRegional})
	require.NoError(t, err)
	require.True(t, f.nextDay())
	require.True(t, f.nextDay())

	tree := savegame.NewTree()
	f.m.Save(tree)

	g := newFixture(t, &scriptedRoller{}, nil)
	g.clock.SetTime(f.clock.Day(), 0)
	g.m.Load(tree)

	for _, id := range []int64{first.ID, second.ID} {
		want, ok := f.m.Search(id)
		require.True(t, ok)
		got, ok := g.m.Search(id)
		require.True(t, ok)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.MonthsElapsed, got.MonthsElapsed)
		assert.Equal(t, want.FoundListings, got.FoundListings)
		assert.Equal(t, want.Tier, got.Tier)
		assert.Equal(t, want.RequestedConfig, got.RequestedConfig)
		assert.InDelta(t, want.MonthlySuccessProbability, got.MonthlySuccessProbability, 1e-6)
	}

	wantListings := f.m.FarmListings(1)
	gotListings := g.m.FarmListings(1)
	require.Len(t, gotListings, len(wantListings))
	require.NotEmpty(t, gotListings)
	for i := range wantListings {
		assert.Equal(t, wantListings[i].ID, gotListings[i].ID)
		assert.Equal(t, wantListings[i].Status, gotListings[i].Status)
		assert.InDelta(t, wantListings[i].AskingPrice, gotListings[i].AskingPrice, 1e-6)
		assert.Equal(t, wantListings[i].Configuration, gotListings[i].Configuration)
		assert.InDelta(t, wantListings[i].Condition.Damage, gotListings[i].Condition.Damage, 1e-6)
	}
	assert.Equal(t, f.m.Stats(1), g.m.Stats(1))

	// counters continue where the saved session stopped
	third, err := g.m.Create(CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierLocal})
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.ID)

	// the day already processed before saving is not rolled again
	assert.False(t, g.m.OnHourChanged())
}

func TestSaveLoadKeepsRenewOffer(t *testing.T) {
	f := newFixture(t, &scriptedRoller{}, nil)
	s, err := f.m.Create(CreateRequest{
		FarmID: 1, StoreKey: "tractor", Tier: domain.TierLocal, Quality: domain.QualityGood,
		Configuration: map[string]int{"wheels": 1},
	})
	require.NoError(t, err)
	require.True(t, f.nextDay())
	require.Equal(t, []int64{s.ID}, f.m.Renewable(1))

	tree := savegame.NewTree()
	f.m.Save(tree)

	g := newFixture(t, &scriptedRoller{}, nil)
	g.clock.SetTime(f.clock.Day(), 0)
	g.m.Load(tree)
	require.Equal(t, []int64{s.ID}, g.m.Renewable(1))

	renewed, err := g.m.Renew(1, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID+1, renewed.ID)
	assert.Equal(t, domain.TierLocal, renewed.Tier)
	assert.Equal(t, domain.QualityGood, renewed.Quality)
	assert.Equal(t, map[string]int{"wheels": 1}, renewed.RequestedConfig)
	assert.Empty(t, g.m.Renewable(1))
}

func TestLoadedRenewOfferStillLapses(t *testing.T) {
	f := newFixture(t, &scriptedRoller{}, nil)
	s, err := f.m.Create(CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierLocal})
	require.NoError(t, err)
	require.True(t, f.nextDay())

	tree := savegame.NewTree()
	f.m.Save(tree)
	g := newFixture(t, &scriptedRoller{}, nil)
	g.clock.SetTime(f.clock.Day(), 0)
	g.m.Load(tree)

	g.clock.SetTime(f.clock.Day()+7, 0)
	require.True(t, g.m.OnHourChanged())
	assert.Empty(t, g.m.Renewable(1))
	assert.True(t, errors.Is(g.m.DeclineRenewal(1, s.ID), ErrSearchNotFound))
}

func TestLoadToleratesMissingFields(t *testing.T) {
	tree := savegame.NewTree()
	farm := savegame.Child(searchesPath, "farm", 0)
	tree.SetInt(attr(farm, "farmId"), 1)

	s0 := savegame.Child(farm, "search", 0)
	tree.SetInt(attr(s0, "id"), 7)
	tree.SetString(attr(s0, "itemKey"), "tractor")
	tree.SetString(attr(s0, "tier"), string(domain.TierRegional))

	s1 := savegame.Child(farm, "search", 1)
	tree.SetString(attr(s1, "itemKey"), "tractor")

	l0 := savegame.Child(farm, "listing", 0)
	tree.SetInt(attr(l0, "id"), 4)
	tree.SetInt(attr(l0, "searchId"), 7)
	tree.SetString(attr(l0, "storeKey"), "tractor")
	tree.SetFloat(attr(l0, "askingPrice"), 55000)

	f := newFixture(t, &scriptedRoller{}, nil)
	f.m.Load(tree)

	s, ok := f.m.Search(7)
	require.True(t, ok)
	assert.Equal(t, domain.SearchActive, s.Status)
	assert.Equal(t, 3, s.MaxMonths)
	assert.Equal(t, 3, s.MaxListings)
	assert.Equal(t, domain.QualityAny, s.Quality)
	assert.Equal(t, []int64{4}, s.FoundListings)
	assert.Equal(t, 1, f.m.ActiveSearchCount(), "record without id is skipped")

	l, ok := f.m.Listing(4)
	require.True(t, ok)
	assert.Equal(t, 55000.0, l.AskingPrice)
	assert.Equal(t, domain.NeutralReliability, l.Reliability)

	next, err := f.m.Create(CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierLocal})
	require.NoError(t, err)
	assert.Equal(t, int64(8), next.ID)
}

func TestAuditLogWritesEvents(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.SearchEvent{}))
	audit := &AuditLog{DB: db}

	f := newFixture(t, &scriptedRoller{}, func(d *Deps) { d.Events = audit })
	s, err := f.m.Create(CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierRegional})
	require.NoError(t, err)
	require.NoError(t, f.m.Cancel(1, s.ID))

	events, err := audit.SearchEvents(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	types := []string{events[0].EventType, events[1].EventType}
	assert.ElementsMatch(t, []string{domain.SearchEventCreated, domain.SearchEventCancelled}, types)

	farmEvents, err := audit.FarmEvents(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, farmEvents, 2)
}
