package session

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"usedplus-economy/internal/application/ledger"
	"usedplus-economy/internal/application/search"
	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/host"
	"usedplus-economy/internal/transport"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testCatalog = `
items:
  - key: tractor
    name: T5
    brand: New Holland
    price: 100000
    configurations:
      - name: wheels
        options: [standard, wide]
`

type alwaysHit struct{}

func (alwaysHit) Float64() float64 { return 0 }

type env struct {
	session  *Session
	farms    *host.MemoryFarms
	vehicles *host.MemoryVehicles
	settings *settings.Manager
	broker   *transport.Loopback
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.FinanceDeal{}, &domain.DealEvent{}, &domain.SearchEvent{}, &domain.SaveEntry{}))
	return db
}

func start(t *testing.T, db *gorm.DB, mutate func(*Deps)) *env {
	t.Helper()
	catalog, err := host.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	cfg, err := settings.NewManager("")
	require.NoError(t, err)

	e := &env{
		farms:    host.NewMemoryFarms(),
		vehicles: host.NewMemoryVehicles(),
		settings: cfg,
		broker:   transport.NewLoopback(),
	}
	e.farms.AddFarm(1, 500000)

	deps := Deps{
		Authoritative: true,
		DB:            db,
		Settings:      cfg,
		Farms:         e.farms,
		Catalog:       catalog,
		Clock:         host.NewManualClock(1, 0),
		Notifier:      host.NewLogNotifier(),
		Spawner:       &host.MemorySpawner{Vehicles: e.vehicles},
		Vehicles:      e.vehicles,
		Broker:        e.broker,
		TickInterval:  time.Hour,
		Rand:          rand.New(rand.NewSource(7)),
		Roller:        alwaysHit{},
	}
	if mutate != nil {
		mutate(&deps)
	}
	e.session, err = New(deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.session.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		e.session.Close()
	})
	return e
}

func published[T transport.Event](b *transport.Loopback) []T {
	var out []T
	for _, ev := range b.Published() {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestSearchThroughPurchase(t *testing.T) {
	e := start(t, openDB(t), nil)
	ctx := context.Background()

	s, err := e.session.CreateSearch(ctx, search.CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierRegional})
	require.NoError(t, err)
	assert.Equal(t, domain.SearchActive, s.Status)
	assert.NotEmpty(t, published[transport.SearchUpserted](e.broker))

	st, err := e.session.AdvanceHours(ctx, 24)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Day)
	assert.Equal(t, 1, st.AvailableListings)

	view, err := e.session.Farm(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Listings, 1)
	listing := view.Listings[0]
	assert.Equal(t, s.ID, listing.SearchID)
	assert.NotEmpty(t, published[transport.ListingUpserted](e.broker))

	res, err := e.session.PurchaseConfirmed(ctx, 1, listing.ID)
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)

	owned := e.vehicles.OwnedBy(1)
	require.Len(t, owned, 1)
	assert.InDelta(t, listing.Condition.Damage, owned[0].Damage, 1e-9)

	st, err = e.session.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.ActiveSearches)
	assert.Zero(t, st.AvailableListings)

	view, err = e.session.Farm(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Stats.ListingsPurchased)

	history, err := e.session.SearchHistory(ctx, 1, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}

func TestDailyWorkRunsOncePerDay(t *testing.T) {
	e := start(t, openDB(t), nil)
	ctx := context.Background()

	deal, err := e.session.CreateCashLoan(ctx, ledger.CashLoanRequest{FarmID: 1, Amount: 12000, TermMonths: 24})
	require.NoError(t, err)

	_, err = e.session.AdvanceHours(ctx, 23)
	require.NoError(t, err)
	deals, err := e.session.Deals(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Zero(t, deals[0].MonthsPaid)

	_, err = e.session.AdvanceHours(ctx, 1)
	require.NoError(t, err)
	_, err = e.session.AdvanceHours(ctx, 5)
	require.NoError(t, err)

	deals, err = e.session.Deals(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, deal.DealID, deals[0].DealID)
	assert.Equal(t, 1, deals[0].MonthsPaid)
	assert.NotEmpty(t, published[transport.DealUpdated](e.broker))

	report, err := e.session.CreditReport(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Payments)
}

func TestApplySettings(t *testing.T) {
	e := start(t, openDB(t), nil)
	ctx := context.Background()
	change := settings.SingleChange{Key: settings.ListingExpiryDays, Value: 10}

	applied, err := e.session.ApplySettings(ctx, domain.Actor{FarmID: 1}, change)
	require.NoError(t, err)
	assert.Nil(t, applied)
	assert.Equal(t, 7, e.settings.Int(settings.ListingExpiryDays))
	assert.Empty(t, published[transport.SettingsChanged](e.broker))

	applied, err = e.session.ApplySettings(ctx, domain.Actor{FarmID: 1, Privileged: true}, change)
	require.NoError(t, err)
	assert.Equal(t, 10, applied[settings.ListingExpiryDays])
	assert.Equal(t, 10, e.settings.Int(settings.ListingExpiryDays))
	require.Len(t, published[transport.SettingsChanged](e.broker), 1)

	_, err = e.session.ApplySettings(ctx, domain.Actor{Privileged: true}, settings.SingleChange{Key: "nope", Value: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSaveAndLoad(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	first := start(t, db, nil)
	s, err := first.session.CreateSearch(ctx, search.CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierNational})
	require.NoError(t, err)
	_, err = first.session.AdvanceHours(ctx, 30)
	require.NoError(t, err)
	_, err = first.session.ApplySettings(ctx, domain.Actor{Privileged: true}, settings.SingleChange{Key: settings.TradeInPercent, Value: 65})
	require.NoError(t, err)
	saved, err := first.session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Day)
	assert.Positive(t, saved.Entries)

	second := start(t, db, nil)
	ok, err := second.session.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	st, err := second.session.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Day)
	assert.Equal(t, 6, st.Hour)
	assert.InDelta(t, 65, second.settings.Float(settings.TradeInPercent), 1e-9)

	view, err := second.session.Farm(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Searches, 1)
	assert.Equal(t, s.ID, view.Searches[0].ID)
	assert.Len(t, view.Listings, 1)
}

func TestLoadWithoutSave(t *testing.T) {
	e := start(t, openDB(t), func(d *Deps) { d.SaveSlot = "empty" })
	ok, err := e.session.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollower(t *testing.T) {
	events := make(chan transport.Event, 1)
	e := start(t, openDB(t), func(d *Deps) {
		d.Authoritative = false
		d.Events = events
	})
	ctx := context.Background()

	_, err := e.session.CreateSearch(ctx, search.CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierLocal})
	assert.ErrorIs(t, err, ErrFollower)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = e.session.ApplySettings(ctx, domain.Actor{Privileged: true}, settings.PresetChange{Preset: settings.PresetEasy})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	events <- transport.SettingsChanged{Values: map[string]any{settings.ListingExpiryDays: 12}}
	assert.Eventually(t, func() bool {
		return e.settings.Int(settings.ListingExpiryDays) == 12
	}, time.Second, 10*time.Millisecond)

	events <- transport.SearchUpserted{Search: &domain.Search{ID: 4, FarmID: 1, Status: domain.SearchActive}}
	assert.Eventually(t, func() bool {
		view, err := e.session.Farm(ctx, 1)
		return err == nil && len(view.Searches) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClosedSessionRefusesCommands(t *testing.T) {
	e := start(t, openDB(t), nil)
	e.session.Close()
	_, err := e.session.Status(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
