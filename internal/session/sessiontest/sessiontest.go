// Package sessiontest starts a running authoritative session over in-memory
// collaborators for handler tests.
package sessiontest

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/host"
	"usedplus-economy/internal/infrastructure/database"
	"usedplus-economy/internal/session"
	"usedplus-economy/internal/transport"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Catalog has a tractor priced at 100000 and a combine priced at 300000.
const Catalog = `
items:
  - key: tractor
    name: T5
    brand: New Holland
    price: 100000
    configurations:
      - name: wheels
        options: [standard, wide]
  - key: combine
    name: Lexion
    brand: Claas
    price: 300000
`

// StartingBalance is farm 1's money.
const StartingBalance = 500000

// HitRoller makes every search roll succeed.
type HitRoller struct{}

func (HitRoller) Float64() float64 { return 0 }

type Env struct {
	Session  *session.Session
	DB       *gorm.DB
	Farms    *host.MemoryFarms
	Vehicles *host.MemoryVehicles
	Settings *settings.Manager
	Broker   *transport.Loopback
	Notifier *host.LogNotifier
}

// Start runs a session until the test ends. The clock only moves through
// AdvanceHours. mutate may adjust the deps before the session is built.
func Start(t *testing.T, mutate func(*session.Deps)) *Env {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	catalog, err := host.ParseCatalog([]byte(Catalog))
	require.NoError(t, err)
	cfg, err := settings.NewManager("")
	require.NoError(t, err)

	e := &Env{
		DB:       db,
		Farms:    host.NewMemoryFarms(),
		Vehicles: host.NewMemoryVehicles(),
		Settings: cfg,
		Broker:   transport.NewLoopback(),
		Notifier: host.NewLogNotifier(),
	}
	e.Farms.AddFarm(1, StartingBalance)

	deps := session.Deps{
		Authoritative: true,
		DB:            db,
		Settings:      cfg,
		Farms:         e.Farms,
		Catalog:       catalog,
		Clock:         host.NewManualClock(1, 0),
		Notifier:      e.Notifier,
		Spawner:       &host.MemorySpawner{Vehicles: e.Vehicles},
		Vehicles:      e.Vehicles,
		Broker:        e.Broker,
		TickInterval:  time.Hour,
		Rand:          rand.New(rand.NewSource(7)),
		Roller:        HitRoller{},
	}
	if mutate != nil {
		mutate(&deps)
	}
	e.Session, err = session.New(deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Session.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		e.Session.Close()
	})
	return e
}
