// Package host holds the contracts the economy core needs from the game host
// and in-memory implementations used by the standalone server and tests.
package host

import (
	"time"

	"usedplus-economy/internal/domain"
)

// Farms resolves farm balances.
type Farms interface {
	Exists(farmID int) bool
	Balance(farmID int) (float64, error)
	AddMoney(farmID int, amount float64, category domain.MoneyCategory) error
	FarmIDs() []int
}

// Catalog resolves store item keys.
type Catalog interface {
	Item(key string) (*domain.StoreItem, bool)
	Items() []domain.StoreItem
}

// Clock is the in-game time source. Day never decreases.
type Clock interface {
	Day() int
	Hour() int
	SessionTime() time.Duration
}

// Notifier shows messages and dialogs. It never blocks.
type Notifier interface {
	Notify(n domain.Notice)
	ShowDialog(d domain.Dialog)
}

// Spawner turns a bought listing into vehicle instances.
type Spawner interface {
	Spawn(farmID int, l *domain.Listing) ([]domain.ConditionTarget, error)
}

// Vehicles exposes owned vehicles.
type Vehicles interface {
	OwnedBy(farmID int) []Vehicle
	Vehicle(instanceID string) (Vehicle, bool)
}

// Assets appraises what a farm owns.
type Assets interface {
	AssetValue(farmID int) float64
}
