package host

import (
	"fmt"
	"sort"

	"usedplus-economy/internal/domain"

	"github.com/rs/zerolog/log"
)

var ErrFarmNotFound = fmt.Errorf("farm: %w", domain.ErrNotFound)

// MemoryFarms keeps balances in a map. It does not refuse overdrafts; callers
// check funds first.
type MemoryFarms struct {
	balances map[int]float64
	ledger   map[domain.MoneyCategory]float64
}

func NewMemoryFarms() *MemoryFarms {
	return &MemoryFarms{
		balances: make(map[int]float64),
		ledger:   make(map[domain.MoneyCategory]float64),
	}
}

// AddFarm registers a farm with a starting balance.
func (f *MemoryFarms) AddFarm(farmID int, balance float64) {
	f.balances[farmID] = balance
}

func (f *MemoryFarms) Exists(farmID int) bool {
	_, ok := f.balances[farmID]
	return ok
}

func (f *MemoryFarms) Balance(farmID int) (float64, error) {
	b, ok := f.balances[farmID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrFarmNotFound, farmID)
	}
	return b, nil
}

func (f *MemoryFarms) AddMoney(farmID int, amount float64, category domain.MoneyCategory) error {
	if _, ok := f.balances[farmID]; !ok {
		return fmt.Errorf("%w: %d", ErrFarmNotFound, farmID)
	}
	f.balances[farmID] += amount
	f.ledger[category] += amount
	log.Debug().Int("farm_id", farmID).Float64("amount", amount).Str("category", string(category)).Msg("Balance changed")
	return nil
}

func (f *MemoryFarms) FarmIDs() []int {
	ids := make([]int, 0, len(f.balances))
	for id := range f.balances {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CategoryTotal sums every change booked under category.
func (f *MemoryFarms) CategoryTotal(category domain.MoneyCategory) float64 {
	return f.ledger[category]
}
