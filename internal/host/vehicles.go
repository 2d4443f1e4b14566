package host

import (
	"errors"
	"fmt"
	"sort"

	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/finance"

	"github.com/google/uuid"
)

// Vehicle is an owned vehicle instance.
type Vehicle struct {
	InstanceID     string                      `json:"instance_id"`
	FarmID         int                         `json:"farm_id"`
	StoreKey       string                      `json:"store_key"`
	Name           string                      `json:"name"`
	Brand          string                      `json:"brand"`
	Price          float64                     `json:"price"`
	Leased         bool                        `json:"leased"`
	Damage         float64                     `json:"damage"`
	Wear           float64                     `json:"wear"`
	Dirt           float64                     `json:"dirt"`
	OperatingHours float64                     `json:"operating_hours"`
	AgeMonths      int                         `json:"age_months"`
	Configuration  map[string]int              `json:"configuration,omitempty"`
	Reliability    *domain.Reliability         `json:"-"`
	Maintenance    *finance.MaintenanceHistory `json:"-"`
}

const msPerHour = 3600 * 1000

// MemoryVehicles is the owned-vehicle registry.
type MemoryVehicles struct {
	byID map[string]*Vehicle
}

func NewMemoryVehicles() *MemoryVehicles {
	return &MemoryVehicles{byID: make(map[string]*Vehicle)}
}

// Add registers v, assigning an instance id when it has none.
func (m *MemoryVehicles) Add(v *Vehicle) *Vehicle {
	if v.InstanceID == "" {
		v.InstanceID = uuid.NewString()
	}
	m.byID[v.InstanceID] = v
	return v
}

func (m *MemoryVehicles) Remove(instanceID string) {
	delete(m.byID, instanceID)
}

func (m *MemoryVehicles) OwnedBy(farmID int) []Vehicle {
	var out []Vehicle
	for _, v := range m.byID {
		if v.FarmID == farmID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out
}

func (m *MemoryVehicles) Vehicle(instanceID string) (Vehicle, bool) {
	v, ok := m.byID[instanceID]
	if !ok {
		return Vehicle{}, false
	}
	return *v, true
}

// AssetValue sums the resale value of owned, non-leased vehicles.
func (m *MemoryVehicles) AssetValue(farmID int) float64 {
	total := 0.0
	for _, v := range m.byID {
		if v.FarmID == farmID && !v.Leased {
			total += v.Price
		}
	}
	return total
}

var ErrSpawnFailed = errors.New("vehicle spawn failed")

// MemorySpawner spawns listings into a MemoryVehicles registry.
type MemorySpawner struct {
	Vehicles *MemoryVehicles
	// Fail makes the next spawns fail, for exercising refunds.
	Fail bool
}

func (s *MemorySpawner) Spawn(farmID int, l *domain.Listing) ([]domain.ConditionTarget, error) {
	if s.Fail {
		return nil, fmt.Errorf("%w: listing %d", ErrSpawnFailed, l.ID)
	}
	cfg := make(map[string]int, len(l.Configuration))
	for k, v := range l.Configuration {
		cfg[k] = v
	}
	v := s.Vehicles.Add(&Vehicle{
		FarmID:        farmID,
		StoreKey:      l.StoreKey,
		Name:          l.Name,
		Brand:         l.Brand,
		Price:         l.BasePrice,
		Configuration: cfg,
	})
	return []domain.ConditionTarget{Target(v)}, nil
}

// Target exposes every condition setter of v.
func Target(v *Vehicle) domain.ConditionTarget {
	return domain.ConditionTarget{
		InstanceID:       v.InstanceID,
		SetDamage:        func(a float64) { v.Damage = a },
		SetWear:          func(a float64) { v.Wear = a },
		SetOperatingTime: func(ms float64) { v.OperatingHours = ms / msPerHour },
		SetAge:           func(months int) { v.AgeMonths = months },
		SetDirt:          func(a float64) { v.Dirt = a },
		SetReliability: func(r domain.Reliability) {
			rel := r
			v.Reliability = &rel
			v.Maintenance = &finance.MaintenanceHistory{
				Engine:        r.Engine,
				Hydraulic:     r.Hydraulic,
				Electrical:    r.Electrical,
				PurchasedUsed: true,
			}
		},
	}
}
