// Package credit scores farms from their payment history and leverage.
package credit

import (
	"context"
	"fmt"
	"sync"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/finance"
	"usedplus-economy/internal/host"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	paymentPoints   = 5
	paymentCap      = 100
	missedPoints    = -25
	defaultedPoints = -150
)

var ErrFarmNotFound = fmt.Errorf("farm: %w", domain.ErrNotFound)

type Settings interface {
	Int(key string) int
}

type Service struct {
	DB       *gorm.DB
	Farms    host.Farms
	Assets   host.Assets
	Settings Settings

	mu    sync.RWMutex
	cache map[int]int
}

// Report breaks a score down into its parts.
type Report struct {
	FarmID            int                `json:"farm_id"`
	Score             int                `json:"score"`
	Tier              finance.CreditTier `json:"tier"`
	Base              int                `json:"base"`
	HistoryAdjustment int                `json:"history_adjustment"`
	DebtAdjustment    int                `json:"debt_adjustment"`
	Payments          int64              `json:"payments"`
	Missed            int64              `json:"missed"`
	Defaults          int64              `json:"defaults"`
	Debt              float64            `json:"debt"`
	Assets            float64            `json:"assets"`
	DebtRatio         float64            `json:"debt_ratio"`
}

// Report computes the farm's score from scratch and caches it.
func (s *Service) Report(ctx context.Context, farmID int) (*Report, error) {
	if s.Farms != nil && !s.Farms.Exists(farmID) {
		return nil, fmt.Errorf("%w: %d", ErrFarmNotFound, farmID)
	}
	r := &Report{FarmID: farmID, Base: s.base()}

	var rows []struct {
		EventType string
		N         int64
	}
	err := s.DB.WithContext(ctx).Model(&domain.DealEvent{}).
		Select("event_type, COUNT(*) AS n").
		Where("farm_id = ? AND event_type IN ?", farmID, []string{
			domain.DealEventPayment, domain.DealEventMissed, domain.DealEventDefaulted,
		}).
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		switch row.EventType {
		case domain.DealEventPayment:
			r.Payments = row.N
		case domain.DealEventMissed:
			r.Missed = row.N
		case domain.DealEventDefaulted:
			r.Defaults = row.N
		}
	}
	r.HistoryAdjustment = HistoryAdjustment(r.Payments, r.Missed, r.Defaults)

	err = s.DB.WithContext(ctx).Model(&domain.FinanceDeal{}).
		Where("farm_id = ? AND status = ?", farmID, domain.DealActive).
		Select("COALESCE(SUM(current_balance), 0)").
		Scan(&r.Debt).Error
	if err != nil {
		return nil, err
	}
	r.Assets = s.assets(farmID)
	r.DebtAdjustment, r.DebtRatio = DebtAdjustment(r.Debt, r.Assets)

	r.Score = finance.ClampCreditScore(r.Base + r.HistoryAdjustment + r.DebtAdjustment)
	r.Tier = finance.TierForScore(r.Score)

	s.store(farmID, r.Score)
	log.Debug().Int("farm_id", farmID).Int("score", r.Score).Float64("debt_ratio", r.DebtRatio).Msg("Credit score computed")
	return r, nil
}

func (s *Service) Score(ctx context.Context, farmID int) (int, error) {
	r, err := s.Report(ctx, farmID)
	if err != nil {
		return 0, err
	}
	return r.Score, nil
}

// CachedScore returns the last computed score without touching the database.
// Farms never scored get the starting score.
func (s *Service) CachedScore(farmID int) int {
	s.mu.RLock()
	score, ok := s.cache[farmID]
	s.mu.RUnlock()
	if ok {
		return score
	}
	return finance.ClampCreditScore(s.base())
}

// Refresh recomputes the cached scores of farmIDs.
func (s *Service) Refresh(ctx context.Context, farmIDs []int) error {
	for _, id := range farmIDs {
		if _, err := s.Report(ctx, id); err != nil {
			return fmt.Errorf("refresh credit for farm %d: %w", id, err)
		}
	}
	return nil
}

func (s *Service) store(farmID, score int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		s.cache = make(map[int]int)
	}
	s.cache[farmID] = score
}

func (s *Service) base() int {
	if s.Settings == nil {
		return finance.DefaultCreditScore
	}
	if v := s.Settings.Int(settings.StartingCreditScore); v > 0 {
		return v
	}
	return finance.DefaultCreditScore
}

// assets is owned equipment plus any positive cash balance.
func (s *Service) assets(farmID int) float64 {
	total := 0.0
	if s.Assets != nil {
		total += s.Assets.AssetValue(farmID)
	}
	if s.Farms != nil {
		if b, err := s.Farms.Balance(farmID); err == nil && b > 0 {
			total += b
		}
	}
	return total
}

// HistoryAdjustment rewards on-time payments (capped) and punishes misses and
// defaults.
func HistoryAdjustment(payments, missed, defaults int64) int {
	bonus := int(payments) * paymentPoints
	if bonus > paymentCap {
		bonus = paymentCap
	}
	return bonus + int(missed)*missedPoints + int(defaults)*defaultedPoints
}

// DebtAdjustment scores the debt-to-asset ratio. No debt counts as the best
// band; debt with no assets counts as the worst.
func DebtAdjustment(debt, assets float64) (points int, ratio float64) {
	switch {
	case debt <= 0:
		ratio = 0
	case assets <= 0:
		return -100, 1
	default:
		ratio = debt / assets
	}
	switch {
	case ratio < 0.2:
		return 50, ratio
	case ratio < 0.5:
		return 0, ratio
	case ratio < 0.8:
		return -50, ratio
	default:
		return -100, ratio
	}
}
