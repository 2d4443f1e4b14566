// Package ledger keeps finance deals, leases and cash loans, and collects
// their monthly payments.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/finance"
	"usedplus-economy/internal/host"
	"usedplus-economy/internal/transport"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Settings interface {
	Float(key string) float64
	Int(key string) int
	Bool(key string) bool
}

// CreditScorer computes a farm's current credit score.
type CreditScorer interface {
	Score(ctx context.Context, farmID int) (int, error)
}

type Publisher interface {
	Publish(ev transport.Event)
}

type Service struct {
	DB        *gorm.DB
	Farms     host.Farms
	Clock     host.Clock
	Settings  Settings
	Credit    CreditScorer
	Publisher Publisher
}

// FinanceRequest asks for a vehicle or land finance deal.
type FinanceRequest struct {
	FarmID             int             `json:"farm_id"`
	Kind               domain.DealKind `json:"kind"`
	StoreKey           string          `json:"store_key"`
	ItemName           string          `json:"item_name"`
	AssetInstanceID    *uuid.UUID      `json:"asset_instance_id,omitempty"`
	Price              float64         `json:"price"`
	DownPaymentPercent float64         `json:"down_payment_percent"`
	TermMonths         int             `json:"term_months"`
}

// LeaseRequest asks for a lease.
type LeaseRequest struct {
	FarmID             int        `json:"farm_id"`
	StoreKey           string     `json:"store_key"`
	ItemName           string     `json:"item_name"`
	AssetInstanceID    *uuid.UUID `json:"asset_instance_id,omitempty"`
	Price              float64    `json:"price"`
	DownPaymentPercent float64    `json:"down_payment_percent"`
	TermMonths         int        `json:"term_months"`
}

// CashLoanRequest asks for money against the farm's credit.
type CashLoanRequest struct {
	FarmID     int     `json:"farm_id"`
	Amount     float64 `json:"amount"`
	TermMonths int     `json:"term_months"`
}

// DealQuote is the full price of a deal before it is signed. InterestRate is
// a decimal fraction; InterestPercent is for display.
type DealQuote struct {
	Kind            domain.DealKind    `json:"kind"`
	CreditScore     int                `json:"credit_score"`
	CreditTier      finance.CreditTier `json:"credit_tier"`
	Price           float64            `json:"price"`
	DownPayment     float64            `json:"down_payment"`
	Principal       float64            `json:"principal"`
	TermMonths      int                `json:"term_months"`
	InterestRate    float64            `json:"interest_rate"`
	InterestPercent float64            `json:"interest_percent"`
	MonthlyPayment  float64            `json:"monthly_payment"`
	TotalInterest   float64            `json:"total_interest"`
	ResidualValue   float64            `json:"residual_value,omitempty"`
	SecurityDeposit float64            `json:"security_deposit,omitempty"`
	UpfrontCost     float64            `json:"upfront_cost"`
}

type moneyMove struct {
	amount   float64
	category domain.MoneyCategory
}

func (s *Service) score(ctx context.Context, farmID int) int {
	fallback := s.Settings.Int(settings.StartingCreditScore)
	if s.Credit == nil {
		return finance.ClampCreditScore(fallback)
	}
	score, err := s.Credit.Score(ctx, farmID)
	if err != nil {
		log.Warn().Err(err).Int("farm_id", farmID).Msg("Credit score unavailable, using starting score")
		return finance.ClampCreditScore(fallback)
	}
	return score
}

func (s *Service) QuoteFinance(ctx context.Context, req FinanceRequest) (*DealQuote, error) {
	if !s.Settings.Bool(settings.EnableFinance) {
		return nil, ErrFinanceDisabled
	}
	var (
		kind    finance.Kind
		table   finance.RateTable
		cat     finance.Category
		baseKey string
	)
	switch req.Kind {
	case domain.DealVehicleFinance:
		kind, table, cat, baseKey = finance.KindVehicle, finance.VehicleRates(), finance.CategoryVehicleFinance, settings.VehicleBaseRate
	case domain.DealLandFinance:
		kind, table, cat, baseKey = finance.KindLand, finance.LandRates(), finance.CategoryLandFinance, settings.LandBaseRate
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, req.Kind)
	}
	if !s.Farms.Exists(req.FarmID) {
		return nil, fmt.Errorf("%w: %d", ErrFarmNotFound, req.FarmID)
	}
	if v := finance.ValidateDeal(kind, req.Price, req.DownPaymentPercent, req.TermMonths); !v.OK {
		return nil, invalid(v.Reason)
	}

	score := s.score(ctx, req.FarmID)
	price := req.Price
	if kind == finance.KindLand {
		price = roundCents(price * finance.LandPriceModifier(score))
	}
	down := roundCents(price * req.DownPaymentPercent)
	principal := price - down
	if v := finance.ValidatePrincipal(cat, principal); !v.OK {
		return nil, invalid(v.Reason)
	}

	rate := table.WithBase(s.Settings.Float(baseKey)).Rate(score, req.TermMonths, req.DownPaymentPercent)
	payment := finance.MonthlyPayment(principal, rate, req.TermMonths)
	return &DealQuote{
		Kind:            req.Kind,
		CreditScore:     score,
		CreditTier:      finance.TierForScore(score),
		Price:           price,
		DownPayment:     down,
		Principal:       principal,
		TermMonths:      req.TermMonths,
		InterestRate:    rate,
		InterestPercent: finance.Percent(rate),
		MonthlyPayment:  payment,
		TotalInterest:   finance.TotalInterest(payment, req.TermMonths, principal),
		UpfrontCost:     down,
	}, nil
}

func (s *Service) QuoteLease(ctx context.Context, req LeaseRequest) (*DealQuote, error) {
	if !s.Settings.Bool(settings.EnableLeasing) {
		return nil, ErrLeasingDisabled
	}
	if !s.Farms.Exists(req.FarmID) {
		return nil, fmt.Errorf("%w: %d", ErrFarmNotFound, req.FarmID)
	}
	if v := finance.ValidateDeal(finance.KindLease, req.Price, req.DownPaymentPercent, req.TermMonths); !v.OK {
		return nil, invalid(v.Reason)
	}
	down := roundCents(req.Price * req.DownPaymentPercent)
	if v := finance.ValidatePrincipal(finance.CategoryLease, req.Price-down); !v.OK {
		return nil, invalid(v.Reason)
	}

	score := s.score(ctx, req.FarmID)
	rate := finance.LeaseRates().WithBase(s.Settings.Float(settings.LeaseBaseRate)).Rate(score, req.TermMonths, req.DownPaymentPercent)
	residual := finance.ResidualValue(req.Price, float64(req.TermMonths))
	payment := finance.LeasePayment(req.Price, residual, req.TermMonths, rate)
	deposit := finance.SecurityDeposit(score, payment)

	return &DealQuote{
		Kind:            domain.DealLease,
		CreditScore:     score,
		CreditTier:      finance.TierForScore(score),
		Price:           req.Price,
		DownPayment:     down,
		Principal:       req.Price - down,
		TermMonths:      req.TermMonths,
		InterestRate:    rate,
		InterestPercent: finance.Percent(rate),
		MonthlyPayment:  payment,
		TotalInterest:   math.Max(0, payment*float64(req.TermMonths)+down-(req.Price-residual)),
		ResidualValue:   residual,
		SecurityDeposit: deposit,
		UpfrontCost:     down + deposit,
	}, nil
}

func (s *Service) QuoteCashLoan(ctx context.Context, req CashLoanRequest) (*DealQuote, error) {
	if !s.Settings.Bool(settings.EnableFinance) {
		return nil, ErrFinanceDisabled
	}
	if !s.Farms.Exists(req.FarmID) {
		return nil, fmt.Errorf("%w: %d", ErrFarmNotFound, req.FarmID)
	}
	if v := finance.ValidatePrincipal(finance.CategoryCashLoan, req.Amount); !v.OK {
		return nil, invalid(v.Reason)
	}
	if v := finance.ValidateTerm(finance.KindVehicle, req.TermMonths); !v.OK {
		return nil, invalid(v.Reason)
	}
	score := s.score(ctx, req.FarmID)
	rate := finance.VehicleRates().WithBase(s.Settings.Float(settings.VehicleBaseRate)).Rate(score, req.TermMonths, 0)
	payment := finance.MonthlyPayment(req.Amount, rate, req.TermMonths)
	return &DealQuote{
		Kind:            domain.DealCashLoan,
		CreditScore:     score,
		CreditTier:      finance.TierForScore(score),
		Principal:       req.Amount,
		TermMonths:      req.TermMonths,
		InterestRate:    rate,
		InterestPercent: finance.Percent(rate),
		MonthlyPayment:  payment,
		TotalInterest:   finance.TotalInterest(payment, req.TermMonths, req.Amount),
	}, nil
}

func (s *Service) CreateFinanceDeal(ctx context.Context, req FinanceRequest) (*domain.FinanceDeal, error) {
	q, err := s.QuoteFinance(ctx, req)
	if err != nil {
		log.Warn().Err(err).Int("farm_id", req.FarmID).Str("kind", string(req.Kind)).Float64("price", req.Price).Msg("Finance deal refused")
		return nil, err
	}
	deal := &domain.FinanceDeal{
		FarmID:          req.FarmID,
		Kind:            req.Kind,
		StoreKey:        req.StoreKey,
		AssetInstanceID: req.AssetInstanceID,
		ItemName:        req.ItemName,
		Price:           q.Price,
		DownPayment:     q.DownPayment,
		Principal:       q.Principal,
		TermMonths:      q.TermMonths,
		InterestRate:    q.InterestRate,
		MonthlyPayment:  q.MonthlyPayment,
		CurrentBalance:  q.Principal,
	}
	return deal, s.open(ctx, deal, []moneyMove{{-q.DownPayment, domain.MoneyDownPayment}})
}

func (s *Service) CreateLease(ctx context.Context, req LeaseRequest) (*domain.FinanceDeal, error) {
	q, err := s.QuoteLease(ctx, req)
	if err != nil {
		log.Warn().Err(err).Int("farm_id", req.FarmID).Float64("price", req.Price).Msg("Lease refused")
		return nil, err
	}
	deal := &domain.FinanceDeal{
		FarmID:          req.FarmID,
		Kind:            domain.DealLease,
		StoreKey:        req.StoreKey,
		AssetInstanceID: req.AssetInstanceID,
		ItemName:        req.ItemName,
		Price:           q.Price,
		DownPayment:     q.DownPayment,
		Principal:       q.Principal,
		TermMonths:      q.TermMonths,
		InterestRate:    q.InterestRate,
		MonthlyPayment:  q.MonthlyPayment,
		CurrentBalance:  roundCents(q.MonthlyPayment * float64(q.TermMonths)),
		ResidualValue:   q.ResidualValue,
		SecurityDeposit: q.SecurityDeposit,
	}
	return deal, s.open(ctx, deal, []moneyMove{
		{-q.DownPayment, domain.MoneyDownPayment},
		{-q.SecurityDeposit, domain.MoneySecurityDeposit},
	})
}

func (s *Service) CreateCashLoan(ctx context.Context, req CashLoanRequest) (*domain.FinanceDeal, error) {
	q, err := s.QuoteCashLoan(ctx, req)
	if err != nil {
		log.Warn().Err(err).Int("farm_id", req.FarmID).Float64("amount", req.Amount).Msg("Cash loan refused")
		return nil, err
	}
	deal := &domain.FinanceDeal{
		FarmID:         req.FarmID,
		Kind:           domain.DealCashLoan,
		ItemName:       "Cash loan",
		Principal:      req.Amount,
		TermMonths:     q.TermMonths,
		InterestRate:   q.InterestRate,
		MonthlyPayment: q.MonthlyPayment,
		CurrentBalance: req.Amount,
	}
	return deal, s.open(ctx, deal, []moneyMove{{req.Amount, domain.MoneyLoanReceived}})
}

// open checks funds and the asset, then stores the deal and moves money in
// one transaction.
func (s *Service) open(ctx context.Context, deal *domain.FinanceDeal, moves []moneyMove) error {
	if deal.AssetInstanceID != nil {
		var n int64
		if err := s.DB.WithContext(ctx).Model(&domain.FinanceDeal{}).
			Where("asset_instance_id = ? AND status = ?", *deal.AssetInstanceID, domain.DealActive).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrAssetAlreadyFinanced, deal.AssetInstanceID)
		}
	}

	if err := s.ensureFunds(deal.FarmID, moves); err != nil {
		log.Warn().Err(err).Int("farm_id", deal.FarmID).Str("kind", string(deal.Kind)).Msg("Deal refused")
		return err
	}

	deal.Status = domain.DealActive
	deal.CreatedDay = s.Clock.Day()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(deal).Error; err != nil {
			return err
		}
		if err := s.event(tx, deal, domain.DealEventCreated, deal.Principal, map[string]any{
			"rate": deal.InterestRate, "term": deal.TermMonths, "payment": deal.MonthlyPayment,
		}); err != nil {
			return err
		}
		return s.move(deal.FarmID, moves)
	})
	if err != nil {
		return err
	}

	log.Info().Str("deal_id", deal.DealID.String()).Int("farm_id", deal.FarmID).Str("kind", string(deal.Kind)).
		Float64("principal", deal.Principal).Float64("rate", deal.InterestRate).Msg("Deal opened")
	s.publish(deal)
	return nil
}

func (s *Service) ensureFunds(farmID int, moves []moneyMove) error {
	need := 0.0
	for _, m := range moves {
		if m.amount < 0 {
			need -= m.amount
		}
	}
	if need == 0 {
		return nil
	}
	balance, err := s.Farms.Balance(farmID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFarmNotFound, err)
	}
	if balance < need {
		return fmt.Errorf("%w: need %.2f, balance %.2f", ErrCannotAfford, need, balance)
	}
	return nil
}

func (s *Service) move(farmID int, moves []moneyMove) error {
	for _, m := range moves {
		if m.amount == 0 {
			continue
		}
		if err := s.Farms.AddMoney(farmID, m.amount, m.category); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) event(tx *gorm.DB, d *domain.FinanceDeal, eventType string, amount float64, data map[string]any) error {
	ev := domain.DealEvent{
		DealID:    d.DealID,
		FarmID:    d.FarmID,
		EventType: eventType,
		Amount:    amount,
		Day:       s.Clock.Day(),
	}
	if len(data) > 0 {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		ev.EventData = datatypes.JSON(b)
	}
	return tx.Create(&ev).Error
}

func (s *Service) publish(d *domain.FinanceDeal) {
	if s.Publisher != nil {
		s.Publisher.Publish(transport.DealUpdated{Deal: *d})
	}
}

// Deal loads a deal owned by farmID.
func (s *Service) Deal(ctx context.Context, farmID int, dealID uuid.UUID) (*domain.FinanceDeal, error) {
	var d domain.FinanceDeal
	if err := s.DB.WithContext(ctx).Where("deal_id = ?", dealID).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDealNotFound, dealID)
		}
		return nil, err
	}
	if d.FarmID != farmID {
		return nil, fmt.Errorf("%w: %s", ErrDealNotFound, dealID)
	}
	return &d, nil
}

func (s *Service) FarmDeals(ctx context.Context, farmID int, activeOnly bool) ([]domain.FinanceDeal, error) {
	q := s.DB.WithContext(ctx).Where("farm_id = ?", farmID)
	if activeOnly {
		q = q.Where("status = ?", domain.DealActive)
	}
	var deals []domain.FinanceDeal
	if err := q.Order(`"createdAt" ASC`).Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

// ActiveAssetIDs returns the instance ids of assets under an active deal.
func (s *Service) ActiveAssetIDs(ctx context.Context, farmID int) (map[string]bool, error) {
	var ids []uuid.UUID
	err := s.DB.WithContext(ctx).Model(&domain.FinanceDeal{}).
		Where("farm_id = ? AND status = ? AND asset_instance_id IS NOT NULL", farmID, domain.DealActive).
		Pluck("asset_instance_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id.String()] = true
	}
	return out, nil
}

// TotalDebt is what the farm still owes across active deals.
func (s *Service) TotalDebt(ctx context.Context, farmID int) (float64, error) {
	var total float64
	err := s.DB.WithContext(ctx).Model(&domain.FinanceDeal{}).
		Where("farm_id = ? AND status = ?", farmID, domain.DealActive).
		Select("COALESCE(SUM(current_balance), 0)").
		Scan(&total).Error
	return total, err
}

func (s *Service) ActiveDealCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.FinanceDeal{}).Where("status = ?", domain.DealActive).Count(&n).Error
	return n, err
}

// Schedule projects the remaining payments of a loan.
func (s *Service) Schedule(ctx context.Context, farmID int, dealID uuid.UUID) ([]finance.ScheduleRow, error) {
	d, err := s.Deal(ctx, farmID, dealID)
	if err != nil {
		return nil, err
	}
	if d.Kind == domain.DealLease || !d.IsActive() {
		return nil, nil
	}
	remaining := d.RemainingMonths()
	if remaining == 0 {
		remaining = 1
	}
	return finance.AmortizationSchedule(d.CurrentBalance, d.InterestRate, remaining), nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
