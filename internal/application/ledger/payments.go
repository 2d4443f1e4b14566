package ledger

import (
	"context"
	"fmt"
	"math"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/finance"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const defaultMissedToDefault = 3

// MonthlyReport summarizes one payment run.
type MonthlyReport struct {
	Processed int     `json:"processed"`
	Paid      int     `json:"paid"`
	Missed    int     `json:"missed"`
	Defaulted int     `json:"defaulted"`
	Closed    int     `json:"closed"`
	Collected float64 `json:"collected"`
}

// ProcessMonthlyPayments charges every active deal one scheduled payment.
// A farm that cannot cover the payment misses it; enough consecutive misses
// default the deal. Each deal commits in its own transaction.
func (s *Service) ProcessMonthlyPayments(ctx context.Context) (*MonthlyReport, error) {
	var deals []domain.FinanceDeal
	if err := s.DB.WithContext(ctx).Where("status = ?", domain.DealActive).
		Order(`"createdAt" ASC`).Find(&deals).Error; err != nil {
		return nil, err
	}

	report := &MonthlyReport{}
	for i := range deals {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		d := &deals[i]
		if err := s.processDeal(ctx, d, report); err != nil {
			log.Error().Err(err).Str("deal_id", d.DealID.String()).Int("farm_id", d.FarmID).Msg("Monthly payment failed")
			continue
		}
		report.Processed++
		s.publish(d)
	}

	log.Info().Int("processed", report.Processed).Int("missed", report.Missed).
		Int("defaulted", report.Defaulted).Float64("collected", report.Collected).Msg("Monthly payments processed")
	return report, nil
}

func (s *Service) processDeal(ctx context.Context, d *domain.FinanceDeal, report *MonthlyReport) error {
	balance, err := s.Farms.Balance(d.FarmID)
	if err != nil {
		return err
	}

	due, interest := s.amountDue(d)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if balance < due {
			return s.miss(tx, d, due, report)
		}

		d.MonthsPaid++
		d.TotalPaid = roundCents(d.TotalPaid + due)
		d.TotalInterestPaid = roundCents(d.TotalInterestPaid + interest)
		d.ConsecutiveMissed = 0
		d.CurrentBalance = math.Max(0, roundCents(d.CurrentBalance-(due-interest)))

		moves := []moneyMove{{-due, paymentCategory(d)}}
		closing := ""
		switch {
		case d.Kind == domain.DealLease && (d.MonthsPaid >= d.TermMonths || d.CurrentBalance <= 0.01):
			d.CurrentBalance = 0
			d.Status = domain.DealCompleted
			closing = domain.DealEventCompleted
			moves = append(moves, moneyMove{d.SecurityDeposit, domain.MoneySecurityDeposit})
		case d.Kind != domain.DealLease && d.CurrentBalance <= 0.01:
			d.CurrentBalance = 0
			d.Status = domain.DealPaidOff
			closing = domain.DealEventPaidOff
		}

		if err := tx.Save(d).Error; err != nil {
			return err
		}
		if err := s.event(tx, d, domain.DealEventPayment, due, map[string]any{
			"interest": interest, "balance": d.CurrentBalance, "month": d.MonthsPaid,
		}); err != nil {
			return err
		}
		if closing != "" {
			if err := s.event(tx, d, closing, 0, nil); err != nil {
				return err
			}
		}
		if err := s.move(d.FarmID, moves); err != nil {
			return err
		}

		report.Paid++
		report.Collected = roundCents(report.Collected + due)
		if closing != "" {
			report.Closed++
			log.Info().Str("deal_id", d.DealID.String()).Int("farm_id", d.FarmID).Str("status", string(d.Status)).Msg("Deal closed")
		}
		return nil
	})
}

// amountDue is the payment owed this month and the interest share of it.
// Leases carry their interest inside the fixed payment.
func (s *Service) amountDue(d *domain.FinanceDeal) (due, interest float64) {
	if d.Kind == domain.DealLease {
		return math.Min(d.MonthlyPayment, d.CurrentBalance), 0
	}
	interest = roundCents(d.CurrentBalance * d.InterestRate / finance.MonthsPerYear)
	return math.Min(d.MonthlyPayment, roundCents(d.CurrentBalance+interest)), interest
}

func (s *Service) miss(tx *gorm.DB, d *domain.FinanceDeal, due float64, report *MonthlyReport) error {
	d.MissedPayments++
	d.ConsecutiveMissed++
	threshold := s.Settings.Int(settings.MissedPaymentsToDefault)
	if threshold <= 0 {
		threshold = defaultMissedToDefault
	}
	if d.ConsecutiveMissed >= threshold {
		d.Status = domain.DealDefaulted
	}

	if err := tx.Save(d).Error; err != nil {
		return err
	}
	if err := s.event(tx, d, domain.DealEventMissed, due, map[string]any{"consecutive": d.ConsecutiveMissed}); err != nil {
		return err
	}
	report.Missed++
	log.Warn().Str("deal_id", d.DealID.String()).Int("farm_id", d.FarmID).Int("consecutive", d.ConsecutiveMissed).Float64("due", due).Msg("Payment missed")

	if d.Status == domain.DealDefaulted {
		if err := s.event(tx, d, domain.DealEventDefaulted, d.CurrentBalance, nil); err != nil {
			return err
		}
		report.Defaulted++
		log.Warn().Str("deal_id", d.DealID.String()).Int("farm_id", d.FarmID).Msg("Deal defaulted")
	}
	return nil
}

func paymentCategory(d *domain.FinanceDeal) domain.MoneyCategory {
	if d.Kind == domain.DealLease {
		return domain.MoneyLeasePayment
	}
	return domain.MoneyFinancePayment
}

// PayoffResult is the outcome of an early payoff or lease termination.
type PayoffResult struct {
	Deal    *domain.FinanceDeal `json:"deal"`
	Amount  float64             `json:"amount"`
	Penalty float64             `json:"penalty"`
	Refund  float64             `json:"refund,omitempty"`
}

// PayoffQuote returns what closing a loan today would cost.
func (s *Service) PayoffQuote(ctx context.Context, farmID int, dealID uuid.UUID) (*PayoffResult, error) {
	d, err := s.activeDeal(ctx, farmID, dealID)
	if err != nil {
		return nil, err
	}
	if d.Kind == domain.DealLease {
		return nil, ErrLeasePayoff
	}
	amount, penalty := finance.Payoff(d.CurrentBalance, d.RemainingMonths())
	return &PayoffResult{Deal: d, Amount: amount, Penalty: penalty}, nil
}

// PayOff settles a loan early, prepayment penalty included.
func (s *Service) PayOff(ctx context.Context, farmID int, dealID uuid.UUID) (*PayoffResult, error) {
	q, err := s.PayoffQuote(ctx, farmID, dealID)
	if err != nil {
		return nil, err
	}
	d := q.Deal
	moves := []moneyMove{{-q.Amount, domain.MoneyPayoff}}
	if err := s.ensureFunds(farmID, moves); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d.TotalPaid = roundCents(d.TotalPaid + q.Amount)
		d.CurrentBalance = 0
		d.Status = domain.DealPaidOff
		if err := tx.Save(d).Error; err != nil {
			return err
		}
		if err := s.event(tx, d, domain.DealEventPaidOff, q.Amount, map[string]any{"penalty": q.Penalty, "early": true}); err != nil {
			return err
		}
		return s.move(farmID, moves)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("deal_id", d.DealID.String()).Int("farm_id", farmID).Float64("amount", q.Amount).Float64("penalty", q.Penalty).Msg("Deal paid off early")
	s.publish(d)
	return q, nil
}

// TerminationQuote returns the fee and deposit refund for ending a lease now.
func (s *Service) TerminationQuote(ctx context.Context, farmID int, dealID uuid.UUID) (*PayoffResult, error) {
	d, err := s.activeDeal(ctx, farmID, dealID)
	if err != nil {
		return nil, err
	}
	if d.Kind != domain.DealLease {
		return nil, ErrNotALease
	}
	fee := roundCents(finance.LeaseTerminationFee(d.RemainingMonths(), d.MonthlyPayment, d.ResidualValue))
	return &PayoffResult{Deal: d, Amount: fee, Penalty: fee, Refund: d.SecurityDeposit}, nil
}

// TerminateLease ends a lease early. The deposit is returned against the fee.
func (s *Service) TerminateLease(ctx context.Context, farmID int, dealID uuid.UUID) (*PayoffResult, error) {
	q, err := s.TerminationQuote(ctx, farmID, dealID)
	if err != nil {
		return nil, err
	}
	d := q.Deal
	if err := s.ensureFunds(farmID, []moneyMove{{q.Refund - q.Amount, domain.MoneyTerminationFee}}); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d.CurrentBalance = 0
		d.Status = domain.DealTerminated
		if err := tx.Save(d).Error; err != nil {
			return err
		}
		if err := s.event(tx, d, domain.DealEventTerminated, q.Amount, map[string]any{"refund": q.Refund}); err != nil {
			return err
		}
		return s.move(farmID, []moneyMove{
			{-q.Amount, domain.MoneyTerminationFee},
			{q.Refund, domain.MoneySecurityDeposit},
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("deal_id", d.DealID.String()).Int("farm_id", farmID).Float64("fee", q.Amount).Float64("refund", q.Refund).Msg("Lease terminated")
	s.publish(d)
	return q, nil
}

func (s *Service) activeDeal(ctx context.Context, farmID int, dealID uuid.UUID) (*domain.FinanceDeal, error) {
	d, err := s.Deal(ctx, farmID, dealID)
	if err != nil {
		return nil, err
	}
	if !d.IsActive() {
		return nil, fmt.Errorf("%w: %s is %s", ErrDealNotActive, dealID, d.Status)
	}
	return d, nil
}
