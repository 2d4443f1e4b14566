package session

import (
	"context"

	"usedplus-economy/internal/application/credit"
	"usedplus-economy/internal/application/ledger"
	"usedplus-economy/internal/application/search"
	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/application/tradein"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/finance"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Status is a snapshot for health checks.
type Status struct {
	Authoritative     bool  `json:"authoritative"`
	Day               int   `json:"day"`
	Hour              int   `json:"hour"`
	ActiveSearches    int   `json:"active_searches"`
	AvailableListings int   `json:"available_listings"`
	ActiveDeals       int64 `json:"active_deals"`
	PendingEvents     int   `json:"pending_events"`
}

func (s *Session) Status(ctx context.Context) (Status, error) {
	if !s.authoritative {
		return Status{Day: s.clock.Day(), Hour: s.clock.Hour()}, nil
	}
	return call(ctx, s, func(ctx context.Context) (Status, error) {
		deals, err := s.ledger.ActiveDealCount(ctx)
		if err != nil {
			return Status{}, err
		}
		return Status{
			Authoritative:     true,
			Day:               s.clock.Day(),
			Hour:              s.clock.Hour(),
			ActiveSearches:    s.search.ActiveSearchCount(),
			AvailableListings: s.search.AvailableListingCount(),
			ActiveDeals:       deals,
			PendingEvents:     s.outbox.Len(),
		}, nil
	})
}

// AdvanceHours skips the clock forward, running the hourly work each hour.
func (s *Session) AdvanceHours(ctx context.Context, hours int) (Status, error) {
	_, err := mutate(ctx, s, func(ctx context.Context) (struct{}, error) {
		for i := 0; i < hours; i++ {
			s.advance(ctx)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return Status{}, err
	}
	return s.Status(ctx)
}

// Searches

func (s *Session) QuoteSearch(ctx context.Context, req search.CreateRequest) (*search.Quote, error) {
	return call(ctx, s, func(ctx context.Context) (*search.Quote, error) {
		q, _, err := s.search.Quote(req)
		return q, err
	})
}

func (s *Session) CreateSearch(ctx context.Context, req search.CreateRequest) (*domain.Search, error) {
	return mutate(ctx, s, func(ctx context.Context) (*domain.Search, error) {
		return s.search.Create(req)
	})
}

func (s *Session) CancelSearch(ctx context.Context, farmID int, searchID int64) error {
	_, err := mutate(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.search.Cancel(farmID, searchID)
	})
	return err
}

// RenewSearch answers the expiry dialog with "renew".
func (s *Session) RenewSearch(ctx context.Context, farmID int, searchID int64) (*domain.Search, error) {
	return mutate(ctx, s, func(ctx context.Context) (*domain.Search, error) {
		return s.search.Renew(farmID, searchID)
	})
}

func (s *Session) DeclineRenewal(ctx context.Context, farmID int, searchID int64) error {
	_, err := mutate(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.search.DeclineRenewal(farmID, searchID)
	})
	return err
}

// PurchaseConfirmed buys a listing after the player confirmed the dialog.
func (s *Session) PurchaseConfirmed(ctx context.Context, farmID int, listingID int64) (*search.PurchaseResult, error) {
	return mutate(ctx, s, func(ctx context.Context) (*search.PurchaseResult, error) {
		return s.search.Purchase(farmID, listingID)
	})
}

// FarmView is everything a farm sees of the agent.
type FarmView struct {
	Searches  []*domain.Search  `json:"searches"`
	Listings  []*domain.Listing `json:"listings"`
	Renewable []int64           `json:"renewable"`
	Stats     domain.FarmStats  `json:"stats"`
}

func (s *Session) Farm(ctx context.Context, farmID int) (*FarmView, error) {
	if !s.authoritative {
		return &FarmView{
			Searches: s.mirror.Searches(farmID),
			Listings: s.mirror.Listings(farmID),
			Stats:    s.mirror.Stats(farmID),
		}, nil
	}
	return call(ctx, s, func(ctx context.Context) (*FarmView, error) {
		return &FarmView{
			Searches:  s.search.FarmSearches(farmID),
			Listings:  s.search.FarmListings(farmID),
			Renewable: s.search.Renewable(farmID),
			Stats:     s.search.Stats(farmID),
		}, nil
	})
}

func (s *Session) Listing(ctx context.Context, farmID int, listingID int64) (*domain.Listing, error) {
	return call(ctx, s, func(ctx context.Context) (*domain.Listing, error) {
		l, ok := s.search.Listing(listingID)
		if !ok || l.FarmID != farmID {
			return nil, search.ErrListingNotFound
		}
		return l, nil
	})
}

func (s *Session) SearchHistory(ctx context.Context, farmID, limit int) ([]domain.SearchEvent, error) {
	return s.audit.FarmEvents(ctx, farmID, limit)
}

// Finance

func (s *Session) QuoteFinance(ctx context.Context, req ledger.FinanceRequest) (*ledger.DealQuote, error) {
	return call(ctx, s, func(ctx context.Context) (*ledger.DealQuote, error) {
		return s.ledger.QuoteFinance(ctx, req)
	})
}

func (s *Session) QuoteLease(ctx context.Context, req ledger.LeaseRequest) (*ledger.DealQuote, error) {
	return call(ctx, s, func(ctx context.Context) (*ledger.DealQuote, error) {
		return s.ledger.QuoteLease(ctx, req)
	})
}

func (s *Session) QuoteCashLoan(ctx context.Context, req ledger.CashLoanRequest) (*ledger.DealQuote, error) {
	return call(ctx, s, func(ctx context.Context) (*ledger.DealQuote, error) {
		return s.ledger.QuoteCashLoan(ctx, req)
	})
}

func (s *Session) CreateFinanceDeal(ctx context.Context, req ledger.FinanceRequest) (*domain.FinanceDeal, error) {
	return mutate(ctx, s, func(ctx context.Context) (*domain.FinanceDeal, error) {
		return s.ledger.CreateFinanceDeal(ctx, req)
	})
}

func (s *Session) CreateLease(ctx context.Context, req ledger.LeaseRequest) (*domain.FinanceDeal, error) {
	return mutate(ctx, s, func(ctx context.Context) (*domain.FinanceDeal, error) {
		return s.ledger.CreateLease(ctx, req)
	})
}

func (s *Session) CreateCashLoan(ctx context.Context, req ledger.CashLoanRequest) (*domain.FinanceDeal, error) {
	return mutate(ctx, s, func(ctx context.Context) (*domain.FinanceDeal, error) {
		return s.ledger.CreateCashLoan(ctx, req)
	})
}

func (s *Session) PayoffQuote(ctx context.Context, farmID int, dealID uuid.UUID) (*ledger.PayoffResult, error) {
	return call(ctx, s, func(ctx context.Context) (*ledger.PayoffResult, error) {
		return s.ledger.PayoffQuote(ctx, farmID, dealID)
	})
}

func (s *Session) TerminationQuote(ctx context.Context, farmID int, dealID uuid.UUID) (*ledger.PayoffResult, error) {
	return call(ctx, s, func(ctx context.Context) (*ledger.PayoffResult, error) {
		return s.ledger.TerminationQuote(ctx, farmID, dealID)
	})
}

func (s *Session) PayOff(ctx context.Context, farmID int, dealID uuid.UUID) (*ledger.PayoffResult, error) {
	return mutate(ctx, s, func(ctx context.Context) (*ledger.PayoffResult, error) {
		return s.ledger.PayOff(ctx, farmID, dealID)
	})
}

func (s *Session) TerminateLease(ctx context.Context, farmID int, dealID uuid.UUID) (*ledger.PayoffResult, error) {
	return mutate(ctx, s, func(ctx context.Context) (*ledger.PayoffResult, error) {
		return s.ledger.TerminateLease(ctx, farmID, dealID)
	})
}

// Deals reads straight from the database; deal rows are only written inside
// session commands.
func (s *Session) Deals(ctx context.Context, farmID int, activeOnly bool) ([]domain.FinanceDeal, error) {
	if !s.authoritative {
		return s.mirror.Deals(farmID), nil
	}
	return s.ledger.FarmDeals(ctx, farmID, activeOnly)
}

func (s *Session) Schedule(ctx context.Context, farmID int, dealID uuid.UUID) ([]finance.ScheduleRow, error) {
	return s.ledger.Schedule(ctx, farmID, dealID)
}

// Trade-in

func (s *Session) TradeInCandidates(ctx context.Context, farmID int) ([]tradein.Candidate, error) {
	return call(ctx, s, func(ctx context.Context) ([]tradein.Candidate, error) {
		return s.tradein.Candidates(ctx, farmID)
	})
}

func (s *Session) TradeInQuote(ctx context.Context, farmID int, instanceID, targetKey string) (*tradein.Quote, error) {
	return call(ctx, s, func(ctx context.Context) (*tradein.Quote, error) {
		return s.tradein.Quote(ctx, farmID, instanceID, targetKey)
	})
}

func (s *Session) AcceptTradeIn(ctx context.Context, farmID int, instanceID, targetKey string) (*tradein.Quote, error) {
	return mutate(ctx, s, func(ctx context.Context) (*tradein.Quote, error) {
		return s.tradein.Accept(ctx, farmID, instanceID, targetKey)
	})
}

// Credit

func (s *Session) CreditReport(ctx context.Context, farmID int) (*credit.Report, error) {
	return call(ctx, s, func(ctx context.Context) (*credit.Report, error) {
		return s.credit.Report(ctx, farmID)
	})
}

// Inbox is what the host queued for a farm since it last asked.
type Inbox struct {
	Notices []domain.Notice `json:"notices"`
	Dialogs []domain.Dialog `json:"dialogs"`
}

type drainer interface {
	Drain(farmID int) ([]domain.Notice, []domain.Dialog)
}

// Notifications drains the farm's queued notices and dialogs. Notifiers that
// do not queue yield an empty inbox.
func (s *Session) Notifications(ctx context.Context, farmID int) (*Inbox, error) {
	return call(ctx, s, func(ctx context.Context) (*Inbox, error) {
		in := &Inbox{Notices: []domain.Notice{}, Dialogs: []domain.Dialog{}}
		d, ok := s.notifier.(drainer)
		if !ok {
			return in, nil
		}
		notices, dialogs := d.Drain(farmID)
		in.Notices = append(in.Notices, notices...)
		in.Dialogs = append(in.Dialogs, dialogs...)
		return in, nil
	})
}

// Settings

func (s *Session) Settings(ctx context.Context) (map[string]any, error) {
	if !s.authoritative {
		return s.settings.Snapshot(), nil
	}
	return call(ctx, s, func(ctx context.Context) (map[string]any, error) {
		return s.settings.Snapshot(), nil
	})
}

// ApplySettings applies a change from actor. Changes from unprivileged actors
// are dropped and return nil values without an error.
func (s *Session) ApplySettings(ctx context.Context, actor domain.Actor, change settings.Change) (map[string]any, error) {
	return mutate(ctx, s, func(ctx context.Context) (map[string]any, error) {
		applied, err := s.settings.Apply(actor, change)
		if err != nil {
			log.Warn().Err(err).Int("farm_id", actor.FarmID).Msg("Settings change rejected")
		}
		return applied, err
	})
}
