package finance

import (
	"usedplus-economy/internal/application/ledger"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/pkg/response"
	"usedplus-economy/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Session *session.Session
}

func (h *Handlers) Register(r fiber.Router) {
	r.Post("/quote", h.Quote)
	r.Post("/deals", h.Create)
	r.Get("/deals", h.Deals)
	r.Get("/deals/:deal_id/schedule", h.Schedule)
	r.Get("/deals/:deal_id/payoff", h.PayoffQuote)
	r.Post("/deals/:deal_id/payoff", h.PayOff)
	r.Get("/deals/:deal_id/terminate", h.TerminationQuote)
	r.Post("/deals/:deal_id/terminate", h.Terminate)
}

// dealRequest covers every deal kind. Amount is only read for cash loans;
// Price, StoreKey and the down payment for everything else.
type dealRequest struct {
	Kind               domain.DealKind `json:"kind"`
	StoreKey           string          `json:"store_key"`
	ItemName           string          `json:"item_name"`
	AssetInstanceID    *uuid.UUID      `json:"asset_instance_id"`
	Price              float64         `json:"price"`
	DownPaymentPercent float64         `json:"down_payment_percent"`
	TermMonths         int             `json:"term_months"`
	Amount             float64         `json:"amount"`
}

func (r dealRequest) finance(farmID int) ledger.FinanceRequest {
	return ledger.FinanceRequest{
		FarmID:             farmID,
		Kind:               r.Kind,
		StoreKey:           r.StoreKey,
		ItemName:           r.ItemName,
		AssetInstanceID:    r.AssetInstanceID,
		Price:              r.Price,
		DownPaymentPercent: r.DownPaymentPercent,
		TermMonths:         r.TermMonths,
	}
}

func (r dealRequest) lease(farmID int) ledger.LeaseRequest {
	return ledger.LeaseRequest{
		FarmID:             farmID,
		StoreKey:           r.StoreKey,
		ItemName:           r.ItemName,
		AssetInstanceID:    r.AssetInstanceID,
		Price:              r.Price,
		DownPaymentPercent: r.DownPaymentPercent,
		TermMonths:         r.TermMonths,
	}
}

func (r dealRequest) cashLoan(farmID int) ledger.CashLoanRequest {
	return ledger.CashLoanRequest{FarmID: farmID, Amount: r.Amount, TermMonths: r.TermMonths}
}

// POST /api/v1/finance/quote
func (h *Handlers) Quote(c *fiber.Ctx) error {
	var req dealRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	farmID := middleware.GetActor(c).FarmID
	ctx := c.UserContext()

	var (
		q   *ledger.DealQuote
		err error
	)
	switch req.Kind {
	case domain.DealVehicleFinance, domain.DealLandFinance:
		q, err = h.Session.QuoteFinance(ctx, req.finance(farmID))
	case domain.DealLease:
		q, err = h.Session.QuoteLease(ctx, req.lease(farmID))
	case domain.DealCashLoan:
		q, err = h.Session.QuoteCashLoan(ctx, req.cashLoan(farmID))
	default:
		return response.Error(c, "Unsupported deal kind", fiber.StatusBadRequest, fiber.Map{"kind": req.Kind})
	}
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Deal quoted", q, nil)
}

// POST /api/v1/finance/deals
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req dealRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	farmID := middleware.GetActor(c).FarmID
	ctx := c.UserContext()

	var (
		d   *domain.FinanceDeal
		err error
	)
	switch req.Kind {
	case domain.DealVehicleFinance, domain.DealLandFinance:
		d, err = h.Session.CreateFinanceDeal(ctx, req.finance(farmID))
	case domain.DealLease:
		d, err = h.Session.CreateLease(ctx, req.lease(farmID))
	case domain.DealCashLoan:
		d, err = h.Session.CreateCashLoan(ctx, req.cashLoan(farmID))
	default:
		return response.Error(c, "Unsupported deal kind", fiber.StatusBadRequest, fiber.Map{"kind": req.Kind})
	}
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Deal created", d, nil)
}

// GET /api/v1/finance/deals?active=true
func (h *Handlers) Deals(c *fiber.Ctx) error {
	deals, err := h.Session.Deals(c.UserContext(), middleware.GetActor(c).FarmID, c.QueryBool("active", false))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Deals fetched", deals, fiber.Map{"count": len(deals)})
}

func dealID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("deal_id"))
	return id, err == nil
}

// GET /api/v1/finance/deals/:deal_id/schedule
func (h *Handlers) Schedule(c *fiber.Ctx) error {
	id, ok := dealID(c)
	if !ok {
		return response.Error(c, "Invalid deal id", fiber.StatusBadRequest, nil)
	}
	rows, err := h.Session.Schedule(c.UserContext(), middleware.GetActor(c).FarmID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Schedule fetched", rows, fiber.Map{"months": len(rows)})
}

// GET /api/v1/finance/deals/:deal_id/payoff
func (h *Handlers) PayoffQuote(c *fiber.Ctx) error {
	id, ok := dealID(c)
	if !ok {
		return response.Error(c, "Invalid deal id", fiber.StatusBadRequest, nil)
	}
	res, err := h.Session.PayoffQuote(c.UserContext(), middleware.GetActor(c).FarmID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payoff quoted", res, nil)
}

// POST /api/v1/finance/deals/:deal_id/payoff
func (h *Handlers) PayOff(c *fiber.Ctx) error {
	id, ok := dealID(c)
	if !ok {
		return response.Error(c, "Invalid deal id", fiber.StatusBadRequest, nil)
	}
	res, err := h.Session.PayOff(c.UserContext(), middleware.GetActor(c).FarmID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Deal paid off", res, nil)
}

// GET /api/v1/finance/deals/:deal_id/terminate
func (h *Handlers) TerminationQuote(c *fiber.Ctx) error {
	id, ok := dealID(c)
	if !ok {
		return response.Error(c, "Invalid deal id", fiber.StatusBadRequest, nil)
	}
	res, err := h.Session.TerminationQuote(c.UserContext(), middleware.GetActor(c).FarmID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Termination quoted", res, nil)
}

// POST /api/v1/finance/deals/:deal_id/terminate
func (h *Handlers) Terminate(c *fiber.Ctx) error {
	id, ok := dealID(c)
	if !ok {
		return response.Error(c, "Invalid deal id", fiber.StatusBadRequest, nil)
	}
	res, err := h.Session.TerminateLease(c.UserContext(), middleware.GetActor(c).FarmID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Lease terminated", res, nil)
}
