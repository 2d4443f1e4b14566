package finance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/session/sessiontest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFinanceTest(t *testing.T) (*fiber.App, *sessiontest.Env) {
	e := sessiontest.Start(t, nil)
	h := &Handlers{Session: e.Session}
	app := fiber.New()
	app.Use(middleware.Actor(""))
	h.Register(app.Group("/finance", middleware.RequireFarm()))
	return app, e
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.FarmIDHeader, "1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func data(out map[string]interface{}) map[string]interface{} {
	return out["data"].(map[string]interface{})
}

var vehicleDeal = map[string]interface{}{
	"kind":                 "vehicle_finance",
	"store_key":            "tractor",
	"item_name":            "T5",
	"price":                100000,
	"down_payment_percent": 0.2,
	"term_months":          60,
}

func TestQuoteVehicleFinance(t *testing.T) {
	app, _ := setupFinanceTest(t)
	code, out := do(t, app, "POST", "/finance/quote", vehicleDeal)
	require.Equal(t, fiber.StatusOK, code)
	q := data(out)
	// No debt lifts the starting 650 to 700, which takes the plain base rate.
	assert.Equal(t, 700.0, q["credit_score"])
	assert.InDelta(t, 0.045, q["interest_rate"], 1e-9)
	assert.Equal(t, 80000.0, q["principal"])
	assert.Equal(t, 20000.0, q["down_payment"])
	assert.InDelta(t, 1491.45, q["monthly_payment"], 1.0)
}

func TestQuoteRefusals(t *testing.T) {
	app, _ := setupFinanceTest(t)

	code, _ := do(t, app, "POST", "/finance/quote", map[string]interface{}{"kind": "repair_finance", "price": 1000})
	assert.Equal(t, fiber.StatusBadRequest, code)

	bad := map[string]interface{}{"kind": "vehicle_finance", "price": 100000, "down_payment_percent": 0.6, "term_months": 60}
	code, out := do(t, app, "POST", "/finance/quote", bad)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "error", out["status"])

	code, _ = do(t, app, "POST", "/finance/quote", map[string]interface{}{"kind": "cash_loan", "amount": 10, "term_months": 12})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestFinanceDealLifecycle(t *testing.T) {
	app, e := setupFinanceTest(t)

	code, out := do(t, app, "POST", "/finance/deals", vehicleDeal)
	require.Equal(t, fiber.StatusCreated, code)
	deal := data(out)
	id := deal["deal_id"].(string)
	assert.Equal(t, "active", deal["status"])
	bal, _ := e.Farms.Balance(1)
	assert.Equal(t, float64(sessiontest.StartingBalance-20000), bal)

	code, out = do(t, app, "GET", "/finance/deals?active=true", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 1)

	code, out = do(t, app, "GET", "/finance/deals/"+id+"/schedule", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 60)

	code, out = do(t, app, "GET", "/finance/deals/"+id+"/payoff", nil)
	require.Equal(t, fiber.StatusOK, code)
	quote := data(out)
	assert.Greater(t, quote["penalty"].(float64), 0.0)
	assert.Greater(t, quote["amount"].(float64), 80000.0)

	code, out = do(t, app, "GET", "/finance/deals/"+id+"/terminate", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out = do(t, app, "POST", "/finance/deals/"+id+"/payoff", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "paid_off", data(out)["deal"].(map[string]interface{})["status"])
	after, _ := e.Farms.Balance(1)
	assert.InDelta(t, bal-quote["amount"].(float64), after, 0.01)

	code, out = do(t, app, "GET", "/finance/deals?active=true", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, out["data"])

	code, out = do(t, app, "GET", "/finance/deals", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 1)
}

func TestLeaseAndCashLoan(t *testing.T) {
	app, e := setupFinanceTest(t)

	lease := map[string]interface{}{"kind": "lease", "store_key": "tractor", "price": 60000, "term_months": 12}
	code, out := do(t, app, "POST", "/finance/deals", lease)
	require.Equal(t, fiber.StatusCreated, code)
	id := data(out)["deal_id"].(string)

	code, _ = do(t, app, "POST", "/finance/deals/"+id+"/payoff", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out = do(t, app, "GET", "/finance/deals/"+id+"/terminate", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Greater(t, data(out)["amount"].(float64), 0.0)

	code, out = do(t, app, "POST", "/finance/deals/"+id+"/terminate", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "terminated", data(out)["deal"].(map[string]interface{})["status"])

	before, _ := e.Farms.Balance(1)
	code, _ = do(t, app, "POST", "/finance/deals", map[string]interface{}{"kind": "cash_loan", "amount": 25000, "term_months": 24})
	require.Equal(t, fiber.StatusCreated, code)
	after, _ := e.Farms.Balance(1)
	assert.Equal(t, before+25000, after)
}

func TestDealIDs(t *testing.T) {
	app, _ := setupFinanceTest(t)

	code, _ := do(t, app, "POST", "/finance/deals/not-a-uuid/payoff", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "GET", fmt.Sprintf("/finance/deals/%s/schedule", "6f9a3f0e-1b7c-4d1e-8a4b-2c9d5e7f1a3b"), nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}
