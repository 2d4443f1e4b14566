package credit

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"usedplus-economy/internal/application/ledger"
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/session/sessiontest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(t *testing.T, app *fiber.App, farmID string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", "/credit", nil)
	req.Header.Set(middleware.FarmIDHeader, farmID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCreditReport(t *testing.T) {
	e := sessiontest.Start(t, nil)
	h := &Handlers{Session: e.Session}
	app := fiber.New()
	app.Use(middleware.Actor(""))
	app.Get("/credit", middleware.RequireFarm(), h.Report)

	code, out := report(t, app, "1")
	require.Equal(t, fiber.StatusOK, code)
	r := out["data"].(map[string]interface{})
	assert.Equal(t, 700.0, r["score"])
	assert.Equal(t, 50.0, r["debt_adjustment"])

	// 400000 owed against 500000 of cash plus the loan itself.
	_, err := e.Session.CreateCashLoan(context.Background(), ledger.CashLoanRequest{FarmID: 1, Amount: 400000, TermMonths: 60})
	require.NoError(t, err)
	code, out = report(t, app, "1")
	require.Equal(t, fiber.StatusOK, code)
	r = out["data"].(map[string]interface{})
	assert.Equal(t, 400000.0, r["debt"])
	assert.Equal(t, 0.0, r["debt_adjustment"])
	assert.Equal(t, 650.0, r["score"])

	code, _ = report(t, app, "9")
	assert.Equal(t, fiber.StatusNotFound, code)
}
