package tradein

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"usedplus-economy/internal/application/ledger"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/host"
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/session/sessiontest"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTradeInTest(t *testing.T) (*fiber.App, *sessiontest.Env) {
	e := sessiontest.Start(t, nil)
	h := &Handlers{Session: e.Session}
	app := fiber.New()
	app.Use(middleware.Actor(""))
	h.Register(app.Group("/tradein", middleware.RequireFarm()))
	return app, e
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.FarmIDHeader, "1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func ownedTractor(e *sessiontest.Env) *host.Vehicle {
	return e.Vehicles.Add(&host.Vehicle{
		FarmID: 1, StoreKey: "tractor", Name: "T5", Brand: "New Holland", Price: 60000,
	})
}

func TestCandidates(t *testing.T) {
	app, e := setupTradeInTest(t)
	free := ownedTractor(e)
	financed := ownedTractor(e)
	e.Vehicles.Add(&host.Vehicle{FarmID: 1, StoreKey: "combine", Name: "Lexion", Brand: "Claas", Price: 90000, Leased: true})

	asset := uuid.MustParse(financed.InstanceID)
	_, err := e.Session.CreateFinanceDeal(context.Background(), ledger.FinanceRequest{
		FarmID: 1, Kind: domain.DealVehicleFinance, StoreKey: "tractor", AssetInstanceID: &asset,
		Price: 60000, DownPaymentPercent: 0.2, TermMonths: 36,
	})
	require.NoError(t, err)

	code, out := do(t, app, "GET", "/tradein/candidates", nil)
	require.Equal(t, fiber.StatusOK, code)
	list := out["data"].([]interface{})
	require.Len(t, list, 3)
	reasons := map[string]string{}
	for _, raw := range list {
		c := raw.(map[string]interface{})
		v := c["vehicle"].(map[string]interface{})
		reason, _ := c["reason"].(string)
		reasons[v["instance_id"].(string)] = reason
	}
	assert.Equal(t, "", reasons[free.InstanceID])
	assert.Equal(t, "under an active finance deal", reasons[financed.InstanceID])

	code, _ = do(t, app, "POST", "/tradein/quote", map[string]string{"instance_id": financed.InstanceID})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestQuoteAndAccept(t *testing.T) {
	app, e := setupTradeInTest(t)
	v := ownedTractor(e)
	before, _ := e.Farms.Balance(1)

	code, out := do(t, app, "POST", "/tradein/quote", map[string]string{"instance_id": v.InstanceID, "target_store_key": "tractor"})
	require.Equal(t, fiber.StatusOK, code)
	quote := out["data"].(map[string]interface{})
	assert.Equal(t, "New Holland", quote["target_brand"])
	value := quote["value"].(float64)
	assert.Greater(t, value, 0.0)
	assert.Less(t, value, 60000.0)

	code, out = do(t, app, "POST", "/tradein/accept", map[string]string{"instance_id": v.InstanceID, "target_store_key": "tractor"})
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, value, out["data"].(map[string]interface{})["value"])

	after, _ := e.Farms.Balance(1)
	assert.Equal(t, before+value, after)
	assert.Empty(t, e.Vehicles.OwnedBy(1))

	code, _ = do(t, app, "POST", "/tradein/accept", map[string]string{"instance_id": v.InstanceID})
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestQuoteRequiresInstance(t *testing.T) {
	app, e := setupTradeInTest(t)
	v := ownedTractor(e)

	code, out := do(t, app, "POST", "/tradein/quote", map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "Missing required field: instance_id", out["error"].(map[string]interface{})["message"])

	code, _ = do(t, app, "POST", "/tradein/quote", map[string]string{"instance_id": v.InstanceID, "target_store_key": "plough"})
	assert.Equal(t, fiber.StatusNotFound, code)
}
