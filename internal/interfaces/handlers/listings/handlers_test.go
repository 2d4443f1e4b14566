package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"usedplus-economy/internal/application/search"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/session/sessiontest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupListingsTest(t *testing.T) (*fiber.App, *sessiontest.Env, *domain.Listing) {
	e := sessiontest.Start(t, nil)
	ctx := context.Background()
	_, err := e.Session.CreateSearch(ctx, search.CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierLocal})
	require.NoError(t, err)
	_, err = e.Session.AdvanceHours(ctx, 24)
	require.NoError(t, err)
	view, err := e.Session.Farm(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Listings, 1)

	h := &Handlers{Session: e.Session}
	app := fiber.New()
	app.Use(middleware.Actor(""))
	h.Register(app.Group("/listings", middleware.RequireFarm()))
	return app, e, view.Listings[0]
}

func get(t *testing.T, app *fiber.App, method, path string, farmID int) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(middleware.FarmIDHeader, fmt.Sprint(farmID))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestListAndPreview(t *testing.T) {
	app, _, l := setupListingsTest(t)

	code, out := get(t, app, "GET", "/listings", 1)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 1)
	assert.Equal(t, 1.0, out["metadata"].(map[string]interface{})["count"])

	code, out = get(t, app, "GET", fmt.Sprintf("/listings/%d", l.ID), 1)
	require.Equal(t, fiber.StatusOK, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, l.AskingPrice, data["asking_price"])
	assert.Equal(t, "available", data["status"])

	code, _ = get(t, app, "GET", fmt.Sprintf("/listings/%d", l.ID), 2)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = get(t, app, "GET", "/listings/999", 1)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestPurchase(t *testing.T) {
	app, e, l := setupListingsTest(t)
	before, _ := e.Farms.Balance(1)

	code, out := get(t, app, "POST", fmt.Sprintf("/listings/%d/purchase", l.ID), 1)
	require.Equal(t, fiber.StatusCreated, code)
	data := out["data"].(map[string]interface{})
	assert.Len(t, data["instances"], 1)

	after, _ := e.Farms.Balance(1)
	assert.InDelta(t, before-l.AskingPrice, after, 0.01)
	assert.Len(t, e.Vehicles.OwnedBy(1), 1)

	code, _ = get(t, app, "POST", fmt.Sprintf("/listings/%d/purchase", l.ID), 1)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestPurchaseWithoutFunds(t *testing.T) {
	app, e, l := setupListingsTest(t)
	e.Farms.AddFarm(1, 0)

	code, out := get(t, app, "POST", fmt.Sprintf("/listings/%d/purchase", l.ID), 1)
	assert.Equal(t, fiber.StatusPaymentRequired, code)
	assert.Equal(t, "error", out["status"])

	code, _ = get(t, app, "GET", fmt.Sprintf("/listings/%d", l.ID), 1)
	assert.Equal(t, fiber.StatusOK, code)
}
