package searches

import (
	"bytes"
	"context"
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

func setupSearchesTest(t *testing.T) (*fiber.App, *sessiontest.Env) {
	e := sessiontest.Start(t, nil)
	h := &Handlers{Session: e.Session}
	app := fiber.New()
	app.Use(middleware.Actor(""))
	h.Register(app.Group("/searches", middleware.RequireFarm()))
	return app, e
}

func do(t *testing.T, app *fiber.App, method, path string, farmID int, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if farmID > 0 {
		req.Header.Set(middleware.FarmIDHeader, fmt.Sprint(farmID))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestQuoteSearch(t *testing.T) {
	app, _ := setupSearchesTest(t)
	code, out := do(t, app, "POST", "/searches/quote", 1, map[string]interface{}{"store_key": "tractor", "tier": "regional"})
	require.Equal(t, fiber.StatusOK, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, 1000.0, data["retainer_fee"])
	assert.Equal(t, 3.0, data["max_months"])
}

func TestCreateSearch_Refusals(t *testing.T) {
	app, e := setupSearchesTest(t)

	code, _ := do(t, app, "POST", "/searches", 0, map[string]interface{}{"store_key": "tractor", "tier": "regional"})
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, out := do(t, app, "POST", "/searches", 1, map[string]interface{}{"store_key": "tractor", "tier": "galactic"})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "error", out["status"])

	code, _ = do(t, app, "POST", "/searches", 1, map[string]interface{}{"store_key": "harvester", "tier": "local"})
	assert.Equal(t, fiber.StatusNotFound, code)

	e.Farms.AddFarm(2, 10)
	code, _ = do(t, app, "POST", "/searches", 2, map[string]interface{}{"store_key": "tractor", "tier": "local"})
	assert.Equal(t, fiber.StatusPaymentRequired, code)
}

func TestCreateListAndCancel(t *testing.T) {
	app, e := setupSearchesTest(t)

	code, out := do(t, app, "POST", "/searches", 1, map[string]interface{}{"store_key": "tractor", "tier": "regional"})
	require.Equal(t, fiber.StatusCreated, code)
	id := int(out["data"].(map[string]interface{})["id"].(float64))
	bal, _ := e.Farms.Balance(1)
	assert.Equal(t, float64(sessiontest.StartingBalance-1000), bal)

	code, out = do(t, app, "GET", "/searches", 1, nil)
	require.Equal(t, fiber.StatusOK, code)
	view := out["data"].(map[string]interface{})
	assert.Len(t, view["searches"], 1)
	assert.Equal(t, 1.0, out["metadata"].(map[string]interface{})["searches"])

	code, _ = do(t, app, "GET", "/searches", 3, nil)
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = do(t, app, "POST", fmt.Sprintf("/searches/%d/cancel", id), 2, nil)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = do(t, app, "POST", fmt.Sprintf("/searches/%d/cancel", id), 1, nil)
	assert.Equal(t, fiber.StatusOK, code)

	code, out = do(t, app, "GET", "/searches", 1, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, out["data"].(map[string]interface{})["searches"])

	code, out = do(t, app, "GET", "/searches/history?limit=10", 1, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 2)

	code, _ = do(t, app, "POST", "/searches/abc/cancel", 1, nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestRenewAndDecline(t *testing.T) {
	app, e := setupSearchesTest(t)
	ctx := context.Background()

	first := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		code, out := do(t, app, "POST", "/searches", 1, map[string]interface{}{"store_key": "tractor", "tier": "local"})
		require.Equal(t, fiber.StatusCreated, code)
		first = append(first, int(out["data"].(map[string]interface{})["id"].(float64)))
	}
	_, err := e.Session.AdvanceHours(ctx, 24)
	require.NoError(t, err)

	code, out := do(t, app, "GET", "/searches", 1, nil)
	require.Equal(t, fiber.StatusOK, code)
	view := out["data"].(map[string]interface{})
	assert.Len(t, view["renewable"], 2)
	assert.Len(t, view["listings"], 2)

	code, out = do(t, app, "POST", fmt.Sprintf("/searches/%d/renew", first[0]), 1, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "active", out["data"].(map[string]interface{})["status"])

	code, _ = do(t, app, "POST", fmt.Sprintf("/searches/%d/decline", first[1]), 1, nil)
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = do(t, app, "POST", fmt.Sprintf("/searches/%d/renew", first[1]), 1, nil)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, out = do(t, app, "GET", "/searches", 1, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, out["data"].(map[string]interface{})["renewable"])
}
