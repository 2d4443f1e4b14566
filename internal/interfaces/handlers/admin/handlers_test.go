package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"usedplus-economy/internal/application/search"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/session/sessiontest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminKey = "hayloft"

func setupAdminTest(t *testing.T) (*fiber.App, *sessiontest.Env) {
	e := sessiontest.Start(t, nil)
	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	require.NoError(t, err)
	h := &Handlers{Session: e.Session}
	app := fiber.New()
	app.Use(middleware.Actor(string(hash)))
	h.Register(app.Group("/session"), middleware.RequireAdmin())
	return app, e
}

func post(t *testing.T, app *fiber.App, path string, body interface{}, key string) (int, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.AdminKeyHeader, key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestStatusIsPublic(t *testing.T) {
	app, _ := setupAdminTest(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/session/status", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	st := out["data"].(map[string]interface{})
	assert.Equal(t, true, st["authoritative"])
	assert.Equal(t, 1.0, st["day"])
}

func TestAdvance(t *testing.T) {
	app, _ := setupAdminTest(t)

	code, _ := post(t, app, "/session/advance", map[string]int{"hours": 24}, "")
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = post(t, app, "/session/advance", map[string]int{"hours": 0}, adminKey)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out := post(t, app, "/session/advance", map[string]int{"hours": 30}, adminKey)
	require.Equal(t, fiber.StatusOK, code)
	st := out["data"].(map[string]interface{})
	assert.Equal(t, 2.0, st["day"])
	assert.Equal(t, 6.0, st["hour"])
}

func TestSaveAndLoad(t *testing.T) {
	app, e := setupAdminTest(t)

	code, _ := post(t, app, "/session/load", nil, adminKey)
	assert.Equal(t, fiber.StatusNotFound, code)

	_, err := e.Session.CreateSearch(context.Background(), search.CreateRequest{FarmID: 1, StoreKey: "tractor", Tier: domain.TierNational})
	require.NoError(t, err)

	code, out := post(t, app, "/session/save", nil, adminKey)
	require.Equal(t, fiber.StatusOK, code)
	res := out["data"].(map[string]interface{})
	assert.Equal(t, "default", res["slot"])
	assert.Greater(t, res["entries"].(float64), 0.0)

	code, _ = post(t, app, "/session/save", nil, "")
	assert.Equal(t, fiber.StatusForbidden, code)

	code, out = post(t, app, "/session/load", nil, adminKey)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, out["data"].(map[string]interface{})["loaded"])

	st, err := e.Session.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.ActiveSearches)
}
