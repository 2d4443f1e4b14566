package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"usedplus-economy/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func actorApp(t *testing.T, hash string) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(Tracing(), Actor(hash))
	app.Get("/whoami", func(c *fiber.Ctx) error { return c.JSON(GetActor(c)) })
	app.Get("/farm", RequireFarm(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func whoami(t *testing.T, app *fiber.App, headers map[string]string) domain.Actor {
	t.Helper()
	req := httptest.NewRequest("GET", "/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var a domain.Actor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
	return a
}

func TestActorHeaders(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	require.NoError(t, err)
	app := actorApp(t, string(hash))

	a := whoami(t, app, map[string]string{FarmIDHeader: "3", PlayerIDHeader: "p1"})
	assert.Equal(t, domain.Actor{FarmID: 3, PlayerID: "p1"}, a)

	a = whoami(t, app, map[string]string{FarmIDHeader: "1", AdminKeyHeader: "let-me-in"})
	assert.True(t, a.Privileged)

	a = whoami(t, app, map[string]string{FarmIDHeader: "1", AdminKeyHeader: "guess"})
	assert.False(t, a.Privileged)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(FarmIDHeader, "abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestActorWithoutHashIsNeverPrivileged(t *testing.T) {
	app := actorApp(t, "")
	a := whoami(t, app, map[string]string{AdminKeyHeader: "anything"})
	assert.False(t, a.Privileged)
}

func TestRequireFarmAndAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k"), bcrypt.MinCost)
	require.NoError(t, err)
	app := actorApp(t, string(hash))

	resp, err := app.Test(httptest.NewRequest("GET", "/farm", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/farm", nil)
	req.Header.Set(FarmIDHeader, "1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(AdminKeyHeader, "k")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTracingKeepsValidIncomingID(t *testing.T) {
	app := actorApp(t, "")
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(traceIDHeader, "3f1c2a7e-8d44-4f7a-9a55-2b0d6c1e9f10")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "3f1c2a7e-8d44-4f7a-9a55-2b0d6c1e9f10", resp.Header.Get(traceIDHeader))

	req = httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(traceIDHeader, "not-a-uuid")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get(traceIDHeader))
	assert.NotEmpty(t, resp.Header.Get(traceIDHeader))
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/broke", func(c *fiber.Ctx) error {
		return fmt.Errorf("cannot afford: %w", domain.ErrInsufficientFunds)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/broke", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "error", out["status"])
}

func TestHealthMarkerCountsRequests(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(HealthMarker(rdb))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/fail", func(c *fiber.Ctx) error { return fmt.Errorf("db down") })

	for _, path := range []string{"/health", "/api/ok", "/api/ok", "/api/fail"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}

	total, err := mr.Get(KeyReqTotal)
	require.NoError(t, err)
	assert.Equal(t, "3", total)
	errs, err := mr.Get(KeyReqErrors)
	require.NoError(t, err)
	assert.Equal(t, "1", errs)
	entries, err := mr.List(KeyErrorLog)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".usedplus.example", DevPassword: "letmein"}))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString("ok") })

	send := func(origin string, headers map[string]string) (int, string) {
		req := httptest.NewRequest("GET", "/x", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin")
	}

	code, allow := send("", nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, allow)

	code, allow = send("https://map.usedplus.example", nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "https://map.usedplus.example", allow)

	code, _ = send("http://localhost:3000", nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = send("https://elsewhere.test", map[string]string{"dev-password": "letmein"})
	assert.Equal(t, fiber.StatusOK, code)

	local := fiber.New()
	local.Use(CORS(CORSConfig{AllowLocal: true}))
	local.Options("/x", func(c *fiber.Ctx) error { return c.SendString("unreachable") })
	req := httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := local.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
