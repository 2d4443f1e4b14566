package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"usedplus-economy/internal/config"
	"usedplus-economy/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		Role:            config.RoleAuthoritative,
		DatabaseURL:     ":memory:",
		RedisChannel:    "usedplus:test",
		CatalogFile:     "../../../catalog.yaml",
		SaveSlot:        "test",
		TickInterval:    time.Hour,
		SeedFarms:       []int{1},
		StartingBalance: 500000,
		RNGSeed:         3,
	}
}

func TestCreateApp_Routes(t *testing.T) {
	app, st, err := CreateApp(testConfig())
	require.NoError(t, err)
	t.Cleanup(st.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = st.Session.Run(ctx) }()

	srv := httptest.NewServer(Handler(app))
	t.Cleanup(srv.Close)

	get := func(path string, farm string) (int, map[string]interface{}) {
		req, err := http.NewRequest("GET", srv.URL+path, nil)
		require.NoError(t, err)
		if farm != "" {
			req.Header.Set(middleware.FarmIDHeader, farm)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	code, out := get("/health/json", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])

	code, _ = get("/api/v1/searches", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = get("/api/v1/searches", "1")
	assert.Equal(t, http.StatusOK, code)

	code, out = get("/api/v1/credit", "1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 700.0, out["data"].(map[string]interface{})["score"])

	code, _ = get("/api/v1/session/status", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestCreateApp_RejectsMissingCatalog(t *testing.T) {
	cfg := testConfig()
	cfg.CatalogFile = "does-not-exist.yaml"
	_, _, err := CreateApp(cfg)
	assert.Error(t, err)
}

func TestCreateApp_ProductionNeedsRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	_, _, err := CreateApp(cfg)
	assert.Error(t, err)
}
