package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"usedplus-economy/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("deal: %w", domain.ErrNotFound), fiber.StatusNotFound},
		{fmt.Errorf("term: %w", domain.ErrInvalidInput), fiber.StatusBadRequest},
		{fmt.Errorf("cannot afford: %w", domain.ErrInsufficientFunds), fiber.StatusPaymentRequired},
		{fmt.Errorf("follower: %w", domain.ErrUnauthorized), fiber.StatusForbidden},
		{fmt.Errorf("spawn: %w", domain.ErrDependencyUnavailable), fiber.StatusServiceUnavailable},
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestFromErrorHidesInternalMessages(t *testing.T) {
	app := fiber.New()
	app.Get("/missing", func(c *fiber.Ctx) error {
		return FromError(c, fmt.Errorf("listing: %w", domain.ErrNotFound))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return FromError(c, errors.New("pq: connection refused"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var out ErrorBody
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "error", out.Status)
	assert.Equal(t, "listing: not found", out.Error.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Internal Server Error", out.Error.Message)
}
