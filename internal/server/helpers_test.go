package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func paginationApp() *fiber.App {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})
	return app
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  float64
		wantOffset float64
	}{
		{"Defaults", "", 25, 0},
		{"Custom", "?limit=10&offset=30", 10, 30},
		{"Clamped", "?limit=1000", maxPaginationLimit, 0},
		{"Negative", "?limit=-5&offset=-2", 25, 0},
	}

	app := paginationApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantLimit, body["limit"])
			assert.Equal(t, tt.wantOffset, body["offset"])
		})
	}
}

func TestParseID(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/7", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, bad := range []string{"0", "-1", "abc"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/"+bad, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"NotFound", models.NewNotFoundError("Post", 1), http.StatusNotFound},
		{"Validation", models.NewValidationError("bad"), http.StatusBadRequest},
		{"Unauthorized", models.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"Forbidden", models.NewForbiddenError("no"), http.StatusForbidden},
		{"Conflict", models.NewConflictError("dup", nil), http.StatusConflict},
		{"Record not found", fmt.Errorf("get: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{"Postgres unique", fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"}), http.StatusConflict},
		{"Postgres foreign key", &pgconn.PgError{Code: "23503"}, http.StatusConflict},
		{"SQLite unique", errors.New("UNIQUE constraint failed: topics.slug"), http.StatusConflict},
		{"SQLite foreign key", errors.New("FOREIGN KEY constraint failed"), http.StatusConflict},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return respondError(c, errors.New("dial tcp 10.0.0.1:5432: refused"))
	})
	app.Get("/dup", func(c *fiber.Ctx) error {
		return respondError(c, &pgconn.PgError{Code: "23505", ConstraintName: "idx_topics_slug"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeInternal, body.Code)
	assert.Empty(t, body.Details)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/dup", nil))
	require.NoError(t, err)
	body = models.ErrorResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, body.Code)
	assert.Contains(t, body.Error, "idx_topics_slug")
}
