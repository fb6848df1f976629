package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit_DisabledOutsideProduction(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	allowed, err := CheckRateLimit(context.Background(), nil, "login", "ip:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimit_EnforcesLimit(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := CheckRateLimit(ctx, rdb, "login", "ip:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.True(t, mr.Exists("rl:login:ip:1"))
	assert.Equal(t, time.Minute, mr.TTL("rl:login:ip:1"))

	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "login", "ip:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimit_NilClient(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := CheckRateLimit(context.Background(), nil, "login", "ip:1", 1, time.Minute)
	assert.Error(t, err)
}

func TestLimit_Policies(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	tests := []struct {
		name           string
		policy         FailPolicy
		useRedis       bool
		requests       int
		expectedStatus int
	}{
		{"Under limit", FailOpen, true, 1, http.StatusOK},
		{"Over limit", FailOpen, true, 3, http.StatusTooManyRequests},
		{"Store down fails open", FailOpen, false, 1, http.StatusOK},
		{"Store down fails closed", FailClosed, false, 1, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rdb *redis.Client
			if tt.useRedis {
				_, rdb = newTestRedis(t)
			}

			app := fiber.New()
			quota := Quota{Name: "login", Max: 2, Window: time.Minute, Policy: tt.policy}
			app.Get("/login", Limit(rdb, quota), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			var status int
			for i := 0; i < tt.requests; i++ {
				resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
				require.NoError(t, err)
				status = resp.StatusCode
				_ = resp.Body.Close()
			}
			assert.Equal(t, tt.expectedStatus, status)
		})
	}
}

func TestLimit_Headers(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, rdb := newTestRedis(t)

	app := fiber.New()
	app.Get("/feed", Limit(rdb, Quota{Name: "feed", Max: 2, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/feed", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))

	for i := 0; i < 2; i++ {
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/feed", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestLimit_LoginKeyedPerUsername(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)

	app := fiber.New()
	app.Post("/login", Limit(rdb, Quota{Name: "login", Max: 1, Window: time.Minute, Key: LoginKey}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	login := func(username string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"`+username+`","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, login("editor"))
	assert.Equal(t, http.StatusTooManyRequests, login("Editor"))
	// another account from the same address has its own window
	assert.Equal(t, http.StatusOK, login("columnist"))
	assert.True(t, mr.Exists("rl:login:ip:0.0.0.0:user:editor"))
}
