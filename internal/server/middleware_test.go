package server

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"quill/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	str, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return str
}

func TestServer_AuthRequired(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: testSecret}}
	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	claims := func(userID uint, issuer, audience string, exp time.Duration) jwt.MapClaims {
		return jwt.MapClaims{
			"sub": strconv.FormatUint(uint64(userID), 10),
			"iss": issuer,
			"aud": audience,
			"exp": time.Now().Add(exp).Unix(),
			"jti": "test-jti",
		}
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, claims(123, tokenIssuer, tokenAudience, time.Hour)),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, claims(123, tokenIssuer, tokenAudience, -time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Issuer",
			authHeader:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, claims(123, "wrong-issuer", tokenAudience, time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Audience",
			authHeader:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, claims(123, tokenIssuer, "wrong-audience", time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Secret",
			authHeader:     "Bearer " + signToken(t, "another-secret", jwt.SigningMethodHS256, claims(123, tokenIssuer, tokenAudience, time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Missing Expiry",
			authHeader: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "123", "iss": tokenIssuer, "aud": tokenAudience,
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Bearer Format",
			authHeader:     "Token abc",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestGenerateToken_RoundTripsThroughParse(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: testSecret}}
	user := newUser(42, "editor", true)

	token, err := s.generateToken(user)
	require.NoError(t, err)

	claims, err := s.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims["sub"])
	assert.Equal(t, "editor", claims["username"])
	assert.Equal(t, true, claims["staff"])
	assert.NotEmpty(t, claims["jti"])
}

func TestGenerateToken_RequiresSecret(t *testing.T) {
	s := &Server{config: &config.Config{}}
	_, err := s.generateToken(newUser(1, "editor", true))
	assert.Error(t, err)
}
