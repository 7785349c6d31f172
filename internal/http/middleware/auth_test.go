package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docregistry/internal/session"
	sessionMocks "docregistry/internal/session/mocks"
)

func newAuthApp(auth session.Authenticator) *fiber.App {
	app := fiber.New()
	app.Use(Auth(auth))
	app.Get("/protected", func(c *fiber.Ctx) error {
		id := IdentityFromCtx(c)
		if id == nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"user_id": id.UserID})
	})
	app.Options("/protected", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuth_ValidToken(t *testing.T) {
	mAuth := new(sessionMocks.MockAuthenticator)
	mAuth.On("Authenticate", mock.Anything, "tok-1").
		Return(&session.Identity{UserID: 7}, nil)

	app := newAuthApp(mAuth)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(7), body["user_id"])
	mAuth.AssertExpectations(t)
}

func TestAuth_RawTokenWithoutBearerPrefix(t *testing.T) {
	mAuth := new(sessionMocks.MockAuthenticator)
	mAuth.On("Authenticate", mock.Anything, "raw-token").
		Return(&session.Identity{UserID: 1}, nil)

	app := newAuthApp(mAuth)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "raw-token")
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mAuth.AssertExpectations(t)
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		token   string
		err     error
		wantMsg string
	}{
		{
			name:    "missing token",
			header:  "",
			token:   "",
			err:     session.ErrNoToken,
			wantMsg: "No token provided",
		},
		{
			name:    "expired token",
			header:  "Bearer dead",
			token:   "dead",
			err:     session.ErrInvalidToken,
			wantMsg: "Unauthenticated (invalid or expired token)",
		},
		{
			name:    "bad payload",
			header:  "Bearer weird",
			token:   "weird",
			err:     session.ErrInvalidPayload,
			wantMsg: "Unauthenticated (invalid token payload)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mAuth := new(sessionMocks.MockAuthenticator)
			mAuth.On("Authenticate", mock.Anything, tt.token).Return(nil, tt.err)

			app := newAuthApp(mAuth)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, _ := app.Test(req)

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.Nil(t, body["data"])
		})
	}
}

func TestAuth_OptionsBypassesGate(t *testing.T) {
	mAuth := new(sessionMocks.MockAuthenticator)

	app := newAuthApp(mAuth)

	req := httptest.NewRequest(http.MethodOptions, "/protected", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mAuth.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}
