package middleware

import (
	"github.com/gofiber/fiber/v2"

	"docregistry/internal/session"
)

// AuthUserLocalKey is the key under which the authenticated identity is
// stored in Fiber's context locals for the duration of one request.
const AuthUserLocalKey = "auth_user"

// Auth gates every request behind the external session cache.
//
// It extracts the bearer token from the Authorization header (raw token or
// `Bearer <token>`), resolves it through the Authenticator, and either
// rejects with 401 or stores the identity in locals under AuthUserLocalKey.
// OPTIONS requests pass through untouched for CORS preflight.
func Auth(auth session.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		token := session.TokenFromHeader(c.Get(fiber.HeaderAuthorization))

		id, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return unauthorized(c, err)
		}

		c.Locals(AuthUserLocalKey, id)
		return c.Next()
	}
}

// IdentityFromCtx returns the identity stored by Auth, or nil if the
// request never passed the gate.
func IdentityFromCtx(c *fiber.Ctx) *session.Identity {
	if id, ok := c.Locals(AuthUserLocalKey).(*session.Identity); ok {
		return id
	}
	return nil
}

func unauthorized(c *fiber.Ctx, err error) error {
	msg := "Unauthenticated (invalid or expired token)"
	switch err {
	case session.ErrNoToken:
		msg = "No token provided"
	case session.ErrInvalidPayload:
		msg = "Unauthenticated (invalid token payload)"
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": msg,
		"data":    nil,
	})
}
