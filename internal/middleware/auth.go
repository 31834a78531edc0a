// Package middleware provides the request gates: authentication,
// role checks, rate limiting and response caching.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

const principalKey = "principal"

// AccessTokenCookie is the cookie carrying the access token; the
// Authorization header takes precedence when both are present.
const AccessTokenCookie = "accessToken"

// Authenticate returns the access-control gate. It verifies the
// access token (bearer header or cookie), re-loads the user so
// deleted or deactivated accounts are rejected even with a
// still-valid token, and attaches the minimal principal to the
// request context.
func Authenticate(secret string, users service.UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "authentication required",
				})
			}

			claims, err := utils.VerifyToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "invalid or expired token",
				})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, claims.Subject)
			if err != nil || !u.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "invalid or expired token",
				})
			}

			c.Set(principalKey, service.Principal{ID: u.ID, Email: u.Email, Role: u.Role})
			c.Set("user_id", u.ID)
			c.Set("role", u.Role)
			return next(c)
		}
	}
}

// PrincipalFrom returns the authenticated principal attached by
// Authenticate, if any.
func PrincipalFrom(c echo.Context) (service.Principal, bool) {
	p, ok := c.Get(principalKey).(service.Principal)
	return p, ok
}

func tokenFromRequest(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if ck, err := c.Cookie(AccessTokenCookie); err == nil {
		return ck.Value
	}
	return ""
}
