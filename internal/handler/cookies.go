package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/service"
)

// Cookie names for the token pair. Both are http-only; scripts never
// see token material.
const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// setAuthCookies installs the access/refresh pair. Max-Age comes from
// the same TTL configuration that signed the tokens, so a cookie can
// never outlive its token's cryptographic validity.
func setAuthCookies(c echo.Context, cfg config.Config, res *service.AuthResult) {
	secure := cfg.IsProduction()
	c.SetCookie(&http.Cookie{
		Name:     accessCookieName,
		Value:    res.Access.Token,
		Path:     "/",
		MaxAge:   cfg.AccessTTLMin * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    res.Refresh.Token,
		Path:     "/",
		MaxAge:   cfg.RefreshTTLDays * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies expires both token cookies.
func clearAuthCookies(c echo.Context, cfg config.Config) {
	secure := cfg.IsProduction()
	for _, name := range []string{accessCookieName, refreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// refreshTokenFromRequest pulls the refresh token from the cookie or,
// failing that, the request body field already bound by the caller.
func refreshTokenFromRequest(c echo.Context, bodyToken string) string {
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	return bodyToken
}
