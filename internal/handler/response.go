// Package handler implements the HTTP surface. Handlers stay thin:
// bind, call a service, translate the result into the JSON envelope.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/service"
)

// respond writes the success envelope {success, message, data?}.
func respond(c echo.Context, status int, message string, data interface{}) error {
	body := echo.Map{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

// fail writes the failure envelope with an explicit status.
func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message})
}

// failErr maps service sentinels onto HTTP statuses. Unknown errors
// are logged in full and surfaced as a generic 500 so internals never
// leak to the client.
func failErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrGoogleAlreadyLinked):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrMissingToken),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionNotFound):
		return fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrForbidden):
		return fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUseFederatedLogin),
		errors.Is(err, service.ErrResetTokenInvalid),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrNoFallbackCredential),
		errors.Is(err, service.ErrSelfAction):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	default:
		log.Printf("%s %s: internal error: %v", c.Request().Method, c.Path(), err)
		return fail(c, http.StatusInternalServerError, "internal server error")
	}
}
