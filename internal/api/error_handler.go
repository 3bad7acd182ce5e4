package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mycabs/identity/internal/api/handler"
	"github.com/mycabs/identity/internal/core/domain"
)

// domainErrors maps each domain error kind to its status and client message.
var domainErrors = []struct {
	err     error
	status  int
	message string
}{
	{domain.ErrInvalidRole, http.StatusBadRequest, "Invalid role"},
	{domain.ErrEmailAlreadyRegistered, http.StatusConflict, "Email already registered"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{domain.ErrAccountNotApproved, http.StatusForbidden, "Account not approved yet"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "User not found"},
	{domain.ErrIncorrectPassword, http.StatusBadRequest, "Current password incorrect"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors and validation failures to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the response envelope with success=false.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.Response) {
	var ve *handler.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, handler.Fail("Validation failed", ve.Fields...)
	}

	// Echo's own errors (bind failures, 404 from router, missing bearer token).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			logUnhandled(log, c, err)
		}
		return he.Code, handler.Fail(fmt.Sprintf("%v", he.Message))
	}

	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return de.status, handler.Fail(de.message)
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	logUnhandled(log, c, err)
	return http.StatusInternalServerError, handler.Fail("Internal server error")
}

func logUnhandled(log zerolog.Logger, c echo.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")
}
