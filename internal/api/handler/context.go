package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mycabs/identity/internal/core/domain"
)

// PrincipalKey is the echo context key the auth middleware stores the
// validated token principal under.
const PrincipalKey = "principal"

// ctxPrincipal returns the principal injected by the auth middleware. A
// missing or empty subject means the route was not protected, so it fails
// with 401 before any service call.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p, _ := c.Get(PrincipalKey).(*domain.Principal)
	if p == nil || p.AccountID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return p, nil
}
