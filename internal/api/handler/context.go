package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/storefront/shop-api/internal/api/middleware"
	"github.com/storefront/shop-api/internal/core/domain"
)

// callerIdentity returns the identity resolved by the auth middleware, or nil
// for anonymous requests.
func callerIdentity(c echo.Context) *domain.Identity {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil
	}
	return identity
}

// pathID parses the ":id" path parameter as a positive integer.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

// bindAndValidate decodes the body into req and runs the echo validator.
// Validation failures are returned as-is for the central error handler.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}
	return c.Validate(req)
}

type messageResponse struct {
	Message string `json:"message"`
}
