package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

// RequireRole lets the request through only when the authenticated identity's
// role is one of kinds. It must run after Authenticate.
func RequireRole(kinds ...domain.RoleKind) echo.MiddlewareFunc {
	allowed := make(map[domain.RoleKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return reject(c, http.StatusUnauthorized, "missing_token", "missing token")
			}
			if _, ok := allowed[identity.Kind]; !ok {
				return reject(c, http.StatusForbidden, "forbidden", "forbidden")
			}
			return next(c)
		}
	}
}

// Admin is Authenticate followed by the admin role gate.
func Admin(resolver ports.IdentityResolver) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{Authenticate(resolver), RequireRole(domain.RoleKindAdmin)}
}
