package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/storefront/shop-api/internal/api/metrics"
	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

// IdentityKey is the echo context key holding the caller's *domain.Identity.
const IdentityKey = "identity"

// Authenticate requires a valid bearer token whose user still exists and
// injects the resolved identity into the context. The store is consulted on
// every request.
func Authenticate(resolver ports.IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request())
			if !ok {
				return reject(c, http.StatusUnauthorized, "missing_token", "missing token")
			}

			identity, err := resolver.ResolveIdentity(c.Request().Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrInvalidToken):
				return reject(c, http.StatusUnauthorized, "invalid_token", "invalid token")
			case errors.Is(err, domain.ErrUserNotFound):
				return reject(c, http.StatusUnauthorized, "user_not_found", "user not found")
			default:
				metrics.AuthFailuresTotal.WithLabelValues("store_error").Inc()
				return err
			}

			c.Set(IdentityKey, identity)
			return next(c)
		}
	}
}

// OptionalAuth resolves the caller when a usable bearer token is present and
// otherwise lets the request through anonymously. Only store faults abort the
// request.
func OptionalAuth(resolver ports.IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request())
			if !ok {
				return next(c)
			}

			identity, err := resolver.ResolveIdentity(c.Request().Context(), token)
			switch {
			case err == nil:
				c.Set(IdentityKey, identity)
			case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrUserNotFound):
			default:
				return err
			}
			return next(c)
		}
	}
}

// IdentityFrom returns the identity injected by Authenticate or OptionalAuth.
func IdentityFrom(c echo.Context) (*domain.Identity, bool) {
	identity, ok := c.Get(IdentityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func reject(c echo.Context, status int, reason, msg string) error {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	return c.JSON(status, map[string]string{"error": msg})
}
