package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/storefront/shop-api/internal/core/domain"
)

type stubResolver struct {
	identities map[string]*domain.Identity
	err        error
	calls      int
}

func (s *stubResolver) ResolveIdentity(_ context.Context, token string) (*domain.Identity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	id, ok := s.identities[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return id, nil
}

var (
	adminIdentity  = &domain.Identity{UserID: 1, Username: "root", Role: domain.Role{ID: 2, Title: domain.RoleAdmin}, Kind: domain.RoleKindAdmin}
	clientIdentity = &domain.Identity{UserID: 2, Username: "alice", Role: domain.Role{ID: 1, Title: domain.RoleClient}, Kind: domain.RoleKindClient}
)

func newResolver() *stubResolver {
	return &stubResolver{identities: map[string]*domain.Identity{
		"admin-token":  adminIdentity,
		"client-token": clientIdentity,
	}}
}

func run(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, *domain.Identity, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		seen   *domain.Identity
		called bool
	)
	h := func(c echo.Context) error {
		called = true
		seen, _ = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, seen, called
}

func TestAuthenticate_ValidToken(t *testing.T) {
	rec, identity, called := run(t, "Bearer client-token", Authenticate(newResolver()))

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if identity == nil || identity.UserID != 2 {
		t.Fatalf("identity not injected: %+v", identity)
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"missing header", "", "missing token"},
		{"wrong scheme", "Token abc", "missing token"},
		{"empty bearer", "Bearer ", "missing token"},
		{"tampered token", "Bearer forged", "invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _, called := run(t, tc.header, Authenticate(newResolver()))
			if called {
				t.Fatal("should not reach next")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.wantMsg) {
				t.Fatalf("expected %q in body, got %s", tc.wantMsg, rec.Body.String())
			}
		})
	}
}

func TestAuthenticate_UserGone(t *testing.T) {
	resolver := newResolver()
	resolver.err = domain.ErrUserNotFound

	rec, _, called := run(t, "Bearer client-token", Authenticate(resolver))

	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without calling next, got %d (called=%v)", rec.Code, called)
	}
	if !strings.Contains(rec.Body.String(), "user not found") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthenticate_StoreFaultIsServerError(t *testing.T) {
	resolver := newResolver()
	resolver.err = errors.New("dial tcp: connection refused")

	rec, _, called := run(t, "Bearer client-token", Authenticate(resolver))

	if called {
		t.Fatal("should not reach next")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		resolver := newResolver()
		rec, identity, called := run(t, "", OptionalAuth(resolver))
		if !called || rec.Code != http.StatusOK || identity != nil {
			t.Fatalf("expected anonymous pass-through, got %d %+v", rec.Code, identity)
		}
		if resolver.calls != 0 {
			t.Fatalf("resolver must not be called without a token")
		}
	})

	t.Run("valid token", func(t *testing.T) {
		_, identity, called := run(t, "Bearer admin-token", OptionalAuth(newResolver()))
		if !called || identity == nil || !identity.IsAdmin() {
			t.Fatalf("expected admin identity, got %+v", identity)
		}
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		rec, identity, called := run(t, "Bearer forged", OptionalAuth(newResolver()))
		if !called || rec.Code != http.StatusOK || identity != nil {
			t.Fatalf("expected anonymous pass-through, got %d %+v", rec.Code, identity)
		}
	})

	t.Run("store fault", func(t *testing.T) {
		resolver := newResolver()
		resolver.err = errors.New("timeout")
		rec, _, called := run(t, "Bearer admin-token", OptionalAuth(resolver))
		if called || rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d (called=%v)", rec.Code, called)
		}
	})
}
