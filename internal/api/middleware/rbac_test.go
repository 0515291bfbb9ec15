package middleware

import (
	"net/http"
	"testing"

	"github.com/storefront/shop-api/internal/core/domain"
)

func TestAdmin_AllowsAdmin(t *testing.T) {
	rec, _, called := run(t, "Bearer admin-token", Admin(newResolver())...)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAdmin_ForbidsClient(t *testing.T) {
	rec, _, called := run(t, "Bearer client-token", Admin(newResolver())...)

	if called {
		t.Fatal("should not reach next")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdmin_MissingAndTamperedTokens(t *testing.T) {
	if rec, _, _ := run(t, "", Admin(newResolver())...); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}
	if rec, _, _ := run(t, "Bearer tampered", Admin(newResolver())...); rec.Code != http.StatusUnauthorized {
		t.Fatalf("tampered token: expected 401, got %d", rec.Code)
	}
}

func TestRequireRole_WithoutIdentity(t *testing.T) {
	rec, _, called := run(t, "", RequireRole(domain.RoleKindAdmin))

	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole_MultipleKinds(t *testing.T) {
	mws := append(
		Admin(newResolver())[:1],
		RequireRole(domain.RoleKindClient, domain.RoleKindAdmin),
	)
	rec, _, called := run(t, "Bearer client-token", mws...)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
