package ports

import (
	"context"

	"github.com/storefront/shop-api/internal/core/domain"
)

// SignupInput carries the signup payload. Caller is the already authenticated
// identity of the requester, or nil for anonymous requests.
type SignupInput struct {
	Email    string
	Password string
	Username string
	Caller   *domain.Identity
}

// LoginInput carries the login payload.
type LoginInput struct {
	Email    string
	Password string
	Caller   *domain.Identity
}

// PublicUser is the client-facing projection of a user; it never carries the password.
type PublicUser struct {
	ID       int64
	Username string
	Email    string
	RoleID   int64
	Role     string
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	Token string
	User  PublicUser
}

// IdentityResolver turns a bearer token into a verified identity.
// Errors: domain.ErrInvalidToken, domain.ErrUserNotFound, or a store fault.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*domain.Identity, error)
}

type AuthService interface {
	IdentityResolver
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
}

type UserService interface {
	ListUsers(ctx context.Context) ([]PublicUser, error)
	GetUser(ctx context.Context, id int64) (*PublicUser, error)
}
