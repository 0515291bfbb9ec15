package ports

import (
	"context"

	"github.com/storefront/shop-api/internal/core/domain"
)

// UserRepository defines persistence for user accounts. Every read joins the
// user's role so that Role is populated on the returned value.
type UserRepository interface {
	// Create persists a new user and returns it with ID and Role set.
	// A duplicate email (or username/email pair) yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

// RoleRepository defines persistence for roles.
type RoleRepository interface {
	// EnsureRole returns the role with the given title, creating it when absent.
	EnsureRole(ctx context.Context, title string) (*domain.Role, error)
}
