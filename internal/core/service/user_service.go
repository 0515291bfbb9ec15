package service

import (
	"context"
	"fmt"

	"github.com/storefront/shop-api/internal/core/ports"
)

// UserService exposes read-only account views for administrators.
type UserService struct {
	users ports.UserRepository
}

func NewUserService(users ports.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) ListUsers(ctx context.Context) ([]ports.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]ports.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, publicUser(u))
	}
	return out, nil
}

// GetUser returns domain.ErrUserNotFound when id does not resolve.
func (s *UserService) GetUser(ctx context.Context, id int64) (*ports.PublicUser, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pu := publicUser(u)
	return &pu, nil
}
