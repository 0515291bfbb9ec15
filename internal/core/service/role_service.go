package service

import (
	"context"
	"fmt"

	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

// LoadRoles makes sure the client and admin roles exist and returns them.
// The client role is ensured first so a fresh store numbers it 1 and admin 2.
func LoadRoles(ctx context.Context, repo ports.RoleRepository) (domain.Roles, error) {
	client, err := repo.EnsureRole(ctx, domain.RoleClient)
	if err != nil {
		return domain.Roles{}, fmt.Errorf("load roles: %s: %w", domain.RoleClient, err)
	}
	admin, err := repo.EnsureRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.Roles{}, fmt.Errorf("load roles: %s: %w", domain.RoleAdmin, err)
	}
	if client.ID == admin.ID {
		return domain.Roles{}, fmt.Errorf("load roles: client and admin resolve to the same id %d", client.ID)
	}
	return domain.Roles{Client: *client, Admin: *admin}, nil
}
