package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

// DefaultBcryptCost is the work factor used for password hashes.
const DefaultBcryptCost = 12

// AuthService implements identity resolution, signup and login.
type AuthService struct {
	users      ports.UserRepository
	tokens     *TokenService
	roles      domain.Roles
	bcryptCost int
	log        zerolog.Logger
}

func NewAuthService(users ports.UserRepository, tokens *TokenService, roles domain.Roles, bcryptCost int, log zerolog.Logger) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = DefaultBcryptCost
	}
	return &AuthService{users: users, tokens: tokens, roles: roles, bcryptCost: bcryptCost, log: log}
}

// ResolveIdentity verifies the token and loads the user with its current role.
// The store is read on every call so role changes apply immediately.
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (*domain.Identity, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	return &domain.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Kind:     s.roles.KindOf(user.RoleID),
	}, nil
}

// Signup creates an account. The new account's role depends on the caller:
// anonymous and non-privileged callers create clients, admins create admins,
// and a logged-in client is refused with domain.ErrAlreadyAuthenticated.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" || in.Password == "" {
		return nil, domain.NewValidationError("email, password and username are required")
	}

	role := s.roles.Client
	if in.Caller != nil {
		switch in.Caller.Kind {
		case domain.RoleKindClient:
			return nil, domain.ErrAlreadyAuthenticated
		case domain.RoleKindAdmin:
			role = s.roles.Admin
		}
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("signup: lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, domain.NewValidationError("password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       role.ID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("signup: create user: %w", err)
	}

	token, err := s.tokens.Issue(created.ID)
	if err != nil {
		return nil, fmt.Errorf("signup: issue token: %w", err)
	}

	if created.Role.Title == "" {
		created.Role = role
	}

	s.log.Info().Int64("user_id", created.ID).Str("role", created.Role.Title).Msg("user signed up")

	return &ports.AuthResult{Token: token, User: publicUser(created)}, nil
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	if in.Caller != nil {
		return nil, domain.ErrAlreadyAuthenticated
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Debug().Msg("login rejected: unknown email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: lookup email: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		s.log.Debug().Int64("user_id", user.ID).Msg("login rejected: password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	return &ports.AuthResult{Token: token, User: publicUser(user)}, nil
}

func publicUser(u *domain.User) ports.PublicUser {
	return ports.PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		RoleID:   u.RoleID,
		Role:     u.Role.Title,
	}
}
