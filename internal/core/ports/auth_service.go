package ports

import (
	"context"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// RegisterInput carries a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	// Role is optional; empty means domain.RoleUser.
	Role domain.Role
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	User  *domain.User
	Token string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	// Login fails with domain.ErrInvalidCredentials whether the email is
	// unknown or the password mismatches.
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Logout revokes the token server-side when revocation is enabled.
	Logout(ctx context.Context, token string) error
}

// IdentityResolver turns a bearer token into the current identity record.
type IdentityResolver interface {
	// Authenticate fails with domain.ErrInvalidToken or domain.ErrUnknownUser.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}
