package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// DemoAccount is a seeded login for local development.
type DemoAccount struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// DemoAccounts are the logins created when SEED_DEMO_USERS is set.
var DemoAccounts = []DemoAccount{
	{Name: "Admin User", Email: "admin@test.com", Password: "admin123", Role: domain.RoleAdmin},
	{Name: "Employee User", Email: "employee@test.com", Password: "employee123", Role: domain.RoleEmployee},
	{Name: "Regular User", Email: "user@test.com", Password: "user123", Role: domain.RoleUser},
}

// Seed ensures every account exists. Accounts whose email is already
// registered are left untouched. Returns the number created.
func (s *AuthService) Seed(ctx context.Context, accounts []DemoAccount) (int, error) {
	created := 0
	for _, a := range accounts {
		_, err := s.createUser(ctx, a.Name, a.Email, a.Password, a.Role)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrDuplicateEmail):
		default:
			return created, fmt.Errorf("seed %s: %w", a.Email, err)
		}
	}
	if created > 0 {
		s.log.Info().Int("created", created).Msg("demo accounts seeded")
	}
	return created, nil
}
