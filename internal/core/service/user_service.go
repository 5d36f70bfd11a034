package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// UserService implements the administrative account operations.
type UserService struct {
	repo ports.UserRepository
	log  zerolog.Logger
}

func NewUserService(repo ports.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

var _ ports.UserService = (*UserService)(nil)

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// Update changes name, email or role. An email already used by another
// account fails with domain.ErrDuplicateEmail.
func (s *UserService) Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	if update.Empty() {
		return nil, domain.NewValidationError("body", "at least one of name, email, role is required")
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of: admin employee user")
	}
	if update.Name != nil {
		name, err := trimmedMin("name", *update.Name, minNameLength)
		if err != nil {
			return nil, err
		}
		update.Name = &name
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		update.Email = &email

		existing, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return nil, domain.ErrDuplicateEmail
		case err != nil && !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("lookup email: %w", err)
		}
	}

	user, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user updated")
	return user, nil
}
