package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicwatch/civic-reports/internal/api/metrics"
	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// dummyHash is compared against when the email is unknown so that login
// takes the same time whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("civic-reports-timing"), bcrypt.DefaultCost)

// AuthService implements registration, login and token resolution.
type AuthService struct {
	repo          ports.UserRepository
	tokens        ports.TokenService
	allowSelfRole bool
	bcryptCost    int
	log           zerolog.Logger
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithSelfAssignedRole controls whether registrants may pick a role other
// than "user".
func WithSelfAssignedRole(allowed bool) AuthOption {
	return func(s *AuthService) { s.allowSelfRole = allowed }
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.bcryptCost = cost }
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenService, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:          repo,
		tokens:        tokens,
		allowSelfRole: true,
		bcryptCost:    bcrypt.DefaultCost,
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ ports.AuthService      = (*AuthService)(nil)
	_ ports.IdentityResolver = (*AuthService)(nil)
)

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of: admin employee user")
	}
	name, err := trimmedMin("name", in.Name, minNameLength)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleUser && !s.allowSelfRole {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "forbidden").Inc()
		return nil, fmt.Errorf("register as %s: %w", role, domain.ErrForbidden)
	}

	user, err := s.createUser(ctx, name, in.Email, in.Password, role)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "duplicate").Inc()
		}
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return &ports.AuthResult{User: user, Token: token}, nil
}

// createUser hashes the password and stores a new identity.
func (s *AuthService) createUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	email = normalizeEmail(email)

	// Fast path; the store's unique index still guards concurrent inserts.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return s.repo.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return &ports.AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Authenticate verifies token and re-fetches the identity so that role
// changes apply on the very next request.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownUser, userID)
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
