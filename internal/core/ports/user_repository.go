package ports

import (
	"context"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// UserRepository is the credential store. Every operation is atomic with
// respect to a single record.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no record matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound when no record matches.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create stores a new record. The password must already be hashed.
	// Returns domain.ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update applies a partial update and returns the stored record.
	// Returns domain.ErrUserNotFound or domain.ErrDuplicateEmail.
	Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
	// List returns every user ordered by creation time.
	List(ctx context.Context) ([]*domain.User, error)
}
