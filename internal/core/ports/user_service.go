package ports

import (
	"context"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// UserService covers the administrative account operations.
type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
}
