package ports

import (
	"context"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// ListIssuesFilter carries the query parameters for listing issues.
type ListIssuesFilter struct {
	Status   domain.IssueStatus   // optional
	Category domain.IssueCategory // optional
	UserID   string               // optional: only issues reported by this user
	Page     int                  // 1-based
	Limit    int                  // capped at 100 by the service
}

// Offset returns the number of rows to skip for the filter's page.
func (f ListIssuesFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// IssueRepository defines persistence operations for issues.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	// FindByID returns domain.ErrIssueNotFound when absent.
	FindByID(ctx context.Context, id string) (*domain.Issue, error)
	// List returns one page of issues, newest first, and the total match count.
	List(ctx context.Context, filter ListIssuesFilter) ([]*domain.Issue, int64, error)
	// UpdateStatus atomically sets the status and updated_at and appends
	// change to the history. Returns domain.ErrIssueNotFound when absent.
	UpdateStatus(ctx context.Context, id string, change domain.StatusChange) (*domain.Issue, error)
}

// IssueEventRepository persists the status audit trail.
type IssueEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.IssueEvent) error
}
