package ports

import (
	"context"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// CreateIssueInput carries all data needed to file a report.
type CreateIssueInput struct {
	Title       string
	Description string
	Category    domain.IssueCategory
	Location    domain.Location
	Images      []string
	UserID      string
}

// ListIssuesInput carries the parameters of the list endpoint.
type ListIssuesInput struct {
	Status   domain.IssueStatus
	Category domain.IssueCategory
	UserID   string
	Page     int
	Limit    int
}

// ListIssuesResult is one page of issues.
type ListIssuesResult struct {
	Items      []*domain.Issue
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UpdateStatusInput carries a triage status change.
type UpdateStatusInput struct {
	IssueID   string
	Status    domain.IssueStatus
	Note      string
	ChangedBy string
}

type IssueService interface {
	Create(ctx context.Context, input CreateIssueInput) (*domain.Issue, error)
	Get(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, input ListIssuesInput) (*ListIssuesResult, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*domain.Issue, error)
}

// AuditPublisher hands status-change events to the background writer.
type AuditPublisher interface {
	Publish(event domain.IssueEvent)
}

// AuditRecorder persists one audit event. Called from the dispatcher workers.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.IssueEvent) error
}
