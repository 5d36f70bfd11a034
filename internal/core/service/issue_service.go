package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/api/metrics"
	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// IssueService implements report filing, listing and triage.
type IssueService struct {
	repo  ports.IssueRepository
	audit ports.AuditPublisher
	log   zerolog.Logger
}

func NewIssueService(repo ports.IssueRepository, audit ports.AuditPublisher, log zerolog.Logger) *IssueService {
	return &IssueService{repo: repo, audit: audit, log: log}
}

var _ ports.IssueService = (*IssueService)(nil)

func (s *IssueService) Create(ctx context.Context, in ports.CreateIssueInput) (*domain.Issue, error) {
	if !in.Category.Valid() {
		return nil, domain.NewValidationError("category", "must be one of: road lighting garbage infrastructure other")
	}

	title, err := trimmedMin("title", in.Title, minTitleLength)
	if err != nil {
		return nil, err
	}
	description, err := trimmedMin("description", in.Description, minDescriptionLength)
	if err != nil {
		return nil, err
	}

	images := in.Images
	if images == nil {
		images = []string{}
	}

	now := time.Now().UTC()
	issue := &domain.Issue{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    in.Category,
		Status:      domain.StatusPending,
		Location:    in.Location,
		Images:      images,
		UserID:      in.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
		StatusHistory: []domain.StatusChange{{
			Status:    domain.StatusPending,
			ChangedBy: in.UserID,
			Timestamp: now,
		}},
	}

	if err := s.repo.Create(ctx, issue); err != nil {
		s.log.Error().Err(err).Msg("failed to create issue")
		return nil, fmt.Errorf("create issue: %w", err)
	}

	metrics.IssuesCreatedTotal.WithLabelValues(string(issue.Category)).Inc()
	s.log.Info().Str("issue_id", issue.ID).Str("user_id", in.UserID).Msg("issue created")
	return issue, nil
}

func (s *IssueService) Get(ctx context.Context, id string) (*domain.Issue, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *IssueService) List(ctx context.Context, in ports.ListIssuesInput) (*ports.ListIssuesResult, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of: pending analyzing inProgress resolved")
	}
	if in.Category != "" && !in.Category.Valid() {
		return nil, domain.NewValidationError("category", "must be one of: road lighting garbage infrastructure other")
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	items, total, err := s.repo.List(ctx, ports.ListIssuesFilter{
		Status:   in.Status,
		Category: in.Category,
		UserID:   in.UserID,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	return &ports.ListIssuesResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// UpdateStatus applies a triage status change and publishes an audit event.
func (s *IssueService) UpdateStatus(ctx context.Context, in ports.UpdateStatusInput) (*domain.Issue, error) {
	if !in.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of: pending analyzing inProgress resolved")
	}

	change := domain.StatusChange{
		Status:    in.Status,
		ChangedBy: in.ChangedBy,
		Note:      strings.TrimSpace(in.Note),
		Timestamp: time.Now().UTC(),
	}

	issue, err := s.repo.UpdateStatus(ctx, in.IssueID, change)
	if err != nil {
		return nil, err
	}

	metrics.IssueStatusChangesTotal.WithLabelValues(string(in.Status)).Inc()
	s.audit.Publish(domain.IssueEvent{
		IssueID:   issue.ID,
		Status:    change.Status,
		ChangedBy: change.ChangedBy,
		Note:      change.Note,
		Timestamp: change.Timestamp,
	})

	s.log.Info().
		Str("issue_id", issue.ID).
		Str("status", string(in.Status)).
		Str("changed_by", in.ChangedBy).
		Msg("issue status updated")
	return issue, nil
}
