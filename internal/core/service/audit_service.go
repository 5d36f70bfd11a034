package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/api/metrics"
	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

type auditService struct {
	repo ports.IssueEventRepository
	log  zerolog.Logger
}

// NewAuditService returns the recorder the dispatcher workers call.
func NewAuditService(repo ports.IssueEventRepository, log zerolog.Logger) ports.AuditRecorder {
	return &auditService{repo: repo, log: log}
}

// Record writes one status-change event to the audit trail.
func (s *auditService) Record(ctx context.Context, event domain.IssueEvent) error {
	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditErrorsTotal.WithLabelValues("insert_failed").Inc()
		return fmt.Errorf("record audit event: %w", err)
	}

	s.log.Debug().
		Str("issue_id", event.IssueID).
		Str("status", string(event.Status)).
		Msg("audit event recorded")
	return nil
}
