package postgres

import (
	"context"
	"fmt"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// IssueEventRepository writes the status audit trail to issue_events.
type IssueEventRepository struct {
	db DB
}

func NewIssueEventRepository(db DB) ports.IssueEventRepository {
	return &IssueEventRepository{db: db}
}

func (r *IssueEventRepository) InsertEvent(ctx context.Context, event *domain.IssueEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO issue_events (issue_id, status, changed_by, note, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.IssueID, string(event.Status), event.ChangedBy, nullString(event.Note), event.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert issue event: %w", err)
	}
	return nil
}
