package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// IssueRepository implements ports.IssueRepository backed by PostgreSQL.
// Status history lives in issue_status_history and is written in the same
// transaction as the status column.
type IssueRepository struct {
	db DB
}

func NewIssueRepository(db DB) *IssueRepository {
	return &IssueRepository{db: db}
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

const issueColumns = `id, title, description, category, status, latitude, longitude, address, images, user_id, created_at, updated_at`

const selectIssueColumns = `id, title, description, category, status, latitude, longitude, COALESCE(address, ''), images, user_id, created_at, updated_at`

const insertHistory = `
	INSERT INTO issue_status_history (issue_id, status, changed_by, note, changed_at)
	VALUES ($1, $2, $3, $4, $5)`

const selectHistory = `
	SELECT status, changed_by, COALESCE(note, ''), changed_at
	FROM issue_status_history WHERE issue_id = $1 ORDER BY changed_at, id`

func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	images, err := json.Marshal(issue.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO issues (`+issueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		issue.ID, issue.Title, issue.Description, string(issue.Category), string(issue.Status),
		issue.Location.Latitude, issue.Location.Longitude, nullString(issue.Location.Address),
		images, issue.UserID, issue.CreatedAt, issue.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}

	for _, h := range issue.StatusHistory {
		if _, err := tx.Exec(ctx, insertHistory, issue.ID, string(h.Status), h.ChangedBy, nullString(h.Note), h.Timestamp); err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *IssueRepository) FindByID(ctx context.Context, id string) (*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	issue, err := scanIssue(r.db.QueryRow(ctx, `SELECT `+selectIssueColumns+` FROM issues WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, fmt.Errorf("find issue: %w", err)
	}

	if issue.StatusHistory, err = loadHistory(ctx, r.db, id); err != nil {
		return nil, err
	}
	return issue, nil
}

// List returns one page of issues without their status history.
func (r *IssueRepository) List(ctx context.Context, f ports.ListIssuesFilter) ([]*domain.Issue, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		where []string
		args  []any
	)
	cond := func(column string, value any) {
		args = append(args, value)
		where = append(where, column+" = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		cond("status", string(f.Status))
	}
	if f.Category != "" {
		cond("category", string(f.Category))
	}
	if f.UserID != "" {
		cond("user_id", f.UserID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM issues`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}

	args = append(args, f.Limit, f.Offset())
	sql := `SELECT ` + selectIssueColumns + ` FROM issues` + clause +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	issues := make([]*domain.Issue, 0, f.Limit)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, total, rows.Err()
}

func (r *IssueRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) (*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	issue, err := scanIssue(tx.QueryRow(ctx, `
		UPDATE issues SET status = $1, updated_at = $2 WHERE id = $3
		RETURNING `+selectIssueColumns,
		string(change.Status), change.Timestamp, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, fmt.Errorf("update issue status: %w", err)
	}

	if _, err := tx.Exec(ctx, insertHistory, id, string(change.Status), change.ChangedBy, nullString(change.Note), change.Timestamp); err != nil {
		return nil, fmt.Errorf("insert status history: %w", err)
	}

	if issue.StatusHistory, err = loadHistory(ctx, tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return issue, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadHistory(ctx context.Context, q querier, issueID string) ([]domain.StatusChange, error) {
	rows, err := q.Query(ctx, selectHistory, issueID)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.StatusChange, 0)
	for rows.Next() {
		var (
			h      domain.StatusChange
			status string
		)
		if err := rows.Scan(&status, &h.ChangedBy, &h.Note, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		h.Status = domain.IssueStatus(status)
		h.Timestamp = h.Timestamp.UTC()
		history = append(history, h)
	}
	return history, rows.Err()
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var (
		issue            domain.Issue
		category, status string
		images           []byte
	)
	err := row.Scan(&issue.ID, &issue.Title, &issue.Description, &category, &status,
		&issue.Location.Latitude, &issue.Location.Longitude, &issue.Location.Address, &images,
		&issue.UserID, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, err
	}

	issue.Category = domain.IssueCategory(category)
	issue.Status = domain.IssueStatus(status)
	issue.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &issue.Images); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
	}
	issue.CreatedAt = issue.CreatedAt.UTC()
	issue.UpdatedAt = issue.UpdatedAt.UTC()
	return &issue, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
