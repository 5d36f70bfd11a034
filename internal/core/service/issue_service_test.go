package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubIssueRepo struct {
	issues     map[string]*domain.Issue
	lastFilter ports.ListIssuesFilter
	err        error
}

func newStubIssueRepo() *stubIssueRepo {
	return &stubIssueRepo{issues: make(map[string]*domain.Issue)}
}

func (r *stubIssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	if r.err != nil {
		return r.err
	}
	clone := *issue
	r.issues[issue.ID] = &clone
	return nil
}

func (r *stubIssueRepo) FindByID(_ context.Context, id string) (*domain.Issue, error) {
	issue, ok := r.issues[id]
	if !ok {
		return nil, domain.ErrIssueNotFound
	}
	clone := *issue
	return &clone, nil
}

func (r *stubIssueRepo) List(_ context.Context, f ports.ListIssuesFilter) ([]*domain.Issue, int64, error) {
	r.lastFilter = f
	out := make([]*domain.Issue, 0)
	for _, issue := range r.issues {
		clone := *issue
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (r *stubIssueRepo) UpdateStatus(_ context.Context, id string, change domain.StatusChange) (*domain.Issue, error) {
	issue, ok := r.issues[id]
	if !ok {
		return nil, domain.ErrIssueNotFound
	}
	issue.Status = change.Status
	issue.UpdatedAt = change.Timestamp
	issue.StatusHistory = append(issue.StatusHistory, change)
	clone := *issue
	return &clone, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.IssueEvent
}

func (p *recordingPublisher) Publish(e domain.IssueEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func validCreateInput() ports.CreateIssueInput {
	return ports.CreateIssueInput{
		Title:       "Poste apagado",
		Description: "Poste apagado na esquina há uma semana",
		Category:    domain.CategoryLighting,
		Location:    domain.Location{Latitude: -23.5, Longitude: -46.6},
		UserID:      "u-1",
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestIssueService_Create(t *testing.T) {
	repo := newStubIssueRepo()
	svc := NewIssueService(repo, &recordingPublisher{}, zerolog.Nop())

	issue, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if issue.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", issue.Status)
	}
	if issue.Images == nil {
		t.Fatalf("images must be an empty slice, not nil")
	}
	if len(issue.StatusHistory) != 1 || issue.StatusHistory[0].ChangedBy != "u-1" {
		t.Fatalf("expected initial history entry, got %+v", issue.StatusHistory)
	}
	if _, ok := repo.issues[issue.ID]; !ok {
		t.Fatalf("issue not persisted")
	}
}

func TestIssueService_Create_InvalidCategory(t *testing.T) {
	svc := NewIssueService(newStubIssueRepo(), &recordingPublisher{}, zerolog.Nop())
	in := validCreateInput()
	in.Category = "potholes"

	var ve *domain.ValidationError
	if _, err := svc.Create(context.Background(), in); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestIssueService_Create_WhitespacePaddedTextRejected(t *testing.T) {
	repo := newStubIssueRepo()
	svc := NewIssueService(repo, &recordingPublisher{}, zerolog.Nop())

	cases := map[string]func(*ports.CreateIssueInput){
		"title":       func(in *ports.CreateIssueInput) { in.Title = "      " },
		"description": func(in *ports.CreateIssueInput) { in.Description = "   short    " },
	}
	for field, mutate := range cases {
		in := validCreateInput()
		mutate(&in)
		var ve *domain.ValidationError
		if _, err := svc.Create(context.Background(), in); !errors.As(err, &ve) || ve.Fields[0].Field != field {
			t.Fatalf("%s: expected ValidationError, got %v", field, err)
		}
	}
	if len(repo.issues) != 0 {
		t.Fatalf("nothing should be persisted, got %d issues", len(repo.issues))
	}
}

func TestIssueService_Create_StoreError(t *testing.T) {
	repo := newStubIssueRepo()
	repo.err = errors.New("write concern")
	svc := NewIssueService(repo, &recordingPublisher{}, zerolog.Nop())

	if _, err := svc.Create(context.Background(), validCreateInput()); err == nil {
		t.Fatalf("expected error")
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestIssueService_List_PaginationDefaults(t *testing.T) {
	cases := []struct {
		name              string
		page, limit       int
		wantPage, wantLim int
	}{
		{"zero values", 0, 0, 1, 20},
		{"negative", -3, -1, 1, 20},
		{"cap", 2, 500, 2, 100},
		{"explicit", 3, 10, 3, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubIssueRepo()
			svc := NewIssueService(repo, &recordingPublisher{}, zerolog.Nop())

			res, err := svc.List(context.Background(), ports.ListIssuesInput{Page: tc.page, Limit: tc.limit})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if repo.lastFilter.Page != tc.wantPage || repo.lastFilter.Limit != tc.wantLim {
				t.Fatalf("expected page=%d limit=%d, got %+v", tc.wantPage, tc.wantLim, repo.lastFilter)
			}
			if res.Page != tc.wantPage || res.Limit != tc.wantLim {
				t.Fatalf("result echoes wrong pagination: %+v", res)
			}
		})
	}
}

func TestIssueService_List_TotalPages(t *testing.T) {
	repo := newStubIssueRepo()
	for _, id := range []string{"a", "b", "c"} {
		repo.issues[id] = &domain.Issue{ID: id}
	}
	svc := NewIssueService(repo, &recordingPublisher{}, zerolog.Nop())

	res, err := svc.List(context.Background(), ports.ListIssuesInput{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 3 || res.TotalPages != 2 {
		t.Fatalf("expected total=3 pages=2, got %+v", res)
	}
}

func TestIssueService_List_InvalidFilters(t *testing.T) {
	svc := NewIssueService(newStubIssueRepo(), &recordingPublisher{}, zerolog.Nop())

	for name, in := range map[string]ports.ListIssuesInput{
		"status":   {Status: "closed"},
		"category": {Category: "potholes"},
	} {
		var ve *domain.ValidationError
		if _, err := svc.List(context.Background(), in); !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// UpdateStatus
// ---------------------------------------------------------------------------

func TestIssueService_UpdateStatus_PublishesAuditEvent(t *testing.T) {
	repo := newStubIssueRepo()
	pub := &recordingPublisher{}
	svc := NewIssueService(repo, pub, zerolog.Nop())

	issue, _ := svc.Create(context.Background(), validCreateInput())

	updated, err := svc.UpdateStatus(context.Background(), ports.UpdateStatusInput{
		IssueID: issue.ID, Status: domain.StatusAnalyzing, Note: " looking ", ChangedBy: "emp-1",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != domain.StatusAnalyzing || len(updated.StatusHistory) != 2 {
		t.Fatalf("unexpected issue %+v", updated)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.IssueID != issue.ID || ev.ChangedBy != "emp-1" || ev.Note != "looking" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestIssueService_UpdateStatus_ReopenAllowed(t *testing.T) {
	repo := newStubIssueRepo()
	svc := NewIssueService(repo, &recordingPublisher{}, zerolog.Nop())
	issue, _ := svc.Create(context.Background(), validCreateInput())

	for _, s := range []domain.IssueStatus{domain.StatusResolved, domain.StatusPending} {
		if _, err := svc.UpdateStatus(context.Background(), ports.UpdateStatusInput{IssueID: issue.ID, Status: s}); err != nil {
			t.Fatalf("move to %s: %v", s, err)
		}
	}
}

func TestIssueService_UpdateStatus_Failures(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewIssueService(newStubIssueRepo(), pub, zerolog.Nop())

	var ve *domain.ValidationError
	if _, err := svc.UpdateStatus(context.Background(), ports.UpdateStatusInput{IssueID: "x", Status: "closed"}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), ports.UpdateStatusInput{IssueID: "x", Status: domain.StatusResolved}); !errors.Is(err, domain.ErrIssueNotFound) {
		t.Fatalf("expected ErrIssueNotFound, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed updates must not publish events")
	}
}

// ---------------------------------------------------------------------------
// Audit recorder
// ---------------------------------------------------------------------------

type stubEventRepo struct {
	inserted []domain.IssueEvent
	err      error
}

func (r *stubEventRepo) InsertEvent(_ context.Context, e *domain.IssueEvent) error {
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, *e)
	return nil
}

func TestAuditService_Record(t *testing.T) {
	repo := &stubEventRepo{}
	rec := NewAuditService(repo, zerolog.Nop())

	if err := rec.Record(context.Background(), domain.IssueEvent{IssueID: "i-1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one insert")
	}

	repo.err = errors.New("timeout")
	if err := rec.Record(context.Background(), domain.IssueEvent{IssueID: "i-1"}); err == nil {
		t.Fatalf("expected error")
	}
}
