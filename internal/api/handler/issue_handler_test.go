package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

type stubIssueService struct {
	createFn       func(ctx context.Context, in ports.CreateIssueInput) (*domain.Issue, error)
	getFn          func(ctx context.Context, id string) (*domain.Issue, error)
	listFn         func(ctx context.Context, in ports.ListIssuesInput) (*ports.ListIssuesResult, error)
	updateStatusFn func(ctx context.Context, in ports.UpdateStatusInput) (*domain.Issue, error)
}

func (s *stubIssueService) Create(ctx context.Context, in ports.CreateIssueInput) (*domain.Issue, error) {
	return s.createFn(ctx, in)
}

func (s *stubIssueService) Get(ctx context.Context, id string) (*domain.Issue, error) {
	return s.getFn(ctx, id)
}

func (s *stubIssueService) List(ctx context.Context, in ports.ListIssuesInput) (*ports.ListIssuesResult, error) {
	return s.listFn(ctx, in)
}

func (s *stubIssueService) UpdateStatus(ctx context.Context, in ports.UpdateStatusInput) (*domain.Issue, error) {
	return s.updateStatusFn(ctx, in)
}

const validIssueBody = `{
	"title": "Buraco na rua",
	"description": "Buraco grande em frente ao número 10",
	"category": "road",
	"location": {"latitude": 0, "longitude": -46.6, "address": "Rua A, 10"},
	"images": []
}`

func TestIssueHandler_Create_UsesCurrentUser(t *testing.T) {
	e := newEcho()
	handler := NewIssueHandler(&stubIssueService{
		createFn: func(ctx context.Context, in ports.CreateIssueInput) (*domain.Issue, error) {
			if in.UserID != "u-1" {
				t.Fatalf("expected creator u-1, got %q", in.UserID)
			}
			if in.Category != domain.CategoryRoad || in.Location.Latitude != 0 || in.Location.Longitude != -46.6 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Issue{ID: "i-1", UserID: in.UserID, Status: domain.StatusPending}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/issues", validIssueBody), rec)
	SetCurrentUser(c, &domain.User{ID: "u-1", Role: domain.RoleUser})

	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestIssueHandler_Create_RejectsOutOfRangeCoordinates(t *testing.T) {
	e := newEcho()
	handler := NewIssueHandler(&stubIssueService{})

	body := `{"title":"Poste","description":"Poste apagado há dias","category":"lighting",
		"location":{"latitude":91,"longitude":200}}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/issues", body), httptest.NewRecorder())
	SetCurrentUser(c, &domain.User{ID: "u-1"})

	var ve *domain.ValidationError
	if err := handler.Create(c); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 || ve.Fields[0].Field != "location.latitude" {
		t.Fatalf("unexpected field errors: %+v", ve.Fields)
	}
}

func TestIssueHandler_Create_WhitespaceTitleRejected(t *testing.T) {
	e := newEcho()
	handler := NewIssueHandler(&stubIssueService{
		createFn: func(ctx context.Context, in ports.CreateIssueInput) (*domain.Issue, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	})

	body := `{"title":"      ","description":"Poste apagado há dias","category":"lighting",
		"location":{"latitude":-23.5,"longitude":-46.6}}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/issues", body), httptest.NewRecorder())
	SetCurrentUser(c, &domain.User{ID: "u-1"})

	var ve *domain.ValidationError
	if err := handler.Create(c); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Fields[0].Field != "title" {
		t.Fatalf("expected title field error, got %+v", ve.Fields)
	}
}

func TestIssueHandler_Create_WithoutIdentity(t *testing.T) {
	e := newEcho()
	handler := NewIssueHandler(&stubIssueService{})

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/issues", validIssueBody), httptest.NewRecorder())
	if err := handler.Create(c); !errors.Is(err, domain.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestIssueHandler_List_Envelope(t *testing.T) {
	e := newEcho()
	handler := NewIssueHandler(&stubIssueService{
		listFn: func(ctx context.Context, in ports.ListIssuesInput) (*ports.ListIssuesResult, error) {
			if in.Status != domain.StatusPending || in.Page != 2 || in.Limit != 5 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.ListIssuesResult{
				Items: []*domain.Issue{{ID: "i-1"}}, Total: 6, Page: 2, Limit: 5, TotalPages: 2,
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/issues?status=pending&page=2&limit=5", nil), rec)

	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp listIssuesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Data) != 1 || resp.Pagination.Total != 6 || resp.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestIssueHandler_List_BadStatus(t *testing.T) {
	e := newEcho()
	handler := NewIssueHandler(&stubIssueService{})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/issues?status=closed", nil), httptest.NewRecorder())

	var ve *domain.ValidationError
	if err := handler.List(c); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Fields[0].Field != "status" {
		t.Fatalf("expected status field error, got %+v", ve.Fields)
	}
}

func TestIssueHandler_UpdateStatus(t *testing.T) {
	e := newEcho()
	handler := NewIssueHandler(&stubIssueService{
		updateStatusFn: func(ctx context.Context, in ports.UpdateStatusInput) (*domain.Issue, error) {
			if in.IssueID != "i-1" || in.Status != domain.StatusInProgress || in.ChangedBy != "emp-1" || in.Note != "crew sent" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Issue{ID: "i-1", Status: in.Status}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/", `{"status":"inProgress","note":"crew sent"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("i-1")
	SetCurrentUser(c, &domain.User{ID: "emp-1", Role: domain.RoleEmployee})

	if err := handler.UpdateStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestIssueHandler_Get_NotFound(t *testing.T) {
	e := newEcho()
	handler := NewIssueHandler(&stubIssueService{
		getFn: func(ctx context.Context, id string) (*domain.Issue, error) {
			return nil, domain.ErrIssueNotFound
		},
	})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("nope")

	if err := handler.Get(c); !errors.Is(err, domain.ErrIssueNotFound) {
		t.Fatalf("expected ErrIssueNotFound, got %v", err)
	}
}
