package handler

import (
	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// --- Request → Service input ---

func toRegisterInput(req registerRequest) ports.RegisterInput {
	return ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	}
}

func toUserUpdate(req updateUserRequest) domain.UserUpdate {
	update := domain.UserUpdate{Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		update.Role = &role
	}
	return update
}

func toCreateIssueInput(req createIssueRequest, userID string) ports.CreateIssueInput {
	return ports.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.IssueCategory(req.Category),
		Location: domain.Location{
			Latitude:  *req.Location.Latitude,
			Longitude: *req.Location.Longitude,
			Address:   req.Location.Address,
		},
		Images: req.Images,
		UserID: userID,
	}
}

func toListIssuesInput(q listIssuesQuery) ports.ListIssuesInput {
	return ports.ListIssuesInput{
		Status:   domain.IssueStatus(q.Status),
		Category: domain.IssueCategory(q.Category),
		UserID:   q.UserID,
		Page:     q.Page,
		Limit:    q.Limit,
	}
}

// --- Service output → Response ---

func toListIssuesResponse(r *ports.ListIssuesResult) listIssuesResponse {
	items := r.Items
	if items == nil {
		items = []*domain.Issue{}
	}
	return listIssuesResponse{
		Data: items,
		Pagination: paginationResponse{
			Total:      r.Total,
			Page:       r.Page,
			Limit:      r.Limit,
			TotalPages: r.TotalPages,
		},
	}
}
