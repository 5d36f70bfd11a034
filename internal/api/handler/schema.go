package handler

import (
	"strings"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// --- auth ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required,min=2"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"     validate:"omitempty,oneof=admin employee user"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// --- admin ---

// updateUserRequest accepts any subset of the mutable fields.
type updateUserRequest struct {
	Name  *string `json:"name"  validate:"omitempty,min=2"`
	Email *string `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role"  validate:"omitempty,oneof=admin employee user"`
}

// --- issues ---

type locationRequest struct {
	Latitude  *float64 `json:"latitude"  validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address   string   `json:"address"   validate:"omitempty,max=255"`
}

type createIssueRequest struct {
	Title       string          `json:"title"       validate:"required,min=3,max=100"`
	Description string          `json:"description" validate:"required,min=10,max=1000"`
	Category    string          `json:"category"    validate:"required,oneof=road lighting garbage infrastructure other"`
	Location    locationRequest `json:"location"    validate:"required"`
	Images      []string        `json:"images"      validate:"omitempty,dive,required"`
}

type listIssuesQuery struct {
	Status   string `query:"status"   validate:"omitempty,oneof=pending analyzing inProgress resolved"`
	Category string `query:"category" validate:"omitempty,oneof=road lighting garbage infrastructure other"`
	UserID   string `query:"user_id"`
	Page     int    `query:"page"     validate:"gte=0"`
	Limit    int    `query:"limit"    validate:"gte=0"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending analyzing inProgress resolved"`
	Note   string `json:"note"   validate:"omitempty,max=500"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listIssuesResponse struct {
	Data       []*domain.Issue    `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

// --- normalisation ---
//
// Text fields are trimmed before validation so length rules apply to what
// is stored.

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func (r *registerRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *loginRequest) trim() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r *updateUserRequest) trim() {
	trimPtr(r.Name)
	trimPtr(r.Email)
	trimPtr(r.Role)
}

func (r *createIssueRequest) trim() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location.Address = strings.TrimSpace(r.Location.Address)
}

func (r *updateStatusRequest) trim() {
	r.Note = strings.TrimSpace(r.Note)
}
