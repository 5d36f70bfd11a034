package client

import "time"

// User is an account as rendered by the API.
type User struct {
	ID        string    `json:"id"        yaml:"id"`
	Email     string    `json:"email"     yaml:"email"`
	Name      string    `json:"name"      yaml:"name"`
	Role      string    `json:"role"      yaml:"role"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  *User  `json:"user"  yaml:"user"`
	Token string `json:"token" yaml:"-"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// UserUpdate is a partial admin update; nil fields are not sent.
type UserUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"          yaml:"latitude"`
	Longitude float64 `json:"longitude"         yaml:"longitude"`
	Address   string  `json:"address,omitempty" yaml:"address,omitempty"`
}

type StatusChange struct {
	Status    string    `json:"status"          yaml:"status"`
	ChangedBy string    `json:"changed_by"      yaml:"changed_by"`
	Note      string    `json:"note,omitempty"  yaml:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"       yaml:"timestamp"`
}

type Issue struct {
	ID            string         `json:"id"                       yaml:"id"`
	Title         string         `json:"title"                    yaml:"title"`
	Description   string         `json:"description"              yaml:"description"`
	Category      string         `json:"category"                 yaml:"category"`
	Status        string         `json:"status"                   yaml:"status"`
	Location      Location       `json:"location"                 yaml:"location"`
	Images        []string       `json:"images"                   yaml:"images"`
	UserID        string         `json:"user_id"                  yaml:"user_id"`
	CreatedAt     time.Time      `json:"created_at"               yaml:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"               yaml:"updated_at"`
	StatusHistory []StatusChange `json:"status_history,omitempty" yaml:"status_history,omitempty"`
}

type CreateIssueRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    Location `json:"location"`
	Images      []string `json:"images,omitempty"`
}

// ListIssuesOptions filters the issue list. Zero values are omitted.
type ListIssuesOptions struct {
	Status   string
	Category string
	UserID   string
	Page     int
	Limit    int
}

type Pagination struct {
	Total      int64 `json:"total"       yaml:"total"`
	Page       int   `json:"page"        yaml:"page"`
	Limit      int   `json:"limit"       yaml:"limit"`
	TotalPages int   `json:"total_pages" yaml:"total_pages"`
}

type IssuePage struct {
	Data       []*Issue   `json:"data"       yaml:"data"`
	Pagination Pagination `json:"pagination" yaml:"pagination"`
}
