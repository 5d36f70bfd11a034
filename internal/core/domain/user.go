package domain

import "time"

// Role determines which routes an identity may invoke.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleUser     Role = "user"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleUser:
		return true
	}
	return false
}

// User models an identity in the credential store.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// IsStaff reports whether the user may triage reports.
func (u *User) IsStaff() bool { return u != nil && PolicyStaff.Allows(u.Role) }

// UserUpdate is a partial update of a user's mutable fields.
// Nil fields are left unchanged.
type UserUpdate struct {
	Name  *string
	Email *string
	Role  *Role
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil
}

// Apply copies the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.Role != nil {
		user.Role = *u.Role
	}
}
