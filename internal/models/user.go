package models

import (
	"time"

	"github.com/google/uuid"
)

// GlobalRole is the platform-wide role of a user.
type GlobalRole string

const (
	GlobalRoleSystemAdmin GlobalRole = "system_admin"
	GlobalRoleContributor GlobalRole = "contributor"
)

// User represents a platform user
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email     string `json:"email" db:"email"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role     GlobalRole `json:"role" db:"role"`
	IsActive bool       `json:"isActive" db:"is_active"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	Settings Variables `json:"settings" db:"settings"`
}

// IsSystemAdmin reports whether the user is a system-level actor.
func (u *User) IsSystemAdmin() bool {
	return u != nil && u.Role == GlobalRoleSystemAdmin
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	if u.FirstName == "" {
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}
