package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleAdmin grants access to every user's contacts.
	RoleAdmin Role = "admin"
	// RoleUser grants access to the user's own contacts only.
	RoleUser Role = "user"
)

// User represents an authenticated account in the system.
type User struct {
	Entity
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"` // Stored hashed, filter from API responses
	Role         Role      `json:"role"`
	LastLoginAt  time.Time `json:"lastLoginAt,omitzero"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
