package domain

import "time"

// UserRole gates administrative endpoints.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// User represents a registered storefront account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the authenticated caller as asserted by a bearer token.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	Role      UserRole
	ExpiresAt time.Time
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
