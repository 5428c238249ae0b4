package domain

import (
	"strings"
	"time"
)

// Role is the application-level role of a user account.
type Role string

const (
	RolePending Role = "pending"
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
)

// ParseRole converts a string to a Role. Unknown values map to RolePending.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser
	case RoleAdmin:
		return RoleAdmin
	default:
		return RolePending
	}
}

// User represents a provisioned account in the tenant.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         Role
	PasswordHash string // bcrypt; never serialized
	CreatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Group represents a named collection of users.
type Group struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// GroupMember represents the membership of a user in a group.
type GroupMember struct {
	GroupID int64
	UserID  int64
}
