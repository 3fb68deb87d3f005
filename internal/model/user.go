package model

import (
	"fmt"
	"time"
)

// User represents a library account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin     = "admin"
	RoleLibrarian = "librarian"
	RoleReader    = "reader"
)

// Account statuses. Self-registered readers start as pending until an admin
// activates them; only active accounts may trigger workflow transitions.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusDisabled = "disabled"
	StatusRejected = "rejected"
)

// IsStaff reports whether the role may perform librarian actions.
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleLibrarian
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleLibrarian || role == RoleReader
}

// ValidStatus reports whether status is one of the known account statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusActive, StatusDisabled, StatusRejected:
		return true
	}
	return false
}

// ValidatePassword checks requirements for new passwords.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
