// Package models defines the core data structures shared by the StudySync
// server and client: users, notes, papers and attendance subjects.
package models

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist
	// or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by repositories when a unique constraint fails.
	ErrDuplicate = errors.New("duplicate")
)

// Role is the authorization level of a user.
type Role string

const (
	// RoleUser is assigned to every account at signup.
	RoleUser Role = "user"
	// RoleAdmin may upload and delete papers. It is granted out-of-band.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// FullName is the display name given at signup.
	FullName string
	// Email is the login identifier, stored lower-cased.
	Email string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte
	// Role is either RoleUser or RoleAdmin.
	Role Role
	// CreatedAt is the signup time.
	CreatedAt time.Time
}

// PublicUser is the part of a User that is returned to clients.
type PublicUser struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Public strips credentials from the user.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}
