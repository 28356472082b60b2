// Package models defines the records persisted by the local credential
// database and the in-process session identity.
package models

import (
	"strings"
	"time"
)

// Role is one of the closed set of account roles.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole trims and lowercases s and reports whether it names a known role.
// A blank role means RoleUser.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case "":
		return RoleUser, true
	case RoleOwner, RoleAdmin, RoleUser:
		return r, true
	default:
		return r, false
	}
}

// User is a row of the users table.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time

	// MachineID is the owner's bound fingerprint; empty when unbound.
	MachineID string

	// LastLogin is nil until the first successful login.
	LastLogin *time.Time
}

// IsOwner reports whether u holds the owner role.
func (u *User) IsOwner() bool {
	return u != nil && u.Role == RoleOwner
}
