package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string // argon2id PHC string
	Active       bool
	Admin        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName is "First Last", trimmed when either part is empty.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName is the profile heading, "First Last (@username)".
func (u User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name + " (@" + u.Username + ")"
	}
	return "@" + u.Username
}

// CanAccess reports whether u may see or change a record owned by ownerID.
func (u User) CanAccess(ownerID string) bool {
	return u.ID == ownerID || u.Admin
}
