package domain

import (
	"strings"
	"time"
)

// Role identifies what a user may do. The canonical form always carries the
// ROLE_ prefix; NormalizeRole is applied at the token boundary so comparisons
// elsewhere can be plain equality.
type Role string

const (
	RolePatient Role = "ROLE_PATIENT"
	RoleDoctor  Role = "ROLE_DOCTOR"
	RoleAdmin   Role = "ROLE_ADMIN"
)

// NormalizeRole maps a raw role string to its canonical ROLE_-prefixed form.
// The second return is false when the value names no known role.
func NormalizeRole(raw string) (Role, bool) {
	candidate := strings.ToUpper(strings.TrimSpace(raw))
	if candidate == "" {
		return "", false
	}
	if !strings.HasPrefix(candidate, "ROLE_") {
		candidate = "ROLE_" + candidate
	}
	switch Role(candidate) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(candidate), true
	}
	return "", false
}

// User is the domain model for every principal: patients, doctors and admins
// share one table, differentiated by Role.
type User struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	PasswordHash   string
	Role           Role
	PhoneNumber    string
	Address        string
	Specialization string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName renders the display name used in notification messages.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
