package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (UserRole, bool) {
	r := UserRole(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleTeacher, RoleStudent, RoleAdmin:
		return r, true
	}
	return "", false
}

// SelfAssignable reports whether the role may be picked at registration.
// Admins are provisioned out of band.
func (r UserRole) SelfAssignable() bool {
	return r == RoleTeacher || r == RoleStudent
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
