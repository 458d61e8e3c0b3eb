package entities

import (
	"fmt"
	"slices"
	"time"
)

// Role is a dashboard role from user_roles
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleAgent       Role = "agent"
	RoleProjectUser Role = "project_user"
)

// ParseRole validates s
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleAgent, RoleProjectUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is a dashboard account
type User struct {
	ID                 string    `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	FullName           string    `json:"full_name" db:"full_name"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	MustChangePassword bool      `json:"must_change_password" db:"must_change_password"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Principal is the resolved caller of a dashboard request
type Principal struct {
	UserID             string   `json:"user_id"`
	Email              string   `json:"email"`
	Role               Role     `json:"role"`
	Projects           []string `json:"projects"`
	MustChangePassword bool     `json:"must_change_password"`
}

// IsAdmin reports whether the principal sees every project
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// HasRole reports whether the principal holds one of roles
func (p *Principal) HasRole(roles ...Role) bool {
	return p != nil && slices.Contains(roles, p.Role)
}

// CanAccess reports whether the principal may read or write project
func (p *Principal) CanAccess(project string) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return slices.Contains(p.Projects, project)
}

// ScopeProjects narrows a requested project filter to what the principal may see.
// An empty result with ok=true means "no restriction" and only happens for admins.
func (p *Principal) ScopeProjects(requested string) (projects []string, ok bool) {
	if requested != "" {
		if !p.CanAccess(requested) {
			return nil, false
		}
		return []string{requested}, true
	}
	if p.IsAdmin() {
		return nil, true
	}
	if p == nil || len(p.Projects) == 0 {
		return nil, false
	}
	return slices.Clone(p.Projects), true
}

// NewUserInput is what an admin supplies to create an account
type NewUserInput struct {
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     Role     `json:"role"`
	Projects []string `json:"projects"`
}
