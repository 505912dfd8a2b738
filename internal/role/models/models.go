// Package models defines the role entity.
package models

import (
	"time"

	id "roster/pkg/domain"
)

// DefaultRoleName is resolved case-insensitively when a user is created
// without explicit roles.
const DefaultRoleName = "user"

// Role is a named permission grouping referenced by identity records.
type Role struct {
	ID          id.RoleID
	Name        string
	Description string
	CreatedAt   time.Time
}

// RoleView is the API projection of a role.
type RoleView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// View maps the role to its API shape.
func (r *Role) View() RoleView {
	return RoleView{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
	}
}
