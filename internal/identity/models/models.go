// Package models defines identity domain entities and API shapes.
package models

import (
	"time"

	profilemodels "roster/internal/profile/models"
	id "roster/pkg/domain"
)

// User is the identity record: credentials plus role, branch, and profile
// references. Username is unique among non-deleted records; every user
// carries at least one role reference.
type User struct {
	ID           id.UserID
	Username     string
	PasswordHash string
	FullName     string
	BranchID     id.BranchID  // Nil when the user belongs to no branch
	ProfileID    id.ProfileID // Nil until a profile is attached
	RoleIDs      []id.RoleID
	IsActive     bool
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleRef is an expanded role reference.
type RoleRef struct {
	ID   id.RoleID `json:"id"`
	Name string    `json:"name"`
}

// BranchRef is an expanded branch reference.
type BranchRef struct {
	ID   id.BranchID `json:"id"`
	Name string      `json:"name"`
	Code string      `json:"code,omitempty"`
}

// Record is a user with its relations resolved per the caller's expansion
// list. Profile is nil either because the user has no profile, the relation
// was not requested, or the expansion match excluded it.
type Record struct {
	User
	Roles   []RoleRef
	Branch  *BranchRef
	Profile *profilemodels.Profile
}

// RefreshToken is a persisted opaque refresh token. Tokens rotate on use;
// replay of a used token is rejected.
type RefreshToken struct {
	ID         string
	UserID     id.UserID
	Token      string
	DeviceName string
	ExpiresAt  time.Time
	Used       bool
	CreatedAt  time.Time
}
