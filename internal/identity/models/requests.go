package models

import (
	profilemodels "roster/internal/profile/models"
)

// Profile payload shapes are owned by the profile domain; the aliases keep
// the nested user create/update requests self-describing.
type (
	ProfilePayload        = profilemodels.ProfilePayload
	IdentificationPayload = profilemodels.IdentificationPayload
	UpdateProfilePayload  = profilemodels.UpdateProfilePayload
)

// CreateUserRequest creates an identity record together with its profile.
// Explicit role IDs are only honored when the caller passed allowRoles=true;
// otherwise the default role is resolved by name.
type CreateUserRequest struct {
	Username string          `json:"username" validate:"required,notblank,min=3,max=64"`
	Password string          `json:"password" validate:"required,min=8,max=128"`
	FullName string          `json:"fullName" validate:"omitempty,max=200"`
	BranchID string          `json:"branchId" validate:"omitempty,uuid"`
	RoleIDs  []string        `json:"roleIds" validate:"omitempty,dive,uuid"`
	Profile  *ProfilePayload `json:"profile" validate:"required"`
}

// UpdateUserRequest applies a partial update. Nil pointers leave fields
// untouched; a nested profile payload lazily creates the profile when the
// user has none yet.
type UpdateUserRequest struct {
	Username *string               `json:"username" validate:"omitempty,notblank,min=3,max=64"`
	Password *string               `json:"password" validate:"omitempty,min=8,max=128"`
	FullName *string               `json:"fullName" validate:"omitempty,max=200"`
	BranchID *string               `json:"branchId" validate:"omitempty,uuid"`
	RoleIDs  []string              `json:"roleIds" validate:"omitempty,dive,uuid"`
	IsActive *bool                 `json:"isActive"`
	Profile  *UpdateProfilePayload `json:"profile"`
}

// LoginRequest authenticates by username and password.
type LoginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,notblank"`
}

// LogoutRequest revokes the current access token and, when given, consumes
// the refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// DeleteMode selects the consolidated deletion policy: tombstone or
// physical removal.
type DeleteMode string

const (
	DeleteSoft DeleteMode = "soft"
	DeleteHard DeleteMode = "hard"
)

// ParseDeleteMode maps the query flag to a mode, defaulting to soft.
func ParseDeleteMode(s string) (DeleteMode, bool) {
	switch s {
	case "", string(DeleteSoft):
		return DeleteSoft, true
	case string(DeleteHard):
		return DeleteHard, true
	default:
		return "", false
	}
}
