package models

import (
	"time"

	profilemodels "roster/internal/profile/models"
)

// Profile projections are owned by the profile domain.
type (
	ProfileView        = profilemodels.ProfileView
	IdentificationView = profilemodels.IdentificationView
)

// UserView is the sanitized projection of an identity record. The credential
// hash is never present. Optional fields are pointers/omitempty so the select
// field mask can drop them from the payload.
type UserView struct {
	ID        string       `json:"id"`
	Username  string       `json:"username,omitempty"`
	FullName  string       `json:"fullName,omitempty"`
	IsActive  *bool        `json:"isActive,omitempty"`
	RoleIDs   []string     `json:"roleIds,omitempty"`
	BranchID  string       `json:"branchId,omitempty"`
	ProfileID string       `json:"profileId,omitempty"`
	Roles     []RoleRef    `json:"roles,omitempty"`
	Branch    *BranchRef   `json:"branch,omitempty"`
	Profile   *ProfileView `json:"profile,omitempty"`
	CreatedAt *time.Time   `json:"createdAt,omitempty"`
}

// ListUsersData is the list payload: independent total count, requested page,
// actual returned page size (post-drop, may be smaller than the limit), and
// the sanitized records.
type ListUsersData struct {
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	Users    []UserView `json:"users"`
}

// TokenData is returned by login and refresh.
type TokenData struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int      `json:"expiresIn"`
	User         UserView `json:"user"`
}

// CreatedUserData is returned by user creation: the sanitized expanded user
// plus an initial token pair.
type CreatedUserData struct {
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

// ProfileOverview is the single-profile fetch payload: the sanitized profile
// plus denormalized fields from the linked identity, when one exists.
type ProfileOverview struct {
	Profile  ProfileView `json:"profile"`
	Username string      `json:"username,omitempty"`
	FullName string      `json:"fullName,omitempty"`
	Branch   *BranchRef  `json:"branch,omitempty"`
	Roles    []RoleRef   `json:"roles,omitempty"`
}
