// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "roster/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a UserID where a BranchID is expected.
type (
	UserID    uuid.UUID
	ProfileID uuid.UUID
	BranchID  uuid.UUID
	RoleID    uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user_id")
	return UserID(id), err
}

func ParseProfileID(s string) (ProfileID, error) {
	id, err := parseUUID(s, "profile_id")
	return ProfileID(id), err
}

func ParseBranchID(s string) (BranchID, error) {
	id, err := parseUUID(s, "branch_id")
	return BranchID(id), err
}

func ParseRoleID(s string) (RoleID, error) {
	id, err := parseUUID(s, "role_id")
	return RoleID(id), err
}

// String methods - for logging and debugging.

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id BranchID) String() string  { return uuid.UUID(id).String() }
func (id RoleID) String() string    { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BranchID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RoleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. The field name lands in the
// error message so the caller can tell which identifier was malformed.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field+" format")
	}
	return id, nil
}
