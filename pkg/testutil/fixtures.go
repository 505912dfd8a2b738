package testutil

import (
	"time"

	"github.com/google/uuid"

	branchmodels "roster/internal/branch/models"
	identitymodels "roster/internal/identity/models"
	profilemodels "roster/internal/profile/models"
	rolemodels "roster/internal/role/models"
	id "roster/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	UserID1    id.UserID
	UserID2    id.UserID
	ProfileID1 id.ProfileID
	ProfileID2 id.ProfileID
	BranchID1  id.BranchID
	BranchID2  id.BranchID
	RoleID1    id.RoleID
	RoleID2    id.RoleID
}{
	UserID1:    id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:    id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	ProfileID1: id.ProfileID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	ProfileID2: id.ProfileID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
	BranchID1:  id.BranchID(uuid.MustParse("bbbb0000-0000-0000-0000-000000000001")),
	BranchID2:  id.BranchID(uuid.MustParse("bbbb0000-0000-0000-0000-000000000002")),
	RoleID1:    id.RoleID(uuid.MustParse("cccc0000-0000-0000-0000-000000000001")),
	RoleID2:    id.RoleID(uuid.MustParse("cccc0000-0000-0000-0000-000000000002")),
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *identitymodels.User
}

// NewUserBuilder creates a new UserBuilder with sensible defaults.
func NewUserBuilder() *UserBuilder {
	now := time.Now()
	return &UserBuilder{
		user: &identitymodels.User{
			ID:           id.UserID(uuid.New()),
			Username:     "testuser-" + uuid.NewString()[:8],
			PasswordHash: "$2a$10$test.hash.not.a.real.one",
			FullName:     "Test User",
			RoleIDs:      []id.RoleID{TestIDs.RoleID1},
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func (b *UserBuilder) WithID(userID id.UserID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.user.Username = username
	return b
}

func (b *UserBuilder) WithFullName(fullName string) *UserBuilder {
	b.user.FullName = fullName
	return b
}

func (b *UserBuilder) WithBranchID(branchID id.BranchID) *UserBuilder {
	b.user.BranchID = branchID
	return b
}

func (b *UserBuilder) WithProfileID(profileID id.ProfileID) *UserBuilder {
	b.user.ProfileID = profileID
	return b
}

func (b *UserBuilder) WithRoleIDs(roleIDs ...id.RoleID) *UserBuilder {
	b.user.RoleIDs = roleIDs
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.user.IsActive = false
	return b
}

func (b *UserBuilder) Build() *identitymodels.User {
	return b.user
}

// ProfileBuilder provides a fluent interface for building test profiles.
type ProfileBuilder struct {
	profile *profilemodels.Profile
}

// NewProfileBuilder creates a new ProfileBuilder with sensible defaults.
func NewProfileBuilder() *ProfileBuilder {
	now := time.Now()
	return &ProfileBuilder{
		profile: &profilemodels.Profile{
			ID:        id.ProfileID(uuid.New()),
			FirstName: "Test",
			LastName:  "Person",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *ProfileBuilder) WithID(profileID id.ProfileID) *ProfileBuilder {
	b.profile.ID = profileID
	return b
}

func (b *ProfileBuilder) WithName(firstName, lastName string) *ProfileBuilder {
	b.profile.FirstName = firstName
	b.profile.LastName = lastName
	return b
}

func (b *ProfileBuilder) WithGender(gender string) *ProfileBuilder {
	b.profile.Gender = gender
	return b
}

func (b *ProfileBuilder) WithEmail(email string) *ProfileBuilder {
	b.profile.Email = email
	return b
}

func (b *ProfileBuilder) WithDateOfBirth(t time.Time) *ProfileBuilder {
	b.profile.DateOfBirth = &t
	return b
}

func (b *ProfileBuilder) WithIdentifications(ids ...profilemodels.Identification) *ProfileBuilder {
	b.profile.Identifications = ids
	return b
}

func (b *ProfileBuilder) WithPhoto(bucket, key, name, contentType string) *ProfileBuilder {
	b.profile.PhotoBucket = bucket
	b.profile.PhotoKey = key
	b.profile.PhotoName = name
	b.profile.PhotoContentType = contentType
	return b
}

func (b *ProfileBuilder) Build() *profilemodels.Profile {
	return b.profile
}

// BranchBuilder provides a fluent interface for building test branches.
type BranchBuilder struct {
	branch *branchmodels.Branch
}

// NewBranchBuilder creates a new BranchBuilder with sensible defaults.
func NewBranchBuilder() *BranchBuilder {
	now := time.Now()
	return &BranchBuilder{
		branch: &branchmodels.Branch{
			ID:        id.BranchID(uuid.New()),
			Name:      "Branch " + uuid.NewString()[:8],
			Code:      "BR-01",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *BranchBuilder) WithID(branchID id.BranchID) *BranchBuilder {
	b.branch.ID = branchID
	return b
}

func (b *BranchBuilder) WithName(name string) *BranchBuilder {
	b.branch.Name = name
	return b
}

func (b *BranchBuilder) WithCode(code string) *BranchBuilder {
	b.branch.Code = code
	return b
}

func (b *BranchBuilder) Build() *branchmodels.Branch {
	return b.branch
}

// Quick helper functions for simple test cases

// NewTestRole creates a role with the given ID and name.
func NewTestRole(roleID id.RoleID, name string) *rolemodels.Role {
	return &rolemodels.Role{
		ID:        roleID,
		Name:      name,
		CreatedAt: time.Now(),
	}
}

// NewTestUser creates a test user with the given ID and username.
func NewTestUser(userID id.UserID, username string) *identitymodels.User {
	return NewUserBuilder().
		WithID(userID).
		WithUsername(username).
		Build()
}

// NewTestProfile creates a test profile with the given ID and email.
func NewTestProfile(profileID id.ProfileID, email string) *profilemodels.Profile {
	return NewProfileBuilder().
		WithID(profileID).
		WithEmail(email).
		Build()
}
