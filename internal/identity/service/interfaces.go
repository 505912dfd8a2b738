package service

import (
	"context"
	"time"

	branchmodels "roster/internal/branch/models"
	"roster/internal/identity/models"
	"roster/internal/identity/query"
	profilemodels "roster/internal/profile/models"
	rolemodels "roster/internal/role/models"
	"roster/internal/token"
	id "roster/pkg/domain"
)

// UserStore is the identity persistence contract.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByProfileID(ctx context.Context, profileID id.ProfileID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, userID id.UserID, hard bool) error
	Count(ctx context.Context, f query.Filter) (int, error)
	List(ctx context.Context, q *query.ListQuery) ([]*models.Record, error)
}

// ProfileStore is the slice of the profile persistence the identity flows
// need for nested create/update and expansion.
type ProfileStore interface {
	Create(ctx context.Context, p *profilemodels.Profile) error
	FindByID(ctx context.Context, profileID id.ProfileID) (*profilemodels.Profile, error)
	Update(ctx context.Context, p *profilemodels.Profile) error
}

// RoleResolver answers role lookups during user create/update.
type RoleResolver interface {
	Default(ctx context.Context) (*rolemodels.Role, error)
	Resolve(ctx context.Context, ids []id.RoleID) ([]*rolemodels.Role, error)
}

// BranchStore validates and expands branch references.
type BranchStore interface {
	FindByID(ctx context.Context, branchID id.BranchID) (*branchmodels.Branch, error)
}

// RefreshTokenStore persists opaque refresh tokens. Consume atomically marks
// a token used and returns it; replay and expiry surface as domain errors.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeForUser(ctx context.Context, userID id.UserID) error
}

// TokenIssuer signs access tokens and mints opaque refresh tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, username string, roles []string, branchID string) (accessToken string, jti string, err error)
	ParseTokenSkipClaimsValidation(tokenString string) (*token.AccessTokenClaims, error)
	CreateRefreshToken() (string, error)
	TTL() time.Duration
}
