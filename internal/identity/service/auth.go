package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"roster/internal/audit"
	"roster/internal/identity/models"
	"roster/internal/platform/tracing"
	"roster/internal/sentinel"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/secrets"
	s "roster/pkg/string"
	"roster/pkg/validation"
)

// Login authenticates by username and password and issues a token pair. The
// failure message never distinguishes a missing account from a bad password.
func (svc *Service) Login(ctx context.Context, req *models.LoginRequest, deviceName string) (data *models.TokenData, err error) {
	ctx, span := svc.tracer.Start(ctx, tracing.SpanLogin)
	defer func() { span.End(err) }()

	s.TrimStrings(&req.Username)
	if err = validation.Validate(req); err != nil {
		return nil, err
	}

	u, findErr := svc.users.FindByUsername(ctx, req.Username)
	if findErr != nil {
		if errors.Is(findErr, sentinel.ErrNotFound) {
			err = svc.loginFailure(ctx, req.Username)
			return nil, err
		}
		err = dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to fetch user")
		return nil, err
	}
	if !u.IsActive {
		err = svc.loginFailure(ctx, req.Username)
		return nil, err
	}
	if verifyErr := secrets.Verify(req.Password, u.PasswordHash); verifyErr != nil {
		err = svc.loginFailure(ctx, req.Username)
		return nil, err
	}

	data, err = svc.tokenResponse(ctx, u, deviceName)
	if err != nil {
		return nil, err
	}

	svc.emit(ctx, audit.ActionLoginSucceeded, "user", u.ID.String(), map[string]string{
		"device": deviceName,
	})
	return data, nil
}

// Refresh rotates a refresh token: the presented token is atomically
// consumed, and replay of a consumed token is rejected.
func (svc *Service) Refresh(ctx context.Context, req *models.RefreshRequest, deviceName string) (*models.TokenData, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	rt, err := svc.refreshTokens.Consume(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid refresh token")
		}
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume refresh token")
	}

	u, err := svc.users.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "Account no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch user")
	}
	if !u.IsActive || u.Deleted {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Account is disabled")
	}

	data, err := svc.tokenResponse(ctx, u, deviceName)
	if err != nil {
		return nil, err
	}
	svc.emit(ctx, audit.ActionTokenRefreshed, "user", u.ID.String(), nil)
	return data, nil
}

// Logout revokes the presented access token by JTI for its remaining
// lifetime and, when a refresh token rides along, consumes it so it cannot
// rotate again. An already-expired access token is accepted; there is
// nothing left to revoke.
func (svc *Service) Logout(ctx context.Context, accessToken string, req *models.LogoutRequest) error {
	claims, err := svc.tokens.ParseTokenSkipClaimsValidation(accessToken)
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "Invalid token")
	}

	if claims.ExpiresAt != nil {
		if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
			if revokeErr := svc.revoked.Revoke(ctx, claims.ID, ttl); revokeErr != nil {
				return dErrors.Wrap(revokeErr, dErrors.CodeInternal, "failed to revoke token")
			}
		}
	}

	if req != nil && req.RefreshToken != "" {
		if _, consumeErr := svc.refreshTokens.Consume(ctx, req.RefreshToken); consumeErr != nil {
			// Already used, expired, or unknown: logout still succeeds.
			svc.logger.DebugContext(ctx, "refresh token not consumed on logout", "error", consumeErr)
		}
	}

	svc.emit(ctx, audit.ActionLogout, "user", claims.UserID, nil)
	return nil
}

func (svc *Service) loginFailure(ctx context.Context, username string) error {
	if svc.metrics != nil {
		svc.metrics.IncrementAuthFailures()
	}
	svc.emit(ctx, audit.ActionLoginFailed, "user", "", map[string]string{
		"username": username,
	})
	return dErrors.New(dErrors.CodeUnauthorized, "Invalid username or password")
}

// tokenResponse issues an access/refresh pair and assembles the token
// payload with the expanded user.
func (svc *Service) tokenResponse(ctx context.Context, u *models.User, deviceName string) (*models.TokenData, error) {
	view, err := svc.expandedView(ctx, u)
	if err != nil {
		return nil, err
	}
	accessToken, refreshToken, err := svc.issueTokens(ctx, u, roleNames(view.Roles), deviceName)
	if err != nil {
		return nil, err
	}
	if svc.metrics != nil {
		svc.metrics.IncrementTokenRequests()
	}
	return &models.TokenData{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(svc.tokens.TTL().Seconds()),
		User:         view,
	}, nil
}

func (svc *Service) issueTokens(ctx context.Context, u *models.User, roles []string, deviceName string) (string, string, error) {
	branchID := ""
	if !u.BranchID.IsNil() {
		branchID = u.BranchID.String()
	}
	accessToken, _, err := svc.tokens.GenerateAccessToken(u.ID, u.Username, roles, branchID)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	refreshToken, err := svc.tokens.CreateRefreshToken()
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint refresh token")
	}
	now := time.Now()
	if err := svc.refreshTokens.Create(ctx, &models.RefreshToken{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		Token:      refreshToken,
		DeviceName: deviceName,
		ExpiresAt:  now.Add(svc.cfg.RefreshTTL),
		CreatedAt:  now,
	}); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist refresh token")
	}
	return accessToken, refreshToken, nil
}
