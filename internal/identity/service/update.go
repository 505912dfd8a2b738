package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"roster/internal/audit"
	"roster/internal/identity/models"
	"roster/internal/platform/tracing"
	profilemodels "roster/internal/profile/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/secrets"
	s "roster/pkg/string"
	"roster/pkg/validation"
)

// Update applies a partial update to the user and, when a nested profile
// payload is present, to its profile. A user without a profile gets one
// created lazily from the nested payload.
func (svc *Service) Update(ctx context.Context, userID id.UserID, req *models.UpdateUserRequest) (view *models.UserView, err error) {
	ctx, span := svc.tracer.Start(ctx, tracing.SpanUserUpdate)
	defer func() { span.End(err) }()

	if err = validation.Validate(req); err != nil {
		return nil, err
	}
	if updateIsEmpty(req) {
		err = dErrors.New(dErrors.CodeValidation, "update contains no fields")
		return nil, err
	}

	u, err := svc.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		username := *req.Username
		s.TrimStrings(&username)
		if username != u.Username {
			if _, findErr := svc.users.FindByUsername(ctx, username); findErr == nil {
				err = dErrors.New(dErrors.CodeConflict, "Username is already taken")
				return nil, err
			} else if !errors.Is(findErr, sentinel.ErrNotFound) {
				err = dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to check username")
				return nil, err
			}
		}
		u.Username = username
	}
	if req.Password != nil {
		hash, hashErr := secrets.Hash(*req.Password)
		if hashErr != nil {
			err = dErrors.Wrap(hashErr, dErrors.CodeInternal, "failed to hash password")
			return nil, err
		}
		u.PasswordHash = hash
	}
	if req.FullName != nil {
		fullName := *req.FullName
		s.TrimStrings(&fullName)
		u.FullName = fullName
	}
	if req.BranchID != nil {
		if *req.BranchID == "" {
			u.BranchID = id.BranchID{}
		} else {
			branchID, _, branchErr := svc.resolveBranch(ctx, *req.BranchID)
			if branchErr != nil {
				err = branchErr
				return nil, err
			}
			u.BranchID = branchID
		}
	}
	if req.RoleIDs != nil {
		roleIDs, _, roleErr := svc.resolveRoles(ctx, req.RoleIDs, true)
		if roleErr != nil {
			err = roleErr
			return nil, err
		}
		u.RoleIDs = roleIDs
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if req.Profile != nil && !req.Profile.Empty() {
		if err = svc.applyProfileUpdate(ctx, u, req.Profile); err != nil {
			return nil, err
		}
	}

	u.UpdatedAt = time.Now()
	if err = svc.users.Update(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			err = dErrors.New(dErrors.CodeConflict, "Username is already taken")
			return nil, err
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, "User not found")
			return nil, err
		}
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
		return nil, err
	}

	svc.emit(ctx, audit.ActionUserUpdated, "user", u.ID.String(), nil)

	expanded, err := svc.expandedView(ctx, u)
	if err != nil {
		return nil, err
	}
	return &expanded, nil
}

// applyProfileUpdate updates the attached profile, or lazily creates one
// when the user has none yet.
func (svc *Service) applyProfileUpdate(ctx context.Context, u *models.User, payload *profilemodels.UpdateProfilePayload) error {
	now := time.Now()

	if u.ProfileID.IsNil() {
		if payload.FirstName == nil {
			return dErrors.New(dErrors.CodeValidation, "profile firstName is required to create a profile")
		}
		profile := &profilemodels.Profile{
			ID:        id.ProfileID(uuid.New()),
			CreatedAt: now,
		}
		if err := profile.ApplyUpdate(payload, now); err != nil {
			return err
		}
		if err := svc.profiles.Create(ctx, profile); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "Profile email is already in use")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
		}
		u.ProfileID = profile.ID
		return nil
	}

	profile, err := svc.profiles.FindByID(ctx, u.ProfileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvariantViolation, "user references a missing profile")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch profile")
	}
	if err := profile.ApplyUpdate(payload, now); err != nil {
		return err
	}
	if err := svc.profiles.Update(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeConflict, "Profile email is already in use")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	return nil
}

func updateIsEmpty(req *models.UpdateUserRequest) bool {
	return req.Username == nil && req.Password == nil && req.FullName == nil &&
		req.BranchID == nil && req.RoleIDs == nil && req.IsActive == nil &&
		(req.Profile == nil || req.Profile.Empty())
}
