package service

import (
	"context"
	"errors"

	"roster/internal/identity/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// ProfileOverview fetches a profile by ID together with the denormalized
// identity fields, when an identity references it. A standalone profile
// comes back without the identity fields, not as an error.
func (svc *Service) ProfileOverview(ctx context.Context, profileID id.ProfileID) (*models.ProfileOverview, error) {
	profile, err := svc.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch profile")
	}

	overview := &models.ProfileOverview{Profile: profile.View()}

	u, err := svc.users.FindByProfileID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return overview, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch linked user")
	}

	overview.Username = u.Username
	overview.FullName = u.FullName
	if overview.FullName == "" {
		overview.FullName = profile.FullName()
	}

	if len(u.RoleIDs) > 0 {
		roles, err := svc.roles.Resolve(ctx, u.RoleIDs)
		if err != nil {
			return nil, err
		}
		for _, role := range roles {
			overview.Roles = append(overview.Roles, models.RoleRef{ID: role.ID, Name: role.Name})
		}
	}
	if !u.BranchID.IsNil() {
		branch, err := svc.branches.FindByID(ctx, u.BranchID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expand branch")
		}
		if branch != nil {
			overview.Branch = &models.BranchRef{ID: branch.ID, Name: branch.Name, Code: branch.Code}
		}
	}
	return overview, nil
}

// ProfileIDForUser resolves the profile attached to an authenticated
// account. It backs the self-service profile and photo routes.
func (svc *Service) ProfileIDForUser(ctx context.Context, rawUserID string) (id.ProfileID, error) {
	userID, err := id.ParseUserID(rawUserID)
	if err != nil {
		return id.ProfileID{}, err
	}
	u, err := svc.findUser(ctx, userID)
	if err != nil {
		return id.ProfileID{}, err
	}
	if u.ProfileID.IsNil() {
		return id.ProfileID{}, dErrors.New(dErrors.CodeNotFound, "No profile attached to this account")
	}
	return u.ProfileID, nil
}
