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

// Create provisions a user together with its nested profile and issues an
// initial token pair. Explicit role references are honored only when the
// caller passed allowRoles; otherwise the default role is attached.
func (svc *Service) Create(ctx context.Context, req *models.CreateUserRequest, allowRoles bool, deviceName string) (data *models.CreatedUserData, err error) {
	ctx, span := svc.tracer.Start(ctx, tracing.SpanUserCreate,
		tracing.Bool("allow_roles", allowRoles))
	defer func() { span.End(err) }()

	s.TrimStrings(&req.Username, &req.FullName, &req.BranchID)
	if req.Profile != nil {
		trimProfilePayload(req.Profile)
	}
	if err = validation.Validate(req); err != nil {
		return nil, err
	}

	roleIDs, roleRefs, err := svc.resolveRoles(ctx, req.RoleIDs, allowRoles)
	if err != nil {
		return nil, err
	}

	var branchID id.BranchID
	var branchRef *models.BranchRef
	if req.BranchID != "" {
		branchID, branchRef, err = svc.resolveBranch(ctx, req.BranchID)
		if err != nil {
			return nil, err
		}
	}

	if _, findErr := svc.users.FindByUsername(ctx, req.Username); findErr == nil {
		err = dErrors.New(dErrors.CodeConflict, "Username is already taken")
		return nil, err
	} else if !errors.Is(findErr, sentinel.ErrNotFound) {
		err = dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to check username")
		return nil, err
	}

	hash, err := secrets.Hash(req.Password)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
		return nil, err
	}

	now := time.Now()
	profile, err := profilemodels.FromPayload(req.Profile, now)
	if err != nil {
		return nil, err
	}
	if err = svc.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			err = dErrors.New(dErrors.CodeConflict, "Profile email is already in use")
			return nil, err
		}
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
		return nil, err
	}

	u := &models.User{
		ID:           id.UserID(uuid.New()),
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		BranchID:     branchID,
		ProfileID:    profile.ID,
		RoleIDs:      roleIDs,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = svc.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost the race between the precheck and the insert.
			err = dErrors.New(dErrors.CodeConflict, "Username is already taken")
			return nil, err
		}
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		return nil, err
	}

	accessToken, refreshToken, err := svc.issueTokens(ctx, u, roleNames(roleRefs), deviceName)
	if err != nil {
		return nil, err
	}

	if svc.metrics != nil {
		svc.metrics.IncrementUsersCreated()
	}
	svc.emit(ctx, audit.ActionUserCreated, "user", u.ID.String(), map[string]string{
		"username": u.Username,
	})

	record := models.Record{User: *u, Roles: roleRefs, Branch: branchRef, Profile: profile}
	view := buildView(&record, allPopulated, nil)
	return &models.CreatedUserData{
		User:         view,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (svc *Service) resolveRoles(ctx context.Context, raw []string, allowRoles bool) ([]id.RoleID, []models.RoleRef, error) {
	if !allowRoles || len(raw) == 0 {
		role, err := svc.roles.Default(ctx)
		if err != nil {
			return nil, nil, err
		}
		return []id.RoleID{role.ID}, []models.RoleRef{{ID: role.ID, Name: role.Name}}, nil
	}

	roleIDs := make([]id.RoleID, 0, len(raw))
	for _, rawID := range raw {
		roleID, err := id.ParseRoleID(rawID)
		if err != nil {
			return nil, nil, err
		}
		roleIDs = append(roleIDs, roleID)
	}
	roles, err := svc.roles.Resolve(ctx, roleIDs)
	if err != nil {
		return nil, nil, err
	}
	refs := make([]models.RoleRef, 0, len(roles))
	for _, role := range roles {
		refs = append(refs, models.RoleRef{ID: role.ID, Name: role.Name})
	}
	return roleIDs, refs, nil
}

func (svc *Service) resolveBranch(ctx context.Context, raw string) (id.BranchID, *models.BranchRef, error) {
	branchID, err := id.ParseBranchID(raw)
	if err != nil {
		return id.BranchID{}, nil, err
	}
	branch, err := svc.branches.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.BranchID{}, nil, dErrors.New(dErrors.CodeValidation, "unknown branch_id reference")
		}
		return id.BranchID{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve branch")
	}
	return branchID, &models.BranchRef{ID: branch.ID, Name: branch.Name, Code: branch.Code}, nil
}

func roleNames(refs []models.RoleRef) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names
}

func trimProfilePayload(payload *profilemodels.ProfilePayload) {
	s.TrimStrings(&payload.FirstName, &payload.LastName, &payload.Occupation,
		&payload.Address, &payload.PhoneNumber, &payload.Email)
	for i := range payload.Identifications {
		s.TrimStrings(&payload.Identifications[i].CardType, &payload.Identifications[i].CardCode)
	}
}
