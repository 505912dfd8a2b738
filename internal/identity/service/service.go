// Package service implements the identity operations: user lifecycle, the
// list pipeline, authentication, and the denormalized profile overview.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"roster/internal/audit"
	"roster/internal/identity/models"
	"roster/internal/identity/query"
	"roster/internal/identity/store/revocation"
	"roster/internal/platform/metrics"
	"roster/internal/platform/middleware"
	"roster/internal/platform/tracing"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Config carries the tunables the identity flows need.
type Config struct {
	Limits     query.Limits
	RefreshTTL time.Duration
}

type Service struct {
	users         UserStore
	profiles      ProfileStore
	roles         RoleResolver
	branches      BranchStore
	refreshTokens RefreshTokenStore
	revoked       revocation.List
	tokens        TokenIssuer
	audit         *audit.Publisher
	metrics       *metrics.Metrics
	tracer        tracing.Tracer
	logger        *slog.Logger
	cfg           Config
}

func New(
	users UserStore,
	profiles ProfileStore,
	roles RoleResolver,
	branches BranchStore,
	refreshTokens RefreshTokenStore,
	revoked revocation.List,
	tokens TokenIssuer,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	tracer tracing.Tracer,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}
	return &Service{
		users:         users,
		profiles:      profiles,
		roles:         roles,
		branches:      branches,
		refreshTokens: refreshTokens,
		revoked:       revoked,
		tokens:        tokens,
		audit:         auditor,
		metrics:       m,
		tracer:        tracer,
		logger:        logger,
		cfg:           cfg,
	}
}

// Limits exposes the paging defaults for query parsing in the handler.
func (svc *Service) Limits() query.Limits {
	return svc.cfg.Limits
}

func (svc *Service) findUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := svc.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch user")
	}
	return u, nil
}

// expandedView assembles the fully expanded view of a single user, resolving
// every relation the record references.
func (svc *Service) expandedView(ctx context.Context, u *models.User) (models.UserView, error) {
	record := models.Record{User: *u}

	if len(u.RoleIDs) > 0 {
		roles, err := svc.roles.Resolve(ctx, u.RoleIDs)
		if err != nil {
			return models.UserView{}, err
		}
		for _, role := range roles {
			record.Roles = append(record.Roles, models.RoleRef{ID: role.ID, Name: role.Name})
		}
	}
	if !u.BranchID.IsNil() {
		branch, err := svc.branches.FindByID(ctx, u.BranchID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return models.UserView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expand branch")
		}
		if branch != nil {
			record.Branch = &models.BranchRef{ID: branch.ID, Name: branch.Name, Code: branch.Code}
		}
	}
	if !u.ProfileID.IsNil() {
		profile, err := svc.profiles.FindByID(ctx, u.ProfileID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return models.UserView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expand profile")
		}
		record.Profile = profile
	}

	return buildView(&record, allPopulated, nil), nil
}

func (svc *Service) emit(ctx context.Context, action audit.Action, entity, entityID string, detail map[string]string) {
	if svc.audit == nil {
		return
	}
	if err := svc.audit.Emit(ctx, audit.Event{
		ActorID:  middleware.GetUserID(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	}); err != nil {
		svc.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}
