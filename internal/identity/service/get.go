package service

import (
	"context"

	"roster/internal/identity/models"
	"roster/internal/platform/tracing"
	id "roster/pkg/domain"
)

// Get returns the fully expanded view of one user.
func (svc *Service) Get(ctx context.Context, userID id.UserID) (view *models.UserView, err error) {
	ctx, span := svc.tracer.Start(ctx, tracing.SpanUserGet)
	defer func() { span.End(err) }()

	u, err := svc.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	expanded, err := svc.expandedView(ctx, u)
	if err != nil {
		return nil, err
	}
	return &expanded, nil
}
