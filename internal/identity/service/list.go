package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"roster/internal/identity/models"
	"roster/internal/identity/query"
	"roster/internal/platform/tracing"
	dErrors "roster/pkg/domain-errors"
)

// List runs the user list pipeline: the page fetch and the independent total
// count run concurrently, then each record is projected. The total always
// reflects the top-level filter alone; pageSize is the count actually
// returned after profile-gated rows are dropped, so it can undershoot the
// requested limit.
func (svc *Service) List(ctx context.Context, q *query.ListQuery) (data *models.ListUsersData, err error) {
	ctx, span := svc.tracer.Start(ctx, tracing.SpanUserList,
		tracing.String(tracing.AttrPopulate, populateLabel(q.Populate)),
		tracing.Bool("filter.gated", q.GatedOnProfile()),
	)
	defer func() { span.End(err) }()
	if q.Filter.BranchID != nil {
		span.SetAttributes(tracing.String(tracing.AttrBranchID, q.Filter.BranchID.String()))
	}

	var (
		records []*models.Record
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var listErr error
		records, listErr = svc.users.List(gctx, q)
		return listErr
	})
	g.Go(func() error {
		var countErr error
		total, countErr = svc.users.Count(gctx, q.Filter)
		return countErr
	})
	if waitErr := g.Wait(); waitErr != nil {
		err = dErrors.Wrap(waitErr, dErrors.CodeInternal, "failed to list users")
		return nil, err
	}

	users := make([]models.UserView, 0, len(records))
	dropped := 0
	for _, record := range records {
		view, ok := project(record, q)
		if !ok {
			dropped++
			continue
		}
		users = append(users, view)
	}

	span.SetAttributes(
		tracing.Int64(tracing.AttrTotal, int64(total)),
		tracing.Int64(tracing.AttrDropped, int64(dropped)),
	)
	if svc.metrics != nil {
		svc.metrics.AddListedUsers(len(users))
		svc.metrics.AddDroppedByGate(dropped)
	}

	return &models.ListUsersData{
		Total:    total,
		Page:     q.Page,
		PageSize: len(users),
		Users:    users,
	}, nil
}

func populateLabel(p query.Populate) string {
	return fmt.Sprintf("role=%t,branch=%t,profile=%t", p.Role, p.Branch, p.Profile)
}
