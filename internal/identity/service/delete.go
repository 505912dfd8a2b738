package service

import (
	"context"
	"errors"

	"roster/internal/audit"
	"roster/internal/identity/models"
	"roster/internal/platform/tracing"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Delete removes a user under the consolidated mode flag: soft tombstones
// the record and frees its username, hard removes the row. The profile is
// never cascade-deleted. Outstanding refresh tokens are revoked either way.
func (svc *Service) Delete(ctx context.Context, userID id.UserID, mode models.DeleteMode) (err error) {
	ctx, span := svc.tracer.Start(ctx, tracing.SpanUserDelete,
		tracing.String(tracing.AttrDeleteMode, string(mode)))
	defer func() { span.End(err) }()

	if err = svc.users.Delete(ctx, userID, mode == models.DeleteHard); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, "User not found")
			return err
		}
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
		return err
	}

	if revokeErr := svc.refreshTokens.RevokeForUser(ctx, userID); revokeErr != nil {
		svc.logger.WarnContext(ctx, "failed to revoke refresh tokens for deleted user",
			"error", revokeErr, "user_id", userID.String())
	}

	if svc.metrics != nil {
		svc.metrics.IncrementUsersDeleted(string(mode))
	}
	svc.emit(ctx, audit.ActionUserDeleted, "user", userID.String(), map[string]string{
		"mode": string(mode),
	})
	return nil
}
