package refreshtoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"roster/internal/identity/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// PostgresStore persists refresh tokens in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, token *models.RefreshToken) error {
	if token == nil {
		return fmt.Errorf("refresh token is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, device_name, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		token.ID, uuid.UUID(token.UserID), token.Token, token.DeviceName,
		token.ExpiresAt, token.Used, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// Consume atomically marks the token used and returns its record. The
// conditional UPDATE is the rotation guarantor under concurrent replays:
// only one caller wins the used flag.
func (s *PostgresStore) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE refresh_tokens
		SET used = TRUE
		WHERE token = $1 AND NOT used AND expires_at > now()
		RETURNING id, user_id, token, device_name, expires_at, used, created_at
	`, token)

	rec, err := scanToken(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	// Distinguish replay and expiry from plain absence for the caller.
	row = s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, device_name, expires_at, used, created_at
		FROM refresh_tokens WHERE token = $1
	`, token)
	rec, err = scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("inspect refresh token: %w", err)
	}
	if rec.Used {
		return nil, ErrTokenUsed
	}
	return nil, ErrTokenExpired
}

// RevokeForUser marks all of a user's outstanding tokens used.
func (s *PostgresStore) RevokeForUser(ctx context.Context, userID id.UserID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET used = TRUE WHERE user_id = $1 AND NOT used`,
		uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpired drops tokens past their expiry. Returns the number removed.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired rows: %w", err)
	}
	return int(rows), nil
}

func scanToken(row *sql.Row) (*models.RefreshToken, error) {
	var rec models.RefreshToken
	var userID uuid.UUID
	if err := row.Scan(&rec.ID, &userID, &rec.Token, &rec.DeviceName,
		&rec.ExpiresAt, &rec.Used, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.UserID = id.UserID(userID)
	return &rec, nil
}
