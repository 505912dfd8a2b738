package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"roster/internal/branch/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// PostgresStore persists branches in PostgreSQL. Name uniqueness is
// enforced by a unique index on lower(name).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Branch) error {
	if b == nil {
		return fmt.Errorf("branch is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (id, name, code, address, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(b.ID), b.Name, b.Code, b.Address, b.Phone, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("branch name must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, branchID id.BranchID) (*models.Branch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, code, address, phone, created_at, updated_at
		FROM branches WHERE id = $1
	`, uuid.UUID(branchID))
	b, err := scanBranch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("branch not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find branch: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) Update(ctx context.Context, b *models.Branch) error {
	if b == nil {
		return fmt.Errorf("branch is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE branches
		SET name = $2, code = $3, address = $4, phone = $5, updated_at = $6
		WHERE id = $1
	`, uuid.UUID(b.ID), b.Name, b.Code, b.Address, b.Phone, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("branch name must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update branch: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update branch rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("branch not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, branchID id.BranchID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM branches WHERE id = $1`, uuid.UUID(branchID))
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete branch rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("branch not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, code, address, phone, created_at, updated_at
		FROM branches ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var branches []*models.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(row rowScanner) (*models.Branch, error) {
	var b models.Branch
	var branchID uuid.UUID
	if err := row.Scan(&branchID, &b.Name, &b.Code, &b.Address, &b.Phone,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ID = id.BranchID(branchID)
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
