package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"roster/internal/role/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// PostgresStore persists roles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.UUID(role.ID), role.Name, role.Description, role.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role name must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, roleID id.RoleID) (*models.Role, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM roles WHERE id = $1
	`, uuid.UUID(roleID))
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return role, nil
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.RoleID) ([]*models.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for i, roleID := range ids {
		placeholders = append(placeholders, "$"+strconv.Itoa(i+1))
		args = append(args, uuid.UUID(roleID))
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM roles
		WHERE id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	found := make(map[id.RoleID]*models.Role, len(ids))
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		found[role.ID] = role
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find roles rows: %w", err)
	}

	roles := make([]*models.Role, 0, len(ids))
	for _, roleID := range ids {
		role, ok := found[roleID]
		if !ok {
			return nil, fmt.Errorf("role %s not found: %w", roleID, sentinel.ErrNotFound)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM roles WHERE lower(name) = lower($1)
	`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return role, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM roles ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var roles []*models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*models.Role, error) {
	var role models.Role
	var roleID uuid.UUID
	if err := row.Scan(&roleID, &role.Name, &role.Description, &role.CreatedAt); err != nil {
		return nil, err
	}
	role.ID = id.RoleID(roleID)
	return &role, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
