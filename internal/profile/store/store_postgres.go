package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"roster/internal/profile/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// PostgresStore persists profiles in PostgreSQL. Email uniqueness is
// enforced by a partial unique index that skips empty emails.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var sortColumns = map[SortKey]string{
	SortCreatedAt: "created_at",
	SortFirstName: "lower(first_name)",
	SortLastName:  "lower(last_name)",
	SortEmail:     "lower(email)",
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	idents, err := json.Marshal(p.Identifications)
	if err != nil {
		return fmt.Errorf("marshal identifications: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (
			id, first_name, last_name, gender, date_of_birth, marital_status,
			occupation, address, phone_number, email, identifications,
			photo_bucket, photo_key, photo_name, photo_content_type,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, uuid.UUID(p.ID), p.FirstName, p.LastName, p.Gender, p.DateOfBirth,
		p.MaritalStatus, p.Occupation, p.Address, p.PhoneNumber, p.Email,
		idents, p.PhotoBucket, p.PhotoKey, p.PhotoName, p.PhotoContentType,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile email must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, gender, date_of_birth, marital_status,
			occupation, address, phone_number, email, identifications,
			photo_bucket, photo_key, photo_name, photo_content_type,
			created_at, updated_at
		FROM profiles WHERE id = $1
	`, uuid.UUID(profileID))
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	idents, err := json.Marshal(p.Identifications)
	if err != nil {
		return fmt.Errorf("marshal identifications: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET first_name = $2, last_name = $3, gender = $4, date_of_birth = $5,
			marital_status = $6, occupation = $7, address = $8, phone_number = $9,
			email = $10, identifications = $11, photo_bucket = $12, photo_key = $13,
			photo_name = $14, photo_content_type = $15, updated_at = $16
		WHERE id = $1
	`, uuid.UUID(p.ID), p.FirstName, p.LastName, p.Gender, p.DateOfBirth,
		p.MaritalStatus, p.Occupation, p.Address, p.PhoneNumber, p.Email,
		idents, p.PhotoBucket, p.PhotoKey, p.PhotoName, p.PhotoContentType, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile email must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update profile: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, params ListParams) ([]*models.Profile, error) {
	column, ok := sortColumns[params.Sort]
	if !ok {
		column = sortColumns[SortCreatedAt]
	}
	direction := "ASC"
	if params.Desc {
		direction = "DESC"
	}
	offset := (params.Page - 1) * params.Limit

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, first_name, last_name, gender, date_of_birth, marital_status,
			occupation, address, phone_number, email, identifications,
			photo_bucket, photo_key, photo_name, photo_content_type,
			created_at, updated_at
		FROM profiles
		ORDER BY %s %s, id ASC
		LIMIT $1 OFFSET $2
	`, column, direction), params.Limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	profiles := []*models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM profiles`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var profileID uuid.UUID
	var dob sql.NullTime
	var idents []byte
	if err := row.Scan(&profileID, &p.FirstName, &p.LastName, &p.Gender, &dob,
		&p.MaritalStatus, &p.Occupation, &p.Address, &p.PhoneNumber, &p.Email, &idents,
		&p.PhotoBucket, &p.PhotoKey, &p.PhotoName, &p.PhotoContentType,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = id.ProfileID(profileID)
	if dob.Valid {
		p.DateOfBirth = &dob.Time
	}
	if len(idents) > 0 {
		if err := json.Unmarshal(idents, &p.Identifications); err != nil {
			return nil, fmt.Errorf("unmarshal identifications: %w", err)
		}
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
