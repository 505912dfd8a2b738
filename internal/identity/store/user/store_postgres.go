package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"roster/internal/identity/models"
	"roster/internal/identity/query"
	profilemodels "roster/internal/profile/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// PostgresStore persists identity records in PostgreSQL. Uniqueness of the
// username among non-deleted records is guaranteed by a partial unique
// index; the application-level precheck in the service is advisory only.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, full_name, branch_id, profile_id, is_active, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(u.ID), u.Username, u.PasswordHash, u.FullName,
		nullUUID(uuid.UUID(u.BranchID)), nullUUID(uuid.UUID(u.ProfileID)),
		u.IsActive, u.Deleted, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username already taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}

	if err := replaceRolesTx(ctx, tx, u.ID, u.RoleIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.findOne(ctx, `WHERE u.id = $1`, uuid.UUID(userID))
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByUsername resolves a non-deleted user, case-insensitive.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, `WHERE lower(u.username) = lower($1) AND NOT u.deleted`, username)
}

// FindByProfileID resolves the non-deleted identity linked to a profile.
func (s *PostgresStore) FindByProfileID(ctx context.Context, profileID id.ProfileID) (*models.User, error) {
	return s.findOne(ctx, `WHERE u.profile_id = $1 AND NOT u.deleted`, uuid.UUID(profileID))
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.full_name, u.branch_id, u.profile_id, u.is_active, u.deleted, u.created_at, u.updated_at
		FROM users u `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	roles, err := s.loadRoleIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.RoleIDs = roles
	return u, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update user tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET username = $2, password_hash = $3, full_name = $4, branch_id = $5,
		    profile_id = $6, is_active = $7, deleted = $8, updated_at = $9
		WHERE id = $1
	`,
		uuid.UUID(u.ID), u.Username, u.PasswordHash, u.FullName,
		nullUUID(uuid.UUID(u.BranchID)), nullUUID(uuid.UUID(u.ProfileID)),
		u.IsActive, u.Deleted, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username already taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}

	if err := replaceRolesTx(ctx, tx, u.ID, u.RoleIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update user: %w", err)
	}
	return nil
}

// Delete applies the consolidated deletion policy. Soft delete tombstones
// the row, which frees the username under the partial unique index; hard
// delete removes the row and its role references.
func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID, hard bool) error {
	var (
		res sql.Result
		err error
	)
	if hard {
		res, err = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE users SET deleted = TRUE, updated_at = now() WHERE id = $1 AND NOT deleted`,
			uuid.UUID(userID))
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// Count evaluates the top-level filter only, per the list contract.
func (s *PostgresStore) Count(ctx context.Context, f query.Filter) (int, error) {
	b := newSQLBuilder()
	where := b.topLevelWhere(f)
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u`+where, b.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// List pages through users matching the top-level filter. Requested
// relations are expanded via LEFT JOINs; the profile join carries the
// profile-scoped predicates in its ON clause, so a non-matching profile
// nulls out without shrinking the page. The projector drops those rows.
func (s *PostgresStore) List(ctx context.Context, q *query.ListQuery) ([]*models.Record, error) {
	b := newSQLBuilder()

	cols := []string{
		"u.id", "u.username", "u.password_hash", "u.full_name",
		"u.branch_id", "u.profile_id", "u.is_active", "u.deleted",
		"u.created_at", "u.updated_at",
	}
	joins := ""
	if q.Populate.Branch {
		cols = append(cols, "b.id", "b.name", "b.code")
		joins += " LEFT JOIN branches b ON b.id = u.branch_id"
	}
	if q.Populate.Profile {
		cols = append(cols,
			"p.id", "p.first_name", "p.last_name", "p.gender", "p.date_of_birth",
			"p.marital_status", "p.occupation", "p.address", "p.phone_number",
			"p.email", "p.identifications", "p.photo_bucket", "p.photo_key",
			"p.photo_name", "p.photo_content_type", "p.created_at", "p.updated_at",
		)
		joins += " LEFT JOIN profiles p ON p.id = u.profile_id" + b.profileJoinCond(q.Filter.Profile)
	}

	where := b.topLevelWhere(q.Filter)
	orderBy := orderByClause(q.Sort)
	limit := b.bind(q.Limit)
	offset := b.bind((q.Page - 1) * q.Limit)

	sqlText := "SELECT " + strings.Join(cols, ", ") +
		" FROM users u" + joins + where + orderBy +
		" LIMIT " + limit + " OFFSET " + offset

	rows, err := s.db.QueryContext(ctx, sqlText, b.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows, q.Populate)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users rows: %w", err)
	}

	if err := s.attachRoles(ctx, records, q.Populate.Role); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.Record{}
	}
	return records, nil
}

// attachRoles loads role references for the page in one query. Role IDs are
// always attached; names only when the role relation is expanded.
func (s *PostgresStore) attachRoles(ctx context.Context, records []*models.Record, expand bool) error {
	if len(records) == 0 {
		return nil
	}
	byID := make(map[id.UserID]*models.Record, len(records))
	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records))
	for i, rec := range records {
		byID[rec.User.ID] = rec
		placeholders = append(placeholders, "$"+strconv.Itoa(i+1))
		args = append(args, uuid.UUID(rec.User.ID))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ur.user_id, r.id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY r.name
	`, args...)
	if err != nil {
		return fmt.Errorf("load user roles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var userID, roleID uuid.UUID
		var name string
		if err := rows.Scan(&userID, &roleID, &name); err != nil {
			return fmt.Errorf("scan user role: %w", err)
		}
		rec := byID[id.UserID(userID)]
		if rec == nil {
			continue
		}
		rec.User.RoleIDs = append(rec.User.RoleIDs, id.RoleID(roleID))
		if expand {
			rec.Roles = append(rec.Roles, models.RoleRef{ID: id.RoleID(roleID), Name: name})
		}
	}
	return rows.Err()
}

func (s *PostgresStore) loadRoleIDs(ctx context.Context, userID id.UserID) ([]id.RoleID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role_id FROM user_roles WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("load role ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []id.RoleID
	for rows.Next() {
		var roleID uuid.UUID
		if err := rows.Scan(&roleID); err != nil {
			return nil, fmt.Errorf("scan role id: %w", err)
		}
		ids = append(ids, id.RoleID(roleID))
	}
	return ids, rows.Err()
}

func replaceRolesTx(ctx context.Context, tx *sql.Tx, userID id.UserID, roleIDs []id.RoleID) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
			uuid.UUID(userID), uuid.UUID(roleID)); err != nil {
			return fmt.Errorf("assign user role: %w", err)
		}
	}
	return nil
}

// sqlBuilder collects positional args while clauses are assembled.
type sqlBuilder struct {
	args []any
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{}
}

func (b *sqlBuilder) bind(arg any) string {
	b.args = append(b.args, arg)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *sqlBuilder) topLevelWhere(f query.Filter) string {
	conds := []string{}
	if !f.IncludeDeleted {
		conds = append(conds, "NOT u.deleted")
	}
	if f.BranchID != nil {
		conds = append(conds, "u.branch_id = "+b.bind(uuid.UUID(*f.BranchID)))
	}
	if f.CreatedFrom != nil {
		conds = append(conds, "u.created_at >= "+b.bind(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		conds = append(conds, "u.created_at <= "+b.bind(*f.CreatedTo))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// profileJoinCond compiles the profile-scoped predicates into the join's ON
// clause: exact fields ANDed, the disjunction list ORed as one group.
func (b *sqlBuilder) profileJoinCond(f query.ProfileFilter) string {
	if f.Empty() {
		return ""
	}
	conds := []string{}
	if f.Gender != "" {
		conds = append(conds, "p.gender = "+b.bind(f.Gender))
	}
	if f.MaritalStatus != "" {
		conds = append(conds, "p.marital_status = "+b.bind(f.MaritalStatus))
	}
	if f.CardType != "" {
		conds = append(conds, b.identificationExact("cardType", f.CardType))
	}
	if f.CardCode != "" {
		conds = append(conds, b.identificationExact("cardCode", f.CardCode))
	}
	if len(f.AnyOf) > 0 {
		ors := make([]string, 0, len(f.AnyOf))
		for _, clause := range f.AnyOf {
			ors = append(ors, b.matchClauseSQL(clause))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	return " AND " + strings.Join(conds, " AND ")
}

func (b *sqlBuilder) identificationExact(key, value string) string {
	return "EXISTS (SELECT 1 FROM jsonb_array_elements(p.identifications) AS ident" +
		" WHERE lower(ident->>'" + key + "') = lower(" + b.bind(value) + "))"
}

func (b *sqlBuilder) matchClauseSQL(c query.MatchClause) string {
	pattern := b.bind("%" + c.Term + "%")
	switch c.Field {
	case query.MatchFirstName:
		return "p.first_name ILIKE " + pattern
	case query.MatchLastName:
		return "p.last_name ILIKE " + pattern
	case query.MatchPhoneNumber:
		return "p.phone_number ILIKE " + pattern
	case query.MatchEmail:
		return "p.email ILIKE " + pattern
	case query.MatchCardType:
		return "EXISTS (SELECT 1 FROM jsonb_array_elements(p.identifications) AS ident" +
			" WHERE ident->>'cardType' ILIKE " + pattern + ")"
	case query.MatchCardCode:
		return "EXISTS (SELECT 1 FROM jsonb_array_elements(p.identifications) AS ident" +
			" WHERE ident->>'cardCode' ILIKE " + pattern + ")"
	}
	return "FALSE"
}

// Sort keys come from the compile-time allow-list, never raw caller input.
var sortColumns = map[query.SortKey]string{
	query.SortUsername:  "u.username",
	query.SortFullName:  "u.full_name",
	query.SortIsActive:  "u.is_active",
	query.SortCreatedAt: "u.created_at",
}

func orderByClause(fields []query.SortField) string {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := sortColumns[f.Key]
		if !ok {
			continue
		}
		dir := " ASC"
		if f.Desc {
			dir = " DESC"
		}
		parts = append(parts, col+dir)
	}
	// Deterministic pagination tiebreak.
	parts = append(parts, "u.id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var userID uuid.UUID
	var branchID, profileID uuid.NullUUID
	if err := row.Scan(
		&userID, &u.Username, &u.PasswordHash, &u.FullName,
		&branchID, &profileID, &u.IsActive, &u.Deleted,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	if branchID.Valid {
		u.BranchID = id.BranchID(branchID.UUID)
	}
	if profileID.Valid {
		u.ProfileID = id.ProfileID(profileID.UUID)
	}
	return &u, nil
}

func scanRecord(row rowScanner, populate query.Populate) (*models.Record, error) {
	var (
		u         models.User
		userID    uuid.UUID
		branchID  uuid.NullUUID
		profileID uuid.NullUUID
	)
	dest := []any{
		&userID, &u.Username, &u.PasswordHash, &u.FullName,
		&branchID, &profileID, &u.IsActive, &u.Deleted,
		&u.CreatedAt, &u.UpdatedAt,
	}

	var (
		bID           uuid.NullUUID
		bName, bCode  sql.NullString
		pID           uuid.NullUUID
		pFirst, pLast sql.NullString
		pGender       sql.NullString
		pDOB          sql.NullTime
		pMarital      sql.NullString
		pOccupation   sql.NullString
		pAddress      sql.NullString
		pPhone        sql.NullString
		pEmail        sql.NullString
		pIdents       []byte
		pPhotoBucket  sql.NullString
		pPhotoKey     sql.NullString
		pPhotoName    sql.NullString
		pPhotoCT      sql.NullString
		pCreated      sql.NullTime
		pUpdated      sql.NullTime
	)
	if populate.Branch {
		dest = append(dest, &bID, &bName, &bCode)
	}
	if populate.Profile {
		dest = append(dest,
			&pID, &pFirst, &pLast, &pGender, &pDOB, &pMarital, &pOccupation,
			&pAddress, &pPhone, &pEmail, &pIdents, &pPhotoBucket, &pPhotoKey,
			&pPhotoName, &pPhotoCT, &pCreated, &pUpdated,
		)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	u.ID = id.UserID(userID)
	if branchID.Valid {
		u.BranchID = id.BranchID(branchID.UUID)
	}
	if profileID.Valid {
		u.ProfileID = id.ProfileID(profileID.UUID)
	}

	rec := &models.Record{User: u}
	if populate.Branch && bID.Valid {
		rec.Branch = &models.BranchRef{
			ID:   id.BranchID(bID.UUID),
			Name: bName.String,
			Code: bCode.String,
		}
	}
	if populate.Profile && pID.Valid {
		profile := &profilemodels.Profile{
			ID:               id.ProfileID(pID.UUID),
			FirstName:        pFirst.String,
			LastName:         pLast.String,
			Gender:           pGender.String,
			MaritalStatus:    pMarital.String,
			Occupation:       pOccupation.String,
			Address:          pAddress.String,
			PhoneNumber:      pPhone.String,
			Email:            pEmail.String,
			PhotoBucket:      pPhotoBucket.String,
			PhotoKey:         pPhotoKey.String,
			PhotoName:        pPhotoName.String,
			PhotoContentType: pPhotoCT.String,
		}
		if pDOB.Valid {
			dob := pDOB.Time
			profile.DateOfBirth = &dob
		}
		if pCreated.Valid {
			profile.CreatedAt = pCreated.Time
		}
		if pUpdated.Valid {
			profile.UpdatedAt = pUpdated.Time
		}
		if len(pIdents) > 0 {
			if err := json.Unmarshal(pIdents, &profile.Identifications); err != nil {
				return nil, fmt.Errorf("decode identifications: %w", err)
			}
		}
		rec.Profile = profile
	}
	return rec, nil
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
