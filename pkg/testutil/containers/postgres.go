//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"roster/migrations"
	id "roster/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("roster_test"),
		postgres.WithUsername("roster"),
		postgres.WithPassword("roster_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}

	if err := pc.runMigrations(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Note: We don't register t.Cleanup here because the container is managed
	// by the singleton Manager and shared across test suites. Ryuk (testcontainers'
	// cleanup sidecar) handles container cleanup when the test process exits.

	return pc
}

// runMigrations executes all *.sql migrations from the embedded migrations.FS.
func (p *PostgresContainer) runMigrations(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		if _, err := p.DB.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}

	return nil
}

// TruncateTables clears all data from the specified tables.
// Use between tests to ensure isolation without restarting the container.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		if err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateModuleTables truncates all module tables for full integration test isolation.
// Tables are truncated with CASCADE to handle foreign key dependencies.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	// Order matters due to FK constraints; CASCADE handles dependencies
	tables := []string{
		"refresh_tokens",
		"user_roles",
		"users",
		"profiles",
		"branches",
		"roles",
	}
	return p.TruncateTables(ctx, tables...)
}

// Exec runs a SQL statement and returns the result.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// Query runs a SQL query and returns rows.
func (p *PostgresContainer) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.DB.QueryContext(ctx, query, args...)
}

// QueryRow runs a SQL query expected to return a single row.
func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTestRole inserts a role and returns its ID.
// Fails the test if insertion fails.
func (p *PostgresContainer) CreateTestRole(ctx context.Context, t testing.TB, name string) id.RoleID {
	t.Helper()
	roleID := id.RoleID(uuid.New())
	_, err := p.Exec(ctx, `
		INSERT INTO roles (id, name, description, created_at)
		VALUES ($1, $2, '', NOW())
	`, uuid.UUID(roleID), name)
	if err != nil {
		t.Fatalf("CreateTestRole: %v", err)
	}
	return roleID
}

// CreateTestBranch inserts a branch and returns its ID.
// Fails the test if insertion fails.
func (p *PostgresContainer) CreateTestBranch(ctx context.Context, t testing.TB, name string) id.BranchID {
	t.Helper()
	branchID := id.BranchID(uuid.New())
	_, err := p.Exec(ctx, `
		INSERT INTO branches (id, name, code, created_at, updated_at)
		VALUES ($1, $2, 'BR-01', NOW(), NOW())
	`, uuid.UUID(branchID), name)
	if err != nil {
		t.Fatalf("CreateTestBranch: %v", err)
	}
	return branchID
}

// CreateTestProfile inserts a profile and returns its ID.
// Fails the test if insertion fails.
func (p *PostgresContainer) CreateTestProfile(ctx context.Context, t testing.TB, email string) id.ProfileID {
	t.Helper()
	profileID := id.ProfileID(uuid.New())
	_, err := p.Exec(ctx, `
		INSERT INTO profiles (id, first_name, last_name, email, created_at, updated_at)
		VALUES ($1, 'Test', 'Person', $2, NOW(), NOW())
	`, uuid.UUID(profileID), email)
	if err != nil {
		t.Fatalf("CreateTestProfile: %v", err)
	}
	return profileID
}

// CreateTestUser inserts a user with the given role attached and returns its ID.
// Fails the test if insertion fails.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, username string, roleID id.RoleID) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	_, err := p.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, full_name, is_active, created_at, updated_at)
		VALUES ($1, $2, '$2a$10$test.hash.not.a.real.one', 'Test User', TRUE, NOW(), NOW())
	`, uuid.UUID(userID), username)
	if err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	_, err = p.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
	`, uuid.UUID(userID), uuid.UUID(roleID))
	if err != nil {
		t.Fatalf("CreateTestUser role attach: %v", err)
	}
	return userID
}
