package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohort/internal/user/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const userColumns = `id, email, first_name, last_name, date_of_birth, COALESCE(organization_id, 0), created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, u *models.User) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, first_name, last_name, date_of_birth, organization_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7)
		RETURNING id`,
		u.Email, u.FirstName, u.LastName, u.DateOfBirth, int64(u.OrganizationID), u.CreatedAt, u.UpdatedAt,
	)
	if err := row.Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *Postgres) ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE organization_id = $1 ORDER BY id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Postgres) SetOrganization(ctx context.Context, userID id.UserID, orgID id.OrganizationID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET organization_id = NULLIF($2, 0), updated_at = now() WHERE id = $1`,
		userID, int64(orgID))
	if err != nil {
		return fmt.Errorf("set organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) GrantRole(ctx context.Context, a models.RoleAssignment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO role_assignments (user_id, organization_id, role, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, organization_id, role) DO NOTHING`,
		a.UserID, a.OrganizationID, string(a.Role), a.GrantedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

func (s *Postgres) ListRoles(ctx context.Context, userID id.UserID) ([]models.RoleAssignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, organization_id, role, granted_at
		FROM role_assignments WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (s *Postgres) ListRolesByOrganization(ctx context.Context, orgID id.OrganizationID) ([]models.RoleAssignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, organization_id, role, granted_at
		FROM role_assignments WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list roles by organization: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func collectAssignments(rows pgx.Rows) ([]models.RoleAssignment, error) {
	var out []models.RoleAssignment
	for rows.Next() {
		var a models.RoleAssignment
		var role string
		if err := rows.Scan(&a.UserID, &a.OrganizationID, &role, &a.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan role assignment: %w", err)
		}
		a.Role = models.Role(role)
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.DateOfBirth,
		&u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
