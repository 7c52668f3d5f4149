package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohort/internal/organization/models"
	"cohort/internal/rules"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const orgColumns = `id, name, domain, description, settings, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, o *models.Organization) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO organizations (name, domain, description, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		o.Name, o.Domain, o.Description, o.Settings.Encode(), o.CreatedAt, o.UpdatedAt,
	)
	if err := row.Scan(&o.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, orgID)
	return scanOrganization(row)
}

func (s *Postgres) FindByDomain(ctx context.Context, domain string) (*models.Organization, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE lower(domain) = lower($1)`, domain)
	return scanOrganization(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var o models.Organization
	var doc []byte
	err := row.Scan(&o.ID, &o.Name, &o.Domain, &o.Description, &doc, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	o.Settings = rules.ParseOrganizationSettings(doc)
	return &o, nil
}
