package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohort/internal/rules"
	"cohort/internal/space/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const spaceColumns = `id, name, description, organization_id, age_group_id, is_active, access_rules, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, sp *models.Space) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO participation_spaces
			(name, description, organization_id, age_group_id, is_active, access_rules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		sp.Name, sp.Description, sp.OrganizationID, sp.AgeGroupID, sp.IsActive,
		sp.AccessRules.Encode(), sp.CreatedAt, sp.UpdatedAt,
	)
	if err := row.Scan(&sp.ID); err != nil {
		return fmt.Errorf("insert space: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, spaceID id.SpaceID) (*models.Space, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+spaceColumns+` FROM participation_spaces WHERE id = $1`, spaceID)
	return scanSpace(row)
}

func (s *Postgres) ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*models.Space, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+spaceColumns+` FROM participation_spaces WHERE organization_id = $1 ORDER BY id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var out []*models.Space
	for rows.Next() {
		sp, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, sp *models.Space) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE participation_spaces
		SET name = $2, description = $3, is_active = $4, access_rules = $5, updated_at = $6
		WHERE id = $1`,
		sp.ID, sp.Name, sp.Description, sp.IsActive, sp.AccessRules.Encode(), sp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ParticipantCount(ctx context.Context, spaceID id.SpaceID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM space_participants WHERE space_id = $1`, spaceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpace(row rowScanner) (*models.Space, error) {
	var sp models.Space
	var doc []byte
	err := row.Scan(&sp.ID, &sp.Name, &sp.Description, &sp.OrganizationID, &sp.AgeGroupID,
		&sp.IsActive, &doc, &sp.CreatedAt, &sp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan space: %w", err)
	}
	sp.AccessRules = rules.ParseSpaceAccessRules(doc)
	return &sp, nil
}
