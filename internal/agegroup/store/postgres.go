package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohort/internal/agegroup/models"
	"cohort/internal/rules"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// Postgres persists age groups. Rule documents are stored as JSONB and parsed
// fail-open on read.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, g *models.AgeGroup) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO age_groups (name, min_age, max_age, participation_rules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		g.Name, g.MinAge, g.MaxAge, g.Rules.Encode(), g.CreatedAt, g.UpdatedAt,
	)
	if err := row.Scan(&g.ID); err != nil {
		return fmt.Errorf("insert age group: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, groupID id.AgeGroupID) (*models.AgeGroup, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, min_age, max_age, participation_rules, created_at, updated_at
		FROM age_groups WHERE id = $1`, groupID)
	return scanAgeGroup(row)
}

func (s *Postgres) FindForAge(ctx context.Context, age int) (*models.AgeGroup, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, min_age, max_age, participation_rules, created_at, updated_at
		FROM age_groups
		WHERE min_age <= $1 AND max_age >= $1
		ORDER BY min_age
		LIMIT 1`, age)
	return scanAgeGroup(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.AgeGroup, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, min_age, max_age, participation_rules, created_at, updated_at
		FROM age_groups ORDER BY min_age, id`)
	if err != nil {
		return nil, fmt.Errorf("list age groups: %w", err)
	}
	defer rows.Close()

	var out []*models.AgeGroup
	for rows.Next() {
		g, err := scanAgeGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgeGroup(row rowScanner) (*models.AgeGroup, error) {
	var g models.AgeGroup
	var doc []byte
	err := row.Scan(&g.ID, &g.Name, &g.MinAge, &g.MaxAge, &doc, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan age group: %w", err)
	}
	g.Rules = rules.ParseAgeGroupRules(doc)
	return &g, nil
}
