package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohort/internal/analytics/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Append(ctx context.Context, snap *models.Snapshot) error {
	ageDoc, err := json.Marshal(snap.AgeDistribution)
	if err != nil {
		return fmt.Errorf("marshal age distribution: %w", err)
	}
	roleDoc, err := json.Marshal(snap.RoleDistribution)
	if err != nil {
		return fmt.Errorf("marshal role distribution: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO organization_analytics
			(organization_id, total_members, active_members, age_distribution, role_distribution, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		snap.OrganizationID, snap.TotalMembers, snap.ActiveMembers, ageDoc, roleDoc, snap.LastUpdated,
	)
	if err := row.Scan(&snap.ID); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *Postgres) Latest(ctx context.Context, orgID id.OrganizationID) (*models.Snapshot, error) {
	return s.nth(ctx, orgID, 0)
}

func (s *Postgres) Previous(ctx context.Context, orgID id.OrganizationID) (*models.Snapshot, error) {
	return s.nth(ctx, orgID, 1)
}

func (s *Postgres) nth(ctx context.Context, orgID id.OrganizationID, offset int) (*models.Snapshot, error) {
	var snap models.Snapshot
	var ageDoc, roleDoc []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, total_members, active_members, age_distribution, role_distribution, last_updated
		FROM organization_analytics
		WHERE organization_id = $1
		ORDER BY last_updated DESC, id DESC
		OFFSET $2 LIMIT 1`, orgID, offset).
		Scan(&snap.ID, &snap.OrganizationID, &snap.TotalMembers, &snap.ActiveMembers,
			&ageDoc, &roleDoc, &snap.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	// Distribution documents are reporting artifacts; malformed ones resolve
	// to empty maps like every other rules document in the system.
	if json.Unmarshal(ageDoc, &snap.AgeDistribution) != nil {
		snap.AgeDistribution = map[string]int{}
	}
	if json.Unmarshal(roleDoc, &snap.RoleDistribution) != nil {
		snap.RoleDistribution = map[string]int{}
	}
	return &snap, nil
}
