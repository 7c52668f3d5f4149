package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohort/internal/consent/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, c *models.ParentalConsent) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO parental_consents
			(user_id, parent_email, parent_name, consent_given, consent_date, terms_accepted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		c.UserID, c.ParentEmail, c.ParentName, c.ConsentGiven, c.ConsentDate,
		c.TermsAccepted, c.CreatedAt, c.UpdatedAt,
	)
	if err := row.Scan(&c.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *Postgres) FindByUser(ctx context.Context, userID id.UserID) (*models.ParentalConsent, error) {
	var c models.ParentalConsent
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, parent_email, parent_name, consent_given, consent_date, terms_accepted, created_at, updated_at
		FROM parental_consents WHERE user_id = $1`, userID).
		Scan(&c.ID, &c.UserID, &c.ParentEmail, &c.ParentName, &c.ConsentGiven,
			&c.ConsentDate, &c.TermsAccepted, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan consent: %w", err)
	}
	return &c, nil
}

func (s *Postgres) Save(ctx context.Context, c *models.ParentalConsent) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE parental_consents
		SET parent_email = $2, parent_name = $3, consent_given = $4, consent_date = $5,
		    terms_accepted = $6, updated_at = $7
		WHERE user_id = $1`,
		c.UserID, c.ParentEmail, c.ParentName, c.ConsentGiven, c.ConsentDate,
		c.TermsAccepted, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
