// Package service serves the platform-wide age-group catalog.
package service

import (
	"context"
	"errors"

	"cohort/internal/agegroup/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
)

type Store interface {
	FindByID(ctx context.Context, groupID id.AgeGroupID) (*models.AgeGroup, error)
	List(ctx context.Context) ([]*models.AgeGroup, error)
}

type Service struct {
	groups Store
}

func New(groups Store) *Service {
	return &Service{groups: groups}
}

// List returns every bracket ordered by minimum age.
func (s *Service) List(ctx context.Context) ([]*models.AgeGroup, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list age groups")
	}
	return groups, nil
}

func (s *Service) Get(ctx context.Context, groupID id.AgeGroupID) (*models.AgeGroup, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "age group not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load age group")
	}
	return g, nil
}
