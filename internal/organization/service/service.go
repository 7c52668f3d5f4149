// Package service orchestrates tenant provisioning. Creating an organization
// also provisions one default participation space per age group and an
// initial empty analytics snapshot, so a fresh tenant is immediately usable.
package service

import (
	"context"
	"errors"
	"log/slog"

	agegroupmodels "cohort/internal/agegroup/models"
	analyticsmodels "cohort/internal/analytics/models"
	"cohort/internal/organization/models"
	"cohort/internal/platform/metrics"
	"cohort/internal/rules"
	spacemodels "cohort/internal/space/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
}

type AgeGroupStore interface {
	List(ctx context.Context) ([]*agegroupmodels.AgeGroup, error)
}

type SpaceStore interface {
	Create(ctx context.Context, sp *spacemodels.Space) error
	ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*spacemodels.Space, error)
}

type SnapshotStore interface {
	Append(ctx context.Context, snap *analyticsmodels.Snapshot) error
}

// CreateRequest carries the provisioning input. A nil Settings document
// applies the platform defaults.
type CreateRequest struct {
	Name        string
	Domain      string
	Description string
	Settings    *rules.OrganizationSettings
}

type Service struct {
	orgs      Store
	ageGroups AgeGroupStore
	spaces    SpaceStore
	snapshots SnapshotStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(orgs Store, ageGroups AgeGroupStore, spaces SpaceStore, snapshots SnapshotStore, opts ...Option) *Service {
	s := &Service{
		orgs:      orgs,
		ageGroups: ageGroups,
		spaces:    spaces,
		snapshots: snapshots,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create provisions a tenant: the organization record, one default space per
// age group (copying the group's rule defaults), and an empty analytics
// snapshot as the reporting baseline.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Organization, error) {
	now := requestcontext.Now(ctx)

	org, err := models.New(req.Name, req.Domain, req.Description, req.Settings, now)
	if err != nil {
		return nil, err
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "domain is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}

	groups, err := s.ageGroups.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list age groups")
	}
	for _, g := range groups {
		sp := spacemodels.DefaultFor(org.ID, g, now)
		if err := s.spaces.Create(ctx, sp); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create default space")
		}
	}

	baseline := &analyticsmodels.Snapshot{
		OrganizationID:   org.ID,
		AgeDistribution:  map[string]int{},
		RoleDistribution: map[string]int{},
		LastUpdated:      now,
	}
	if err := s.snapshots.Append(ctx, baseline); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record baseline snapshot")
	}

	if s.metrics != nil {
		s.metrics.OrganizationsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "organization created",
		"organization_id", org.ID,
		"domain", org.Domain,
		"default_spaces", len(groups),
		"request_id", requestcontext.RequestID(ctx),
	)
	return org, nil
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error) {
	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return org, nil
}

// List returns all tenants.
func (s *Service) List(ctx context.Context) ([]*models.Organization, error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}
	return orgs, nil
}

// ListSpaces returns the organization's participation spaces.
func (s *Service) ListSpaces(ctx context.Context, orgID id.OrganizationID) ([]*spacemodels.Space, error) {
	if _, err := s.Get(ctx, orgID); err != nil {
		return nil, err
	}
	spaces, err := s.spaces.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list spaces")
	}
	return spaces, nil
}
