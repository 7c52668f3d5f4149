// Package service regenerates and serves per-organization analytics
// snapshots. Snapshots are reporting artifacts: rebuilt wholesale from the
// membership records on demand, cached briefly, and never consulted by
// access decisions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"cohort/internal/analytics/models"
	orgmodels "cohort/internal/organization/models"
	"cohort/internal/platform/metrics"
	usermodels "cohort/internal/user/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

// ActiveWindow bounds how recently a member must have been touched to count
// as active.
const ActiveWindow = 30 * 24 * time.Hour

// refreshConcurrency caps parallel per-organization rebuilds in RefreshAll.
const refreshConcurrency = 4

type UserStore interface {
	ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*usermodels.User, error)
	ListRolesByOrganization(ctx context.Context, orgID id.OrganizationID) ([]usermodels.RoleAssignment, error)
}

type OrganizationStore interface {
	FindByID(ctx context.Context, orgID id.OrganizationID) (*orgmodels.Organization, error)
	List(ctx context.Context) ([]*orgmodels.Organization, error)
}

type SnapshotStore interface {
	Append(ctx context.Context, snap *models.Snapshot) error
	Latest(ctx context.Context, orgID id.OrganizationID) (*models.Snapshot, error)
	Previous(ctx context.Context, orgID id.OrganizationID) (*models.Snapshot, error)
}

// Cache is the optional read-through snapshot cache. A nil Cache disables
// caching entirely.
type Cache interface {
	Get(ctx context.Context, orgID id.OrganizationID) (*models.Snapshot, error)
	Set(ctx context.Context, snap *models.Snapshot) error
	Invalidate(ctx context.Context, orgID id.OrganizationID) error
}

// Report is a snapshot with its derived reporting figures resolved.
type Report struct {
	Snapshot      *models.Snapshot
	ActivityRate  float64
	GrowthRate    float64
	TopAgeBracket string
	DominantRole  string
}

type Service struct {
	users     UserStore
	orgs      OrganizationStore
	snapshots SnapshotStore
	cache     Cache
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

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

func New(users UserStore, orgs OrganizationStore, snapshots SnapshotStore, opts ...Option) *Service {
	s := &Service{
		users:     users,
		orgs:      orgs,
		snapshots: snapshots,
		logger:    slog.Default(),
		tracer:    otel.Tracer("cohort/analytics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the latest report for an organization, reading through the
// cache. Cache failures degrade to store reads.
func (s *Service) Get(ctx context.Context, orgID id.OrganizationID) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.Get",
		trace.WithAttributes(attribute.Int64("organization.id", int64(orgID))))
	defer span.End()

	if _, err := s.loadOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	snap, err := s.cachedLatest(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, snap)
}

// Refresh rebuilds the organization's snapshot from the membership records,
// appends it to the history, and refreshes the cache.
func (s *Service) Refresh(ctx context.Context, orgID id.OrganizationID) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.Refresh",
		trace.WithAttributes(attribute.Int64("organization.id", int64(orgID))))
	defer span.End()

	if _, err := s.loadOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	snap, err := s.build(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.snapshots.Append(ctx, snap); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append snapshot")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache update failed", "organization_id", orgID, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.AnalyticsRefreshes.Inc()
	}
	s.logger.InfoContext(ctx, "analytics refreshed",
		"organization_id", orgID,
		"total_members", snap.TotalMembers,
		"request_id", requestcontext.RequestID(ctx),
	)
	return s.report(ctx, snap)
}

// RefreshAll rebuilds every organization's snapshot with bounded
// concurrency. The first failure cancels the remaining rebuilds.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.RefreshAll")
	defer span.End()

	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, org := range orgs {
		g.Go(func() error {
			_, err := s.Refresh(ctx, org.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(orgs), nil
}

func (s *Service) build(ctx context.Context, orgID id.OrganizationID) (*models.Snapshot, error) {
	now := requestcontext.Now(ctx)

	members, err := s.users.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	assignments, err := s.users.ListRolesByOrganization(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list role assignments")
	}

	ages := map[string]int{}
	active := 0
	for _, m := range members {
		if age, ok := m.AgeAt(now); ok {
			ages[models.BracketForAge(age)]++
		}
		if now.Sub(m.UpdatedAt) <= ActiveWindow {
			active++
		}
	}
	roles := map[string]int{}
	for _, a := range assignments {
		roles[string(a.Role)]++
	}

	return &models.Snapshot{
		OrganizationID:   orgID,
		TotalMembers:     len(members),
		ActiveMembers:    active,
		AgeDistribution:  ages,
		RoleDistribution: roles,
		LastUpdated:      now,
	}, nil
}

func (s *Service) cachedLatest(ctx context.Context, orgID id.OrganizationID) (*models.Snapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.Get(ctx, orgID)
		if err != nil {
			s.logger.WarnContext(ctx, "snapshot cache read failed", "organization_id", orgID, "error", err)
		} else if snap != nil {
			return snap, nil
		}
	}
	snap, err := s.snapshots.Latest(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no analytics snapshot for organization")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load snapshot")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache update failed", "organization_id", orgID, "error", err)
		}
	}
	return snap, nil
}

func (s *Service) report(ctx context.Context, snap *models.Snapshot) (*Report, error) {
	previous, err := s.snapshots.Previous(ctx, snap.OrganizationID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load previous snapshot")
	}
	return &Report{
		Snapshot:      snap,
		ActivityRate:  snap.ActivityRate(),
		GrowthRate:    snap.GrowthRate(previous),
		TopAgeBracket: snap.TopAgeBracket(),
		DominantRole:  snap.DominantRole(),
	}, nil
}

func (s *Service) loadOrganization(ctx context.Context, orgID id.OrganizationID) (*orgmodels.Organization, error) {
	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return org, nil
}
