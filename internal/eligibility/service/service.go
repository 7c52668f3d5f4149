// Package service loads the consistent snapshot an eligibility evaluation
// runs against and invokes the pure evaluator. All storage access happens
// here; the evaluator itself stays total and side-effect free.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	agegroupmodels "cohort/internal/agegroup/models"
	consentmodels "cohort/internal/consent/models"
	"cohort/internal/eligibility"
	"cohort/internal/platform/metrics"
	spacemodels "cohort/internal/space/models"
	usermodels "cohort/internal/user/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*usermodels.User, error)
	ListRoles(ctx context.Context, userID id.UserID) ([]usermodels.RoleAssignment, error)
}

type SpaceStore interface {
	FindByID(ctx context.Context, spaceID id.SpaceID) (*spacemodels.Space, error)
	ParticipantCount(ctx context.Context, spaceID id.SpaceID) (int, error)
}

type AgeGroupStore interface {
	FindByID(ctx context.Context, groupID id.AgeGroupID) (*agegroupmodels.AgeGroup, error)
	FindForAge(ctx context.Context, age int) (*agegroupmodels.AgeGroup, error)
}

type ConsentStore interface {
	FindByUser(ctx context.Context, userID id.UserID) (*consentmodels.ParentalConsent, error)
}

type Service struct {
	users     UserStore
	spaces    SpaceStore
	ageGroups AgeGroupStore
	consents  ConsentStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

func New(users UserStore, spaces SpaceStore, ageGroups AgeGroupStore, consents ConsentStore, opts ...Option) *Service {
	s := &Service{
		users:     users,
		spaces:    spaces,
		ageGroups: ageGroups,
		consents:  consents,
		logger:    slog.Default(),
		tracer:    otel.Tracer("cohort/eligibility"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckSpaceAccess evaluates whether the user may enter the space right now.
// The verdict is advisory: state can change between this read and any
// subsequent write, which must re-check.
func (s *Service) CheckSpaceAccess(ctx context.Context, userID id.UserID, spaceID id.SpaceID) (eligibility.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.CheckSpaceAccess",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.Int64("space.id", int64(spaceID)),
		))
	defer span.End()

	req, err := s.loadAccessRequest(ctx, userID, spaceID)
	if err != nil {
		return eligibility.Decision{}, err
	}
	decision := eligibility.CanAccessSpace(req)
	s.record(ctx, span, decision, "space_access", userID, spaceID)
	return decision, nil
}

// CheckActivity evaluates whether the user may perform the named activity in
// the space. Activity permission implies space access.
func (s *Service) CheckActivity(ctx context.Context, userID id.UserID, spaceID id.SpaceID, activity string) (eligibility.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.CheckActivity",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.Int64("space.id", int64(spaceID)),
			attribute.String("activity", activity),
		))
	defer span.End()

	if activity == "" {
		return eligibility.Decision{}, dErrors.New(dErrors.CodeBadRequest, "activity name is required")
	}
	req, err := s.loadAccessRequest(ctx, userID, spaceID)
	if err != nil {
		return eligibility.Decision{}, err
	}
	decision := eligibility.CanPerformActivity(req, activity)
	s.record(ctx, span, decision, "activity", userID, spaceID)
	return decision, nil
}

func (s *Service) loadAccessRequest(ctx context.Context, userID id.UserID, spaceID id.SpaceID) (eligibility.AccessRequest, error) {
	now := requestcontext.Now(ctx)

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return eligibility.AccessRequest{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return eligibility.AccessRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return eligibility.AccessRequest{}, dErrors.New(dErrors.CodeNotFound, "space not found")
		}
		return eligibility.AccessRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load space")
	}
	spaceGroup, err := s.ageGroups.FindByID(ctx, sp.AgeGroupID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return eligibility.AccessRequest{}, dErrors.New(dErrors.CodeInvariantViolation, "space references a missing age group")
		}
		return eligibility.AccessRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load age group")
	}

	roles, err := s.users.ListRoles(ctx, userID)
	if err != nil {
		return eligibility.AccessRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roles")
	}

	// A nil user group (no derivable age, or no covering bracket) and a nil
	// consent record are legitimate evaluator inputs, not load failures.
	var userGroup *agegroupmodels.AgeGroup
	if age, ok := u.AgeAt(now); ok {
		userGroup, err = s.ageGroups.FindForAge(ctx, age)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return eligibility.AccessRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve age group")
		}
	}
	consent, err := s.consents.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return eligibility.AccessRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}

	count, err := s.spaces.ParticipantCount(ctx, spaceID)
	if err != nil {
		return eligibility.AccessRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count participants")
	}

	return eligibility.AccessRequest{
		User:             u,
		Roles:            roles,
		Consent:          consent,
		Space:            sp,
		SpaceAgeGroup:    spaceGroup,
		UserAgeGroup:     userGroup,
		ParticipantCount: count,
		Now:              now,
	}, nil
}

func (s *Service) record(ctx context.Context, span trace.Span, d eligibility.Decision, check string, userID id.UserID, spaceID id.SpaceID) {
	span.SetAttributes(
		attribute.Bool("decision.allowed", d.Allowed),
		attribute.String("decision.reason", string(d.Reason)),
	)
	if s.metrics != nil {
		s.metrics.RecordAccessDecision(d.Allowed, string(d.Reason))
	}
	s.logger.InfoContext(ctx, "access evaluated",
		"check", check,
		"user_id", userID,
		"space_id", spaceID,
		"allowed", d.Allowed,
		"reason", d.Reason,
		"request_id", requestcontext.RequestID(ctx),
	)
}
