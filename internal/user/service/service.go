// Package service orchestrates member registration and organization
// membership. The join gate is the pure evaluator in internal/eligibility;
// this layer loads the snapshot it runs against and persists the outcome.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	agegroupmodels "cohort/internal/agegroup/models"
	consentmodels "cohort/internal/consent/models"
	"cohort/internal/eligibility"
	orgmodels "cohort/internal/organization/models"
	"cohort/internal/platform/metrics"
	"cohort/internal/user/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	SetOrganization(ctx context.Context, userID id.UserID, orgID id.OrganizationID) error
	GrantRole(ctx context.Context, a models.RoleAssignment) error
	ListRoles(ctx context.Context, userID id.UserID) ([]models.RoleAssignment, error)
}

type OrganizationStore interface {
	FindByID(ctx context.Context, orgID id.OrganizationID) (*orgmodels.Organization, error)
}

type AgeGroupStore interface {
	FindForAge(ctx context.Context, age int) (*agegroupmodels.AgeGroup, error)
}

type ConsentStore interface {
	Create(ctx context.Context, consent *consentmodels.ParentalConsent) error
	FindByUser(ctx context.Context, userID id.UserID) (*consentmodels.ParentalConsent, error)
}

// RegisterRequest carries the registration input. OrganizationID of zero
// means the user registers unaffiliated and joins later.
type RegisterRequest struct {
	Email          string
	FirstName      string
	LastName       string
	DateOfBirth    string
	OrganizationID id.OrganizationID
}

type Service struct {
	users     Store
	orgs      OrganizationStore
	ageGroups AgeGroupStore
	consents  ConsentStore
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

func New(users Store, orgs OrganizationStore, ageGroups AgeGroupStore, consents ConsentStore, opts ...Option) *Service {
	s := &Service{
		users:     users,
		orgs:      orgs,
		ageGroups: ageGroups,
		consents:  consents,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a member. When an organization is named, the join gate
// runs first and membership side effects (member role) apply on success.
// Minors always get an empty pending consent record.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	now := requestcontext.Now(ctx)

	dob, err := models.ParseDate(req.DateOfBirth)
	if err != nil {
		return nil, dErrors.NewValidation(map[string]string{"date_of_birth": "must be a YYYY-MM-DD date"})
	}
	u, err := models.New(req.Email, req.FirstName, req.LastName, dob, now)
	if err != nil {
		return nil, err
	}

	if req.OrganizationID != 0 {
		org, err := s.loadOrganization(ctx, req.OrganizationID)
		if err != nil {
			return nil, err
		}
		if err := s.gateJoin(ctx, u, org, nil); err != nil {
			return nil, err
		}
		u.OrganizationID = org.ID
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if u.OrganizationID != 0 {
		if err := s.grantMemberRole(ctx, u); err != nil {
			return nil, err
		}
	}
	if u.MinorAt(now) {
		if err := s.consents.Create(ctx, consentmodels.NewPending(u.ID, now)); err != nil && !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create consent record")
		}
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "user registered",
		"user_id", u.ID,
		"organization_id", u.OrganizationID,
		"minor", u.MinorAt(now),
		"request_id", requestcontext.RequestID(ctx),
	)
	return u, nil
}

// Get returns a member with their role assignments.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, []models.RoleAssignment, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	roles, err := s.users.ListRoles(ctx, userID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roles")
	}
	return u, roles, nil
}

// Join admits an existing member into an organization after the join gate
// passes. Membership is exclusive; joining while already affiliated is a
// conflict.
func (s *Service) Join(ctx context.Context, userID id.UserID, orgID id.OrganizationID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if u.OrganizationID != 0 {
		return nil, dErrors.New(dErrors.CodeConflict, "user already belongs to an organization")
	}
	org, err := s.loadOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	consent, err := s.consents.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}
	if err := s.gateJoin(ctx, u, org, consent); err != nil {
		return nil, err
	}

	if err := s.users.SetOrganization(ctx, userID, orgID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record membership")
	}
	u.OrganizationID = orgID
	if err := s.grantMemberRole(ctx, u); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user joined organization",
		"user_id", userID,
		"organization_id", orgID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return u, nil
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

func (s *Service) gateJoin(ctx context.Context, u *models.User, org *orgmodels.Organization, consent *consentmodels.ParentalConsent) error {
	now := requestcontext.Now(ctx)
	group, err := s.groupForUser(ctx, u, now)
	if err != nil {
		return err
	}
	decision := eligibility.CanJoin(eligibility.JoinRequest{
		User:         u,
		Organization: org,
		UserAgeGroup: group,
		Consent:      consent,
		Now:          now,
	})
	if !decision.Allowed {
		return dErrors.New(dErrors.CodeForbidden, "cannot join organization: "+string(decision.Reason))
	}
	return nil
}

// groupForUser resolves the bracket covering the user's age. No covering
// bracket is a legitimate state (nil group), not an error.
func (s *Service) groupForUser(ctx context.Context, u *models.User, now time.Time) (*agegroupmodels.AgeGroup, error) {
	age, ok := u.AgeAt(now)
	if !ok {
		return nil, nil
	}
	group, err := s.ageGroups.FindForAge(ctx, age)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve age group")
	}
	return group, nil
}

func (s *Service) grantMemberRole(ctx context.Context, u *models.User) error {
	assignment := models.RoleAssignment{
		UserID:         u.ID,
		OrganizationID: u.OrganizationID,
		Role:           models.RoleMember,
		GrantedAt:      requestcontext.Now(ctx),
	}
	if err := s.users.GrantRole(ctx, assignment); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant member role")
	}
	return nil
}
