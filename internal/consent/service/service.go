// Package service orchestrates the parental consent lifecycle: submission of
// parent details, approval, and revocation, with best-effort parent
// notification on every transition.
package service

import (
	"context"
	"errors"
	"log/slog"

	"cohort/internal/consent/models"
	"cohort/internal/notify"
	"cohort/internal/platform/metrics"
	usermodels "cohort/internal/user/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, consent *models.ParentalConsent) error
	FindByUser(ctx context.Context, userID id.UserID) (*models.ParentalConsent, error)
	Save(ctx context.Context, consent *models.ParentalConsent) error
}

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*usermodels.User, error)
}

// Service owns consent state transitions. Notification delivery is
// fire-and-forget: a delivery failure is logged and never rolls back the
// transition that triggered it.
type Service struct {
	consents Store
	users    UserStore
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(consents Store, users UserStore, opts ...Option) *Service {
	s := &Service{
		consents: consents,
		users:    users,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the consent record for a user. Adults have none; that is
// reported as not found, not as a fault.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.ParentalConsent, error) {
	consent, err := s.consents.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no consent record for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}
	return consent, nil
}

// Submit records the parent's details on the minor's consent record and asks
// the parent to confirm. The record stays unapproved until Approve runs.
func (s *Service) Submit(ctx context.Context, userID id.UserID, parentEmail, parentName string, termsAccepted bool) (*models.ParentalConsent, error) {
	consent, user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := consent.Submit(parentEmail, parentName, termsAccepted, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.consents.Save(ctx, consent); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
	}
	s.logger.InfoContext(ctx, "consent submitted",
		"user_id", userID,
		"status", consent.Status(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.notifyChange(ctx, notify.KindConsentRequested, consent, user)
	return consent, nil
}

// Approve marks consent as given. The precondition (terms accepted, parent
// details present) is enforced by the model; on violation nothing is
// persisted.
func (s *Service) Approve(ctx context.Context, userID id.UserID) (*models.ParentalConsent, error) {
	consent, user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := consent.Approve(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.consents.Save(ctx, consent); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
	}
	s.logger.InfoContext(ctx, "consent approved",
		"user_id", userID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.notifyChange(ctx, notify.KindConsentApproved, consent, user)
	return consent, nil
}

// Revoke withdraws a previously given consent. Revocation takes effect on the
// next access check; it does not retroactively terminate sessions.
func (s *Service) Revoke(ctx context.Context, userID id.UserID) (*models.ParentalConsent, error) {
	consent, user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	consent.Revoke(requestcontext.Now(ctx))
	if err := s.consents.Save(ctx, consent); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
	}
	s.logger.InfoContext(ctx, "consent revoked",
		"user_id", userID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.notifyChange(ctx, notify.KindConsentRevoked, consent, user)
	return consent, nil
}

func (s *Service) load(ctx context.Context, userID id.UserID) (*models.ParentalConsent, *usermodels.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	consent, err := s.consents.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "no consent record for user")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}
	return consent, user, nil
}

func (s *Service) notifyChange(ctx context.Context, kind string, consent *models.ParentalConsent, user *usermodels.User) {
	if s.metrics != nil {
		s.metrics.ConsentTransitions.WithLabelValues(kind).Inc()
	}
	if s.notifier == nil || consent.ParentEmail == "" {
		return
	}
	event := notify.ConsentEvent{
		Kind:        kind,
		UserID:      consent.UserID,
		UserName:    user.FullName(),
		ParentEmail: consent.ParentEmail,
		ParentName:  consent.ParentName,
		OccurredAt:  requestcontext.Now(ctx),
	}
	if err := s.notifier.ConsentStatusChanged(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "consent notification failed",
			"kind", kind,
			"user_id", consent.UserID,
			"error", err,
		)
	}
}
