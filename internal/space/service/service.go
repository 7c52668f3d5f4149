// Package service manages participation spaces: retrieval and admin edits of
// the mutable fields (name, description, active flag, access-rules document).
package service

import (
	"context"
	"errors"
	"log/slog"

	"cohort/internal/rules"
	"cohort/internal/space/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

type Store interface {
	FindByID(ctx context.Context, spaceID id.SpaceID) (*models.Space, error)
	Update(ctx context.Context, sp *models.Space) error
	ParticipantCount(ctx context.Context, spaceID id.SpaceID) (int, error)
}

// UpdateRequest carries an admin edit. Nil fields are left unchanged; Rules
// replaces the whole access-rules document (per-field override resolution
// happens at evaluation time, not storage time).
type UpdateRequest struct {
	Name        *string
	Description *string
	IsActive    *bool
	Rules       *rules.SpaceAccessRules
}

type Service struct {
	spaces Store
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(spaces Store, opts ...Option) *Service {
	s := &Service{spaces: spaces, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a space with its current participant count.
func (s *Service) Get(ctx context.Context, spaceID id.SpaceID) (*models.Space, int, error) {
	sp, err := s.load(ctx, spaceID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.spaces.ParticipantCount(ctx, spaceID)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count participants")
	}
	return sp, count, nil
}

// Update applies an admin edit. Deactivation takes effect on the next access
// evaluation; present participants are not ejected.
func (s *Service) Update(ctx context.Context, spaceID id.SpaceID, req UpdateRequest) (*models.Space, error) {
	sp, err := s.load(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if req.Name != nil {
		if l := len(*req.Name); l < 2 || l > 100 {
			fields["name"] = "must be between 2 and 100 characters"
		} else {
			sp.Name = *req.Name
		}
	}
	if req.Description != nil {
		if len(*req.Description) > 1000 {
			fields["description"] = "must be at most 1000 characters"
		} else {
			sp.Description = *req.Description
		}
	}
	if len(fields) > 0 {
		return nil, dErrors.NewValidation(fields)
	}
	if req.IsActive != nil {
		sp.IsActive = *req.IsActive
	}
	if req.Rules != nil {
		sp.AccessRules = *req.Rules
	}
	sp.UpdatedAt = requestcontext.Now(ctx)

	if err := s.spaces.Update(ctx, sp); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "space not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update space")
	}

	s.logger.InfoContext(ctx, "space updated",
		"space_id", spaceID,
		"active", sp.IsActive,
		"request_id", requestcontext.RequestID(ctx),
	)
	return sp, nil
}

func (s *Service) load(ctx context.Context, spaceID id.SpaceID) (*models.Space, error) {
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "space not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load space")
	}
	return sp, nil
}
