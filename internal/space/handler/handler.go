// Package handler serves participation-space retrieval, admin edits, and the
// access-check endpoints backed by the eligibility evaluator.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cohort/internal/eligibility"
	"cohort/internal/platform/middleware"
	"cohort/internal/rules"
	"cohort/internal/space/models"
	"cohort/internal/space/service"
	"cohort/internal/transport/http/shared"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/requestcontext"
)

type SpaceService interface {
	Get(ctx context.Context, spaceID id.SpaceID) (*models.Space, int, error)
	Update(ctx context.Context, spaceID id.SpaceID, req service.UpdateRequest) (*models.Space, error)
}

type EligibilityService interface {
	CheckSpaceAccess(ctx context.Context, userID id.UserID, spaceID id.SpaceID) (eligibility.Decision, error)
	CheckActivity(ctx context.Context, userID id.UserID, spaceID id.SpaceID, activity string) (eligibility.Decision, error)
}

type Handler struct {
	spaces       SpaceService
	eligibility  EligibilityService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(spaces SpaceService, elig EligibilityService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		spaces:       spaces,
		eligibility:  elig,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register registers the space routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/spaces", func(r chi.Router) {
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
			r.Get("/{id}/access", h.handleAccess)
			r.Get("/{id}/activities/{name}/access", h.handleActivityAccess)
		})
	})
}

type spaceResponse struct {
	ID               id.SpaceID        `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	OrganizationID   id.OrganizationID `json:"organization_id"`
	AgeGroupID       id.AgeGroupID     `json:"age_group_id"`
	IsActive         bool              `json:"is_active"`
	AccessRules      json.RawMessage   `json:"access_rules"`
	ParticipantCount int               `json:"participant_count"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func toSpaceResponse(sp *models.Space, count int) spaceResponse {
	return spaceResponse{
		ID:               sp.ID,
		Name:             sp.Name,
		Description:      sp.Description,
		OrganizationID:   sp.OrganizationID,
		AgeGroupID:       sp.AgeGroupID,
		IsActive:         sp.IsActive,
		AccessRules:      json.RawMessage(sp.AccessRules.Encode()),
		ParticipantCount: count,
		CreatedAt:        sp.CreatedAt,
		UpdatedAt:        sp.UpdatedAt,
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	spaceID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	sp, count, err := h.spaces.Get(r.Context(), id.SpaceID(spaceID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toSpaceResponse(sp, count))
}

type updateRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
	AccessRules json.RawMessage `json:"access_rules,omitempty"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spaceID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid space update",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	update := service.UpdateRequest{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	}
	if len(req.AccessRules) > 0 {
		parsed := rules.ParseSpaceAccessRules(req.AccessRules)
		update.Rules = &parsed
	}
	if _, err := h.spaces.Update(ctx, id.SpaceID(spaceID), update); err != nil {
		shared.WriteError(w, err)
		return
	}
	sp, count, err := h.spaces.Get(ctx, id.SpaceID(spaceID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toSpaceResponse(sp, count))
}

type decisionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spaceID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	userID := requestcontext.UserID(ctx)
	if userID == 0 {
		h.logger.ErrorContext(ctx, "user id missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	decision, err := h.eligibility.CheckSpaceAccess(ctx, userID, id.SpaceID(spaceID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, decisionResponse{Allowed: decision.Allowed, Reason: string(decision.Reason)})
}

func (h *Handler) handleActivityAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spaceID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	userID := requestcontext.UserID(ctx)
	if userID == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	activity := chi.URLParam(r, "name")
	decision, err := h.eligibility.CheckActivity(ctx, userID, id.SpaceID(spaceID), activity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, decisionResponse{Allowed: decision.Allowed, Reason: string(decision.Reason)})
}
