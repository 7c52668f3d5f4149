// Package handler serves tenant provisioning, membership join, and the
// analytics reporting endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	analyticsservice "cohort/internal/analytics/service"
	"cohort/internal/organization/models"
	"cohort/internal/organization/service"
	"cohort/internal/platform/middleware"
	"cohort/internal/rules"
	spacemodels "cohort/internal/space/models"
	"cohort/internal/transport/http/shared"
	usermodels "cohort/internal/user/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/requestcontext"
)

type OrganizationService interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.Organization, error)
	Get(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
	ListSpaces(ctx context.Context, orgID id.OrganizationID) ([]*spacemodels.Space, error)
}

type UserService interface {
	Join(ctx context.Context, userID id.UserID, orgID id.OrganizationID) (*usermodels.User, error)
}

type AnalyticsService interface {
	Get(ctx context.Context, orgID id.OrganizationID) (*analyticsservice.Report, error)
	Refresh(ctx context.Context, orgID id.OrganizationID) (*analyticsservice.Report, error)
	RefreshAll(ctx context.Context) (int, error)
}

type Handler struct {
	orgs         OrganizationService
	users        UserService
	analytics    AnalyticsService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(orgs OrganizationService, users UserService, analytics AnalyticsService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		orgs:         orgs,
		users:        users,
		analytics:    analytics,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register registers the organization routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/organizations", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/spaces", h.handleListSpaces)
		r.With(middleware.RequireAuth(h.jwtValidator, h.logger)).
			Post("/{id}/join", h.handleJoin)
		r.Get("/{id}/analytics", h.handleAnalytics)
		r.Post("/{id}/analytics/refresh", h.handleAnalyticsRefresh)
	})
	r.Post("/analytics/refresh-all", h.handleAnalyticsRefreshAll)
}

type createRequest struct {
	Name        string          `json:"name"`
	Domain      string          `json:"domain"`
	Description string          `json:"description,omitempty"`
	Settings    json.RawMessage `json:"settings,omitempty"`
}

type organizationResponse struct {
	ID          id.OrganizationID `json:"id"`
	Name        string            `json:"name"`
	Domain      string            `json:"domain"`
	Description string            `json:"description,omitempty"`
	Settings    json.RawMessage   `json:"settings"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toOrganizationResponse(org *models.Organization) organizationResponse {
	return organizationResponse{
		ID:          org.ID,
		Name:        org.Name,
		Domain:      org.Domain,
		Description: org.Description,
		Settings:    json.RawMessage(org.Settings.Encode()),
		CreatedAt:   org.CreatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid organization request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	var settings *rules.OrganizationSettings
	if len(req.Settings) > 0 {
		parsed := rules.ParseOrganizationSettings(req.Settings)
		settings = &parsed
	}
	org, err := h.orgs.Create(ctx, service.CreateRequest{
		Name:        req.Name,
		Domain:      req.Domain,
		Description: req.Description,
		Settings:    settings,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toOrganizationResponse(org))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]organizationResponse, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, toOrganizationResponse(org))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"organizations": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	org, err := h.orgs.Get(r.Context(), id.OrganizationID(orgID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toOrganizationResponse(org))
}

type spaceSummary struct {
	ID         id.SpaceID    `json:"id"`
	Name       string        `json:"name"`
	AgeGroupID id.AgeGroupID `json:"age_group_id"`
	IsActive   bool          `json:"is_active"`
}

func (h *Handler) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	spaces, err := h.orgs.ListSpaces(r.Context(), id.OrganizationID(orgID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]spaceSummary, 0, len(spaces))
	for _, sp := range spaces {
		out = append(out, spaceSummary{ID: sp.ID, Name: sp.Name, AgeGroupID: sp.AgeGroupID, IsActive: sp.IsActive})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"spaces": out})
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := shared.PathID(r, "id")
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
	u, err := h.users.Join(ctx, userID, id.OrganizationID(orgID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":         u.ID,
		"organization_id": u.OrganizationID,
	})
}

type analyticsResponse struct {
	OrganizationID   id.OrganizationID `json:"organization_id"`
	TotalMembers     int               `json:"total_members"`
	ActiveMembers    int               `json:"active_members"`
	AgeDistribution  map[string]int    `json:"age_distribution"`
	RoleDistribution map[string]int    `json:"role_distribution"`
	ActivityRate     float64           `json:"activity_rate"`
	GrowthRate       float64           `json:"growth_rate"`
	TopAgeBracket    string            `json:"top_age_bracket,omitempty"`
	DominantRole     string            `json:"dominant_role,omitempty"`
	LastUpdated      time.Time         `json:"last_updated"`
}

func toAnalyticsResponse(rep *analyticsservice.Report) analyticsResponse {
	snap := rep.Snapshot
	return analyticsResponse{
		OrganizationID:   snap.OrganizationID,
		TotalMembers:     snap.TotalMembers,
		ActiveMembers:    snap.ActiveMembers,
		AgeDistribution:  snap.AgeDistribution,
		RoleDistribution: snap.RoleDistribution,
		ActivityRate:     rep.ActivityRate,
		GrowthRate:       rep.GrowthRate,
		TopAgeBracket:    rep.TopAgeBracket,
		DominantRole:     rep.DominantRole,
		LastUpdated:      snap.LastUpdated,
	}
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	rep, err := h.analytics.Get(r.Context(), id.OrganizationID(orgID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAnalyticsResponse(rep))
}

func (h *Handler) handleAnalyticsRefresh(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	rep, err := h.analytics.Refresh(r.Context(), id.OrganizationID(orgID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAnalyticsResponse(rep))
}

func (h *Handler) handleAnalyticsRefreshAll(w http.ResponseWriter, r *http.Request) {
	refreshed, err := h.analytics.RefreshAll(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"refreshed": refreshed})
}
