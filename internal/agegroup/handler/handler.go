// Package handler serves the read-only age-group catalog endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cohort/internal/agegroup/models"
	"cohort/internal/transport/http/shared"
	id "cohort/pkg/domain"
)

type Service interface {
	List(ctx context.Context) ([]*models.AgeGroup, error)
	Get(ctx context.Context, groupID id.AgeGroupID) (*models.AgeGroup, error)
}

type Handler struct {
	groups Service
	logger *slog.Logger
}

func New(groups Service, logger *slog.Logger) *Handler {
	return &Handler{groups: groups, logger: logger}
}

// Register registers the age-group routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/age-groups", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
}

type ageGroupResponse struct {
	ID        id.AgeGroupID   `json:"id"`
	Name      string          `json:"name"`
	MinAge    int             `json:"min_age"`
	MaxAge    int             `json:"max_age"`
	Rules     json.RawMessage `json:"participation_rules"`
	CreatedAt time.Time       `json:"created_at"`
}

func toAgeGroupResponse(g *models.AgeGroup) ageGroupResponse {
	return ageGroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		MinAge:    g.MinAge,
		MaxAge:    g.MaxAge,
		Rules:     json.RawMessage(g.Rules.Encode()),
		CreatedAt: g.CreatedAt,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list age groups", "error", err)
		shared.WriteError(w, err)
		return
	}
	out := make([]ageGroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toAgeGroupResponse(g))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"age_groups": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	groupID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	g, err := h.groups.Get(r.Context(), id.AgeGroupID(groupID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAgeGroupResponse(g))
}
