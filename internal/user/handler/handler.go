// Package handler serves member registration, profile retrieval, and the
// parental consent lifecycle endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	consentmodels "cohort/internal/consent/models"
	"cohort/internal/transport/http/shared"
	"cohort/internal/user/models"
	"cohort/internal/user/service"
	id "cohort/pkg/domain"
	"cohort/pkg/requestcontext"
)

type UserService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	Get(ctx context.Context, userID id.UserID) (*models.User, []models.RoleAssignment, error)
}

type ConsentService interface {
	Get(ctx context.Context, userID id.UserID) (*consentmodels.ParentalConsent, error)
	Submit(ctx context.Context, userID id.UserID, parentEmail, parentName string, termsAccepted bool) (*consentmodels.ParentalConsent, error)
	Approve(ctx context.Context, userID id.UserID) (*consentmodels.ParentalConsent, error)
	Revoke(ctx context.Context, userID id.UserID) (*consentmodels.ParentalConsent, error)
}

type Handler struct {
	users    UserService
	consents ConsentService
	logger   *slog.Logger
}

func New(users UserService, consents ConsentService, logger *slog.Logger) *Handler {
	return &Handler{users: users, consents: consents, logger: logger}
}

// Register registers the user routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.handleRegister)
		r.Get("/{id}", h.handleGet)
		r.Route("/{id}/consent", func(r chi.Router) {
			r.Get("/", h.handleGetConsent)
			r.Post("/", h.handleSubmitConsent)
			r.Post("/approve", h.handleApproveConsent)
			r.Post("/revoke", h.handleRevokeConsent)
		})
	})
}

type registerRequest struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth"`
	OrganizationID int64  `json:"organization_id,omitempty"`
}

type userResponse struct {
	ID             id.UserID         `json:"id"`
	Email          string            `json:"email"`
	FirstName      string            `json:"first_name"`
	LastName       string            `json:"last_name"`
	DateOfBirth    string            `json:"date_of_birth"`
	OrganizationID id.OrganizationID `json:"organization_id,omitempty"`
	Minor          bool              `json:"minor"`
	Roles          []roleResponse    `json:"roles,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type roleResponse struct {
	OrganizationID id.OrganizationID `json:"organization_id"`
	Role           string            `json:"role"`
}

func toUserResponse(u *models.User, roles []models.RoleAssignment, now time.Time) userResponse {
	resp := userResponse{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		DateOfBirth:    u.DateOfBirth.Format("2006-01-02"),
		OrganizationID: u.OrganizationID,
		Minor:          u.MinorAt(now),
		CreatedAt:      u.CreatedAt,
	}
	for _, a := range roles {
		resp.Roles = append(resp.Roles, roleResponse{OrganizationID: a.OrganizationID, Role: string(a.Role)})
	}
	return resp
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	u, err := h.users.Register(ctx, service.RegisterRequest{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DateOfBirth:    req.DateOfBirth,
		OrganizationID: id.OrganizationID(req.OrganizationID),
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toUserResponse(u, nil, requestcontext.Now(ctx)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	u, roles, err := h.users.Get(r.Context(), id.UserID(userID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserResponse(u, roles, requestcontext.Now(r.Context())))
}

type consentResponse struct {
	UserID        id.UserID  `json:"user_id"`
	ParentEmail   string     `json:"parent_email,omitempty"`
	ParentName    string     `json:"parent_name,omitempty"`
	ConsentGiven  bool       `json:"consent_given"`
	ConsentDate   *time.Time `json:"consent_date,omitempty"`
	TermsAccepted bool       `json:"terms_accepted"`
	Status        string     `json:"status"`
	NeedsRenewal  bool       `json:"needs_renewal"`
}

func toConsentResponse(c *consentmodels.ParentalConsent, now time.Time) consentResponse {
	return consentResponse{
		UserID:        c.UserID,
		ParentEmail:   c.ParentEmail,
		ParentName:    c.ParentName,
		ConsentGiven:  c.ConsentGiven,
		ConsentDate:   c.ConsentDate,
		TermsAccepted: c.TermsAccepted,
		Status:        c.Status(),
		NeedsRenewal:  c.NeedsRenewal(now),
	}
}

func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.consents.Get(r.Context(), id.UserID(userID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConsentResponse(c, requestcontext.Now(r.Context())))
}

type submitConsentRequest struct {
	ParentEmail   string `json:"parent_email"`
	ParentName    string `json:"parent_name"`
	TermsAccepted bool   `json:"terms_accepted"`
}

func (h *Handler) handleSubmitConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req submitConsentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid consent submission",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	c, err := h.consents.Submit(ctx, id.UserID(userID), req.ParentEmail, req.ParentName, req.TermsAccepted)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConsentResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleApproveConsent(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.consents.Approve(r.Context(), id.UserID(userID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConsentResponse(c, requestcontext.Now(r.Context())))
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.PathID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.consents.Revoke(r.Context(), id.UserID(userID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConsentResponse(c, requestcontext.Now(r.Context())))
}
