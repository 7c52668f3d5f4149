package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analyticsmodels "cohort/internal/analytics/models"
	analyticsservice "cohort/internal/analytics/service"
	"cohort/internal/organization/models"
	"cohort/internal/organization/service"
	"cohort/internal/platform/middleware"
	spacemodels "cohort/internal/space/models"
	usermodels "cohort/internal/user/models"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/testutil"
)

var testNow = time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

type stubOrgService struct {
	createFn     func(ctx context.Context, req service.CreateRequest) (*models.Organization, error)
	getFn        func(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error)
	listFn       func(ctx context.Context) ([]*models.Organization, error)
	listSpacesFn func(ctx context.Context, orgID id.OrganizationID) ([]*spacemodels.Space, error)
}

func (s *stubOrgService) Create(ctx context.Context, req service.CreateRequest) (*models.Organization, error) {
	return s.createFn(ctx, req)
}

func (s *stubOrgService) Get(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error) {
	return s.getFn(ctx, orgID)
}

func (s *stubOrgService) List(ctx context.Context) ([]*models.Organization, error) {
	return s.listFn(ctx)
}

func (s *stubOrgService) ListSpaces(ctx context.Context, orgID id.OrganizationID) ([]*spacemodels.Space, error) {
	return s.listSpacesFn(ctx, orgID)
}

type stubJoinService struct {
	joinFn func(ctx context.Context, userID id.UserID, orgID id.OrganizationID) (*usermodels.User, error)
}

func (s *stubJoinService) Join(ctx context.Context, userID id.UserID, orgID id.OrganizationID) (*usermodels.User, error) {
	return s.joinFn(ctx, userID, orgID)
}

type stubAnalyticsService struct {
	getFn func(ctx context.Context, orgID id.OrganizationID) (*analyticsservice.Report, error)
}

func (s *stubAnalyticsService) Get(ctx context.Context, orgID id.OrganizationID) (*analyticsservice.Report, error) {
	return s.getFn(ctx, orgID)
}

func (s *stubAnalyticsService) Refresh(ctx context.Context, orgID id.OrganizationID) (*analyticsservice.Report, error) {
	return s.getFn(ctx, orgID)
}

func (s *stubAnalyticsService) RefreshAll(context.Context) (int, error) {
	return 0, nil
}

// stubValidator accepts the literal token "good" without real JWTs.
type stubValidator struct {
	userID id.UserID
}

func (v *stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token == "good" {
		return &middleware.JWTClaims{UserID: v.userID}, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

func newRouter(orgs OrganizationService, users UserService, analytics AnalyticsService, validator middleware.JWTValidator) chi.Router {
	r := chi.NewRouter()
	h := New(orgs, users, analytics, slog.New(slog.NewTextHandler(io.Discard, nil)), validator)
	h.Register(r)
	return r
}

func testOrg() *models.Organization {
	org, _ := models.New("Chess Club", "chess.example.org", "after-school chess", nil, testNow)
	org.ID = 3
	return org
}

func TestHandleCreate(t *testing.T) {
	orgs := &stubOrgService{
		createFn: func(_ context.Context, req service.CreateRequest) (*models.Organization, error) {
			assert.Equal(t, "Chess Club", req.Name)
			require.NotNil(t, req.Settings)
			assert.Equal(t, 13, req.Settings.MinimumAge)
			return testOrg(), nil
		},
	}
	r := newRouter(orgs, &stubJoinService{}, &stubAnalyticsService{}, &stubValidator{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/organizations", map[string]any{
		"name":     "Chess Club",
		"domain":   "chess.example.org",
		"settings": map[string]any{"minimum_age": 13},
	})
	rec := testutil.DoRequest(r, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := testutil.DecodeResponse[organizationResponse](t, rec)
	assert.Equal(t, id.OrganizationID(3), resp.ID)
	assert.Equal(t, "chess.example.org", resp.Domain)
}

func TestHandleCreateMapsValidationErrors(t *testing.T) {
	orgs := &stubOrgService{
		createFn: func(context.Context, service.CreateRequest) (*models.Organization, error) {
			return nil, dErrors.NewValidation(map[string]string{"domain": "must be a valid domain"})
		},
	}
	r := newRouter(orgs, &stubJoinService{}, &stubAnalyticsService{}, &stubValidator{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/organizations", map[string]any{
		"name":   "Chess Club",
		"domain": "not a domain",
	})
	rec := testutil.DoRequest(r, req)

	testutil.AssertError(t, rec, http.StatusBadRequest, "validation_failed")
	assert.Contains(t, testutil.ErrorFields(t, rec), "domain")
}

func TestHandleListSpaces(t *testing.T) {
	orgs := &stubOrgService{
		listSpacesFn: func(_ context.Context, orgID id.OrganizationID) ([]*spacemodels.Space, error) {
			if orgID != 3 {
				return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
			}
			return []*spacemodels.Space{
				{ID: 1, Name: "Kids Corner", AgeGroupID: 1, IsActive: true},
				{ID: 2, Name: "Teens Space", AgeGroupID: 2, IsActive: true},
			}, nil
		},
	}
	r := newRouter(orgs, &stubJoinService{}, &stubAnalyticsService{}, &stubValidator{})

	t.Run("lists", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/organizations/3/spaces", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		resp := testutil.DecodeResponse[struct {
			Spaces []spaceSummary `json:"spaces"`
		}](t, rec)
		require.Len(t, resp.Spaces, 2)
		assert.Equal(t, "Kids Corner", resp.Spaces[0].Name)
	})

	t.Run("unknown organization", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/organizations/9/spaces", nil))
		testutil.AssertError(t, rec, http.StatusNotFound, "not_found")
	})
}

func TestHandleJoinRequiresAuth(t *testing.T) {
	users := &stubJoinService{
		joinFn: func(_ context.Context, userID id.UserID, orgID id.OrganizationID) (*usermodels.User, error) {
			assert.Equal(t, id.UserID(7), userID)
			assert.Equal(t, id.OrganizationID(3), orgID)
			return &usermodels.User{ID: userID, OrganizationID: orgID}, nil
		},
	}
	r := newRouter(&stubOrgService{}, users, &stubAnalyticsService{}, &stubValidator{userID: 7})

	t.Run("without token", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/organizations/3/join", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with token", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/organizations/3/join", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := testutil.DoRequest(r, req)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := testutil.DecodeResponse[map[string]int64](t, rec)
		assert.Equal(t, int64(7), (*resp)["user_id"])
		assert.Equal(t, int64(3), (*resp)["organization_id"])
	})

	t.Run("join denied for minors without consent", func(t *testing.T) {
		users.joinFn = func(context.Context, id.UserID, id.OrganizationID) (*usermodels.User, error) {
			return nil, dErrors.New(dErrors.CodeForbidden, "parental consent required")
		}
		req := testutil.NewJSONRequest(t, http.MethodPost, "/organizations/3/join", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := testutil.DoRequest(r, req)
		testutil.AssertError(t, rec, http.StatusForbidden, "forbidden")
	})
}

func TestHandleAnalytics(t *testing.T) {
	analytics := &stubAnalyticsService{
		getFn: func(_ context.Context, orgID id.OrganizationID) (*analyticsservice.Report, error) {
			if orgID != 3 {
				return nil, dErrors.New(dErrors.CodeNotFound, "no analytics snapshot")
			}
			return &analyticsservice.Report{
				Snapshot: &analyticsmodels.Snapshot{
					OrganizationID:   3,
					TotalMembers:     10,
					ActiveMembers:    8,
					AgeDistribution:  map[string]int{"Teens (13-17)": 6, "Young Adults (18-25)": 4},
					RoleDistribution: map[string]int{"member": 10},
					LastUpdated:      testNow,
				},
				ActivityRate:  80,
				GrowthRate:    25,
				TopAgeBracket: "Teens (13-17)",
				DominantRole:  "member",
			}, nil
		},
	}
	r := newRouter(&stubOrgService{}, &stubJoinService{}, analytics, &stubValidator{})

	t.Run("reports", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/organizations/3/analytics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		resp := testutil.DecodeResponse[analyticsResponse](t, rec)
		assert.Equal(t, 10, resp.TotalMembers)
		assert.Equal(t, 80.0, resp.ActivityRate)
		assert.Equal(t, "Teens (13-17)", resp.TopAgeBracket)
	})

	t.Run("no snapshot yet", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/organizations/9/analytics", nil))
		testutil.AssertError(t, rec, http.StatusNotFound, "not_found")
	})
}
