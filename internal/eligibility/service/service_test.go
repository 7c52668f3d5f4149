package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agegroupmodels "cohort/internal/agegroup/models"
	agegroupstore "cohort/internal/agegroup/store"
	consentstore "cohort/internal/consent/store"
	"cohort/internal/eligibility"
	spacemodels "cohort/internal/space/models"
	spacestore "cohort/internal/space/store"
	usermodels "cohort/internal/user/models"
	userstore "cohort/internal/user/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/requestcontext"
)

// noon keeps default time windows satisfied.
var testNow = time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	users    *userstore.InMemory
	spaces   *spacestore.InMemory
	consents *consentstore.InMemory

	org   id.OrganizationID
	adult *usermodels.User
	space *spacemodels.Space
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	users := userstore.NewInMemory()
	spaces := spacestore.NewInMemory()
	groups := agegroupstore.NewInMemory()
	consents := consentstore.NewInMemory()

	var youngAdults *agegroupmodels.AgeGroup
	for _, g := range agegroupmodels.DefaultGroups(testNow) {
		require.NoError(t, groups.Create(ctx, g))
		if g.MinAge == 18 {
			youngAdults = g
		}
	}
	require.NotNil(t, youngAdults)

	org := id.OrganizationID(1)
	adult, err := usermodels.New("adam@example.org", "Adam", "Adult",
		time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC), testNow)
	require.NoError(t, err)
	adult.OrganizationID = org
	require.NoError(t, users.Create(ctx, adult))
	require.NoError(t, users.GrantRole(ctx, usermodels.RoleAssignment{
		UserID: adult.ID, OrganizationID: org, Role: usermodels.RoleMember, GrantedAt: testNow,
	}))

	sp := spacemodels.DefaultFor(org, youngAdults, testNow)
	require.NoError(t, spaces.Create(ctx, sp))

	svc := New(users, spaces, groups, consents)
	return &fixture{
		svc:      svc,
		users:    users,
		spaces:   spaces,
		consents: consents,
		org:      org,
		adult:    adult,
		space:    sp,
	}
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func TestCheckSpaceAccessAllows(t *testing.T) {
	f := newFixture(t)

	decision, err := f.svc.CheckSpaceAccess(testCtx(), f.adult.ID, f.space.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, eligibility.DenyNone, decision.Reason)
}

func TestCheckSpaceAccessDenies(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()

	t.Run("capacity reached", func(t *testing.T) {
		f.spaces.SetParticipantCount(f.space.ID, 100)
		defer f.spaces.SetParticipantCount(f.space.ID, 0)

		decision, err := f.svc.CheckSpaceAccess(ctx, f.adult.ID, f.space.ID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, eligibility.DenyCapacity, decision.Reason)
	})

	t.Run("wrong bracket", func(t *testing.T) {
		senior, err := usermodels.New("sue@example.org", "Sue", "Senior",
			time.Date(1950, 3, 1, 0, 0, 0, 0, time.UTC), testNow)
		require.NoError(t, err)
		senior.OrganizationID = f.org
		require.NoError(t, f.users.Create(ctx, senior))

		decision, err := f.svc.CheckSpaceAccess(ctx, senior.ID, f.space.ID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, eligibility.DenyAgeGroup, decision.Reason)
	})
}

func TestCheckSpaceAccessErrors(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.CheckSpaceAccess(ctx, id.UserID(999), f.space.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("unknown space", func(t *testing.T) {
		_, err := f.svc.CheckSpaceAccess(ctx, f.adult.ID, id.SpaceID(999))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("space pointing at a missing age group", func(t *testing.T) {
		orphan := *f.space
		orphan.AgeGroupID = id.AgeGroupID(999)
		require.NoError(t, f.spaces.Create(ctx, &orphan))

		_, err := f.svc.CheckSpaceAccess(ctx, f.adult.ID, orphan.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestCheckActivity(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()

	t.Run("name is required", func(t *testing.T) {
		_, err := f.svc.CheckActivity(ctx, f.adult.ID, f.space.ID, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("restricted activity denied", func(t *testing.T) {
		restricted := []string{"gambling"}
		sp := *f.space
		sp.AccessRules.RestrictedActivities = &restricted
		require.NoError(t, f.spaces.Update(ctx, &sp))

		decision, err := f.svc.CheckActivity(ctx, f.adult.ID, sp.ID, "gambling")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, eligibility.DenyActivityRestricted, decision.Reason)
	})

	t.Run("listed activity allowed", func(t *testing.T) {
		decision, err := f.svc.CheckActivity(ctx, f.adult.ID, f.space.ID, "all")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})
}
