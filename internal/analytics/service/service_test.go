package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort/internal/analytics/models"
	analyticsstore "cohort/internal/analytics/store"
	orgmodels "cohort/internal/organization/models"
	orgstore "cohort/internal/organization/store"
	usermodels "cohort/internal/user/models"
	userstore "cohort/internal/user/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/requestcontext"
)

var testNow = time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

// fakeCache is an in-process Cache with togglable failures, to verify every
// cache error degrades to a store read instead of surfacing.
type fakeCache struct {
	snaps map[id.OrganizationID]*models.Snapshot
	err   error
	gets  int
	sets  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: make(map[id.OrganizationID]*models.Snapshot)}
}

func (c *fakeCache) Get(_ context.Context, orgID id.OrganizationID) (*models.Snapshot, error) {
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	return c.snaps[orgID], nil
}

func (c *fakeCache) Set(_ context.Context, snap *models.Snapshot) error {
	c.sets++
	if c.err != nil {
		return c.err
	}
	c.snaps[snap.OrganizationID] = snap
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, orgID id.OrganizationID) error {
	delete(c.snaps, orgID)
	return c.err
}

type fixture struct {
	svc       *Service
	users     *userstore.InMemory
	orgs      *orgstore.InMemory
	snapshots *analyticsstore.InMemory
	cache     *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := userstore.NewInMemory()
	orgs := orgstore.NewInMemory()
	snapshots := analyticsstore.NewInMemory()
	cache := newFakeCache()

	svc := New(users, orgs, snapshots, WithCache(cache))
	return &fixture{svc: svc, users: users, orgs: orgs, snapshots: snapshots, cache: cache}
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func (f *fixture) createOrg(t *testing.T, domain string) *orgmodels.Organization {
	t.Helper()
	org, err := orgmodels.New("Test Org", domain, "", nil, testNow)
	require.NoError(t, err)
	require.NoError(t, f.orgs.Create(context.Background(), org))
	return org
}

// addMember creates a user in the organization. updatedAt controls whether
// the member counts as active.
func (f *fixture) addMember(t *testing.T, org *orgmodels.Organization, email string, birthYear int, updatedAt time.Time) *usermodels.User {
	t.Helper()
	ctx := context.Background()
	u, err := usermodels.New(email, "Some", "Member",
		time.Date(birthYear, 3, 1, 0, 0, 0, 0, time.UTC), testNow)
	require.NoError(t, err)
	u.OrganizationID = org.ID
	u.UpdatedAt = updatedAt
	require.NoError(t, f.users.Create(ctx, u))
	require.NoError(t, f.users.GrantRole(ctx, usermodels.RoleAssignment{
		UserID: u.ID, OrganizationID: org.ID, Role: usermodels.RoleMember, GrantedAt: testNow,
	}))
	return u
}

func TestRefreshBuildsDistributions(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()
	org := f.createOrg(t, "test.org")

	f.addMember(t, org, "teen@example.org", 2010, testNow)                       // 15, active
	f.addMember(t, org, "adult1@example.org", 2000, testNow)                     // 25, active
	f.addMember(t, org, "adult2@example.org", 1999, testNow.AddDate(0, -3, 0))   // 26, inactive
	f.addMember(t, org, "senior@example.org", 1960, testNow.AddDate(0, 0, -29)) // 65, still active

	report, err := f.svc.Refresh(ctx, org.ID)
	require.NoError(t, err)

	snap := report.Snapshot
	assert.Equal(t, 4, snap.TotalMembers)
	assert.Equal(t, 3, snap.ActiveMembers)
	assert.Equal(t, map[string]int{
		"Teens (13-17)":        1,
		"Young Adults (18-25)": 1,
		"Adults (26-35)":       1,
		"Seniors (50+)":        1,
	}, snap.AgeDistribution)
	assert.Equal(t, map[string]int{"member": 4}, snap.RoleDistribution)
	assert.InDelta(t, 75.0, report.ActivityRate, 0.001)
	assert.Equal(t, "member", report.DominantRole)
}

func TestGetReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()
	org := f.createOrg(t, "test.org")

	_, err := f.svc.Refresh(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.cache.sets)

	_, err = f.svc.Get(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.gets)
	// cache hit: no second Set
	assert.Equal(t, 1, f.cache.sets)
}

func TestGetDegradesOnCacheFailure(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()
	org := f.createOrg(t, "test.org")

	_, err := f.svc.Refresh(ctx, org.ID)
	require.NoError(t, err)

	f.cache.err = errors.New("redis down")
	report, err := f.svc.Get(ctx, org.ID)
	require.NoError(t, err)
	assert.NotNil(t, report.Snapshot)
}

func TestGetWithoutSnapshot(t *testing.T) {
	f := newFixture(t)
	org := f.createOrg(t, "test.org")

	_, err := f.svc.Get(testCtx(), org.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestGetUnknownOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(testCtx(), id.OrganizationID(999))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestGrowthRateAgainstPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()
	org := f.createOrg(t, "test.org")

	f.addMember(t, org, "one@example.org", 2000, testNow)
	f.addMember(t, org, "two@example.org", 2000, testNow)
	_, err := f.svc.Refresh(ctx, org.ID)
	require.NoError(t, err)

	f.addMember(t, org, "three@example.org", 2000, testNow)
	report, err := f.svc.Refresh(ctx, org.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, report.GrowthRate, 0.001)
}

func TestRefreshAll(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()
	first := f.createOrg(t, "first.org")
	second := f.createOrg(t, "second.org")
	f.addMember(t, first, "one@example.org", 2000, testNow)

	n, err := f.svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, org := range []id.OrganizationID{first.ID, second.ID} {
		snap, err := f.snapshots.Latest(ctx, org)
		require.NoError(t, err)
		assert.Equal(t, testNow, snap.LastUpdated)
	}
}
