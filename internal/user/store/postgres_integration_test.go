//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	orgmodels "cohort/internal/organization/models"
	orgstore "cohort/internal/organization/store"
	"cohort/internal/user/models"
	"cohort/internal/user/store"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	users    *store.Postgres
	orgs     *orgstore.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.users = store.NewPostgres(s.postgres.Pool)
	s.orgs = orgstore.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"role_assignments", "users", "organizations")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newUser(email string) *models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.User{
		Email:       email,
		FirstName:   "Some",
		LastName:    "Member",
		DateOfBirth: time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *PostgresStoreSuite) createOrg() *orgmodels.Organization {
	org, err := orgmodels.New("Test Org", "test.org", "", nil, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.orgs.Create(context.Background(), org))
	return org
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()

	u := s.newUser("adam@example.org")
	s.Require().NoError(s.users.Create(ctx, u))
	s.NotZero(u.ID)

	got, err := s.users.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, got.Email)
	s.Zero(got.OrganizationID)
	s.True(got.DateOfBirth.Equal(u.DateOfBirth))

	_, err = s.users.FindByID(ctx, id.UserID(999))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateEmailConflicts() {
	ctx := context.Background()

	s.Require().NoError(s.users.Create(ctx, s.newUser("adam@example.org")))
	err := s.users.Create(ctx, s.newUser("adam@example.org"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestSetOrganizationAndListByOrganization() {
	ctx := context.Background()
	org := s.createOrg()

	u := s.newUser("adam@example.org")
	s.Require().NoError(s.users.Create(ctx, u))
	s.Require().NoError(s.users.SetOrganization(ctx, u.ID, org.ID))

	got, err := s.users.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(org.ID, got.OrganizationID)

	members, err := s.users.ListByOrganization(ctx, org.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal(u.ID, members[0].ID)

	s.ErrorIs(s.users.SetOrganization(ctx, id.UserID(999), org.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGrantRole() {
	ctx := context.Background()
	org := s.createOrg()

	u := s.newUser("adam@example.org")
	s.Require().NoError(s.users.Create(ctx, u))

	a := models.RoleAssignment{
		UserID:         u.ID,
		OrganizationID: org.ID,
		Role:           models.RoleMember,
		GrantedAt:      time.Now().UTC(),
	}
	s.Require().NoError(s.users.GrantRole(ctx, a))
	// idempotent under the composite unique constraint
	s.Require().NoError(s.users.GrantRole(ctx, a))

	roles, err := s.users.ListRoles(ctx, u.ID)
	s.Require().NoError(err)
	s.Len(roles, 1)

	byOrg, err := s.users.ListRolesByOrganization(ctx, org.ID)
	s.Require().NoError(err)
	s.Len(byOrg, 1)

	// granting against a missing user trips the foreign key
	orphan := a
	orphan.UserID = id.UserID(999)
	s.ErrorIs(s.users.GrantRole(ctx, orphan), sentinel.ErrNotFound)
}
