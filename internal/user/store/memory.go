package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cohort/internal/user/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// InMemory holds users and role assignments behind an RWMutex.
type InMemory struct {
	mu     sync.RWMutex
	nextID id.UserID
	users  map[id.UserID]*models.User
	roles  map[id.UserID][]models.RoleAssignment
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextID: 1,
		users:  make(map[id.UserID]*models.User),
		roles:  make(map[id.UserID][]models.RoleAssignment),
	}
}

// Create inserts a user, enforcing email uniqueness case-insensitively.
func (s *InMemory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	u.ID = s.nextID
	s.nextID++
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) ListByOrganization(_ context.Context, orgID id.OrganizationID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, u := range s.users {
		if u.OrganizationID == orgID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetOrganization records organization membership. Last write wins.
func (s *InMemory) SetOrganization(_ context.Context, userID id.UserID, orgID id.OrganizationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.OrganizationID = orgID
	return nil
}

// GrantRole records a role assignment; granting an already-held role is a
// no-op, matching the ON CONFLICT DO NOTHING of the Postgres store.
func (s *InMemory) GrantRole(_ context.Context, a models.RoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[a.UserID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, held := range s.roles[a.UserID] {
		if held.OrganizationID == a.OrganizationID && held.Role == a.Role {
			return nil
		}
	}
	s.roles[a.UserID] = append(s.roles[a.UserID], a)
	return nil
}

func (s *InMemory) ListRoles(_ context.Context, userID id.UserID) ([]models.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RoleAssignment{}, s.roles[userID]...), nil
}

// ListRolesByOrganization returns every assignment scoped to the organization,
// across all users. The analytics aggregator derives the role distribution
// from this.
func (s *InMemory) ListRolesByOrganization(_ context.Context, orgID id.OrganizationID) ([]models.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RoleAssignment
	for _, assignments := range s.roles {
		for _, a := range assignments {
			if a.OrganizationID == orgID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}
