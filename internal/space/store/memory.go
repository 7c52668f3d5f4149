package store

import (
	"context"
	"sort"
	"sync"

	"cohort/internal/space/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// InMemory holds participation spaces behind an RWMutex. Participant counts
// are tracked directly; tests use SetParticipantCount to exercise capacity
// checks.
type InMemory struct {
	mu     sync.RWMutex
	nextID id.SpaceID
	spaces map[id.SpaceID]*models.Space
	counts map[id.SpaceID]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextID: 1,
		spaces: make(map[id.SpaceID]*models.Space),
		counts: make(map[id.SpaceID]int),
	}
}

func (s *InMemory) Create(_ context.Context, sp *models.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp.ID = s.nextID
	s.nextID++
	cp := *sp
	s.spaces[sp.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, spaceID id.SpaceID) (*models.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[spaceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

func (s *InMemory) ListByOrganization(_ context.Context, orgID id.OrganizationID) ([]*models.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Space
	for _, sp := range s.spaces {
		if sp.OrganizationID == orgID {
			cp := *sp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update replaces the mutable fields (name, description, active flag, access
// rules). Last write wins; concurrent admin edits need no locking beyond the
// store's own.
func (s *InMemory) Update(_ context.Context, sp *models.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.spaces[sp.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Name = sp.Name
	existing.Description = sp.Description
	existing.IsActive = sp.IsActive
	existing.AccessRules = sp.AccessRules
	existing.UpdatedAt = sp.UpdatedAt
	return nil
}

func (s *InMemory) ParticipantCount(_ context.Context, spaceID id.SpaceID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.spaces[spaceID]; !ok {
		return 0, sentinel.ErrNotFound
	}
	return s.counts[spaceID], nil
}

// SetParticipantCount pins the participant count for a space. Test hook.
func (s *InMemory) SetParticipantCount(spaceID id.SpaceID, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[spaceID] = count
}
