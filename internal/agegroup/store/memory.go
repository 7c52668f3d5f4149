package store

import (
	"context"
	"sort"
	"sync"

	"cohort/internal/agegroup/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// InMemory holds age groups behind an RWMutex. Used in tests and when no
// database is configured.
type InMemory struct {
	mu     sync.RWMutex
	nextID id.AgeGroupID
	groups map[id.AgeGroupID]*models.AgeGroup
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, groups: make(map[id.AgeGroupID]*models.AgeGroup)}
}

func (s *InMemory) Create(_ context.Context, g *models.AgeGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == 0 {
		g.ID = s.nextID
		s.nextID++
	} else if g.ID >= s.nextID {
		s.nextID = g.ID + 1
	}
	if _, exists := s.groups[g.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *g
	s.groups[g.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, groupID id.AgeGroupID) (*models.AgeGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

// FindForAge returns the first bracket (by ascending min age) containing the
// age, or ErrNotFound when no bracket covers it.
func (s *InMemory) FindForAge(ctx context.Context, age int) (*models.AgeGroup, error) {
	groups, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.IncludesAge(age) {
			return g, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns all groups ordered by min age.
func (s *InMemory) List(_ context.Context) ([]*models.AgeGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AgeGroup, 0, len(s.groups))
	for _, g := range s.groups {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinAge != out[j].MinAge {
			return out[i].MinAge < out[j].MinAge
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
