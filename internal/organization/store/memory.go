package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cohort/internal/organization/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// InMemory holds organizations behind an RWMutex.
type InMemory struct {
	mu     sync.RWMutex
	nextID id.OrganizationID
	orgs   map[id.OrganizationID]*models.Organization
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, orgs: make(map[id.OrganizationID]*models.Organization)}
}

// Create inserts an organization, enforcing domain uniqueness
// case-insensitively.
func (s *InMemory) Create(_ context.Context, o *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orgs {
		if strings.EqualFold(existing.Domain, o.Domain) {
			return sentinel.ErrConflict
		}
	}
	o.ID = s.nextID
	s.nextID++
	cp := *o
	s.orgs[o.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, orgID id.OrganizationID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *InMemory) FindByDomain(_ context.Context, domain string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orgs {
		if strings.EqualFold(o.Domain, domain) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
