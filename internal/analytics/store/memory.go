package store

import (
	"context"
	"sync"

	"cohort/internal/analytics/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// InMemory keeps snapshot history per organization, newest last. Concurrent
// regeneration is resolved last-write-wins; snapshots are advisory reporting
// data.
type InMemory struct {
	mu     sync.RWMutex
	nextID id.SnapshotID
	byOrg  map[id.OrganizationID][]*models.Snapshot
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, byOrg: make(map[id.OrganizationID][]*models.Snapshot)}
}

func (s *InMemory) Append(_ context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ID = s.nextID
	s.nextID++
	cp := cloneSnapshot(snap)
	s.byOrg[snap.OrganizationID] = append(s.byOrg[snap.OrganizationID], cp)
	return nil
}

// Latest returns the newest snapshot for the organization.
func (s *InMemory) Latest(_ context.Context, orgID id.OrganizationID) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.byOrg[orgID]
	if len(history) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return cloneSnapshot(history[len(history)-1]), nil
}

// Previous returns the snapshot before the newest one, for growth-rate
// derivations. ErrNotFound when fewer than two snapshots exist.
func (s *InMemory) Previous(_ context.Context, orgID id.OrganizationID) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.byOrg[orgID]
	if len(history) < 2 {
		return nil, sentinel.ErrNotFound
	}
	return cloneSnapshot(history[len(history)-2]), nil
}

func cloneSnapshot(in *models.Snapshot) *models.Snapshot {
	out := *in
	out.AgeDistribution = make(map[string]int, len(in.AgeDistribution))
	for k, v := range in.AgeDistribution {
		out.AgeDistribution[k] = v
	}
	out.RoleDistribution = make(map[string]int, len(in.RoleDistribution))
	for k, v := range in.RoleDistribution {
		out.RoleDistribution[k] = v
	}
	return &out
}
