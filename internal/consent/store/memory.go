package store

import (
	"context"
	"sync"

	"cohort/internal/consent/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// InMemory holds consent records behind an RWMutex, keyed by user (one record
// per minor).
type InMemory struct {
	mu     sync.RWMutex
	nextID id.ConsentID
	byUser map[id.UserID]*models.ParentalConsent
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, byUser: make(map[id.UserID]*models.ParentalConsent)}
}

func (s *InMemory) Create(_ context.Context, c *models.ParentalConsent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUser[c.UserID]; exists {
		return sentinel.ErrConflict
	}
	c.ID = s.nextID
	s.nextID++
	cp := *c
	s.byUser[c.UserID] = &cp
	return nil
}

func (s *InMemory) FindByUser(_ context.Context, userID id.UserID) (*models.ParentalConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// Save replaces the stored record for the user. Last write wins.
func (s *InMemory) Save(_ context.Context, c *models.ParentalConsent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[c.UserID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *c
	s.byUser[c.UserID] = &cp
	return nil
}
