// Package memory holds the process-local DomainStore. Entities are kept by
// pointer, so in-place mutations through their own locks are visible to
// every holder immediately.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rl1809/pharmastock/internal/core/domain"
)

type Store struct {
	mu         sync.RWMutex
	pharmacies map[string]*domain.Pharmacy
	medicines  map[string]domain.Medicine
	users      map[string]*domain.User
}

func NewStore() *Store {
	return &Store{
		pharmacies: make(map[string]*domain.Pharmacy),
		medicines:  make(map[string]domain.Medicine),
		users:      make(map[string]*domain.User),
	}
}

func (s *Store) PutPharmacy(_ context.Context, pharmacy *domain.Pharmacy) error {
	if pharmacy == nil || pharmacy.ID == "" {
		return domain.NewValidationError("pharmacy_id", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pharmacies[pharmacy.ID] = pharmacy
	return nil
}

func (s *Store) GetPharmacy(_ context.Context, id string) (*domain.Pharmacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pharmacies[id]
	if !ok {
		return nil, domain.NewNotFoundError("pharmacy", id)
	}
	return p, nil
}

// ListPharmacies returns pharmacies ordered by name, then id.
func (s *Store) ListPharmacies(_ context.Context) ([]*domain.Pharmacy, error) {
	s.mu.RLock()
	out := make([]*domain.Pharmacy, 0, len(s.pharmacies))
	for _, p := range s.pharmacies {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) PutMedicine(_ context.Context, medicine domain.Medicine) error {
	if medicine.ID == "" {
		return domain.NewValidationError("medicine_id", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medicines[medicine.ID] = medicine
	return nil
}

func (s *Store) GetMedicine(_ context.Context, id string) (domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.medicines[id]
	if !ok {
		return domain.Medicine{}, domain.NewNotFoundError("medicine", id)
	}
	return m, nil
}

func (s *Store) PutUser(_ context.Context, user *domain.User) error {
	if user == nil || user.Username == "" {
		return domain.NewValidationError("username", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, domain.NewNotFoundError("user", username)
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
